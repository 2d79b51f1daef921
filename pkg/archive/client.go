package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/chpool"
	"github.com/ClickHouse/ch-go/compress"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/common"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Client archives decoded contract events into ClickHouse over the
// native columnar protocol.
type Client struct {
	pool   *chpool.Pool
	config *Config
	log    logrus.FieldLogger
	lock   sync.RWMutex
}

// New creates a new archive client. The client is not connected until
// Start is called.
func New(log logrus.FieldLogger, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	return &Client{
		config: cfg,
		log:    log.WithField("component", "archive"),
	}, nil
}

// isRetryableError checks if an error is transient and can be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ch.ErrClosed) {
		return false
	}

	if exc, ok := ch.AsException(err); ok {
		return exc.IsCode(
			proto.ErrTimeoutExceeded,
			proto.ErrNoFreeConnection,
			proto.ErrTooManySimultaneousQueries,
			proto.ErrSocketTimeout,
			proto.ErrNetworkError,
		)
	}

	var corruptedErr *compress.CorruptedDataErr
	if errors.As(err, &corruptedErr) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "connection refused", "broken pipe", "timeout"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Start dials ClickHouse with retry logic for transient failures.
func (c *Client) Start(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.pool != nil {
		return nil
	}

	compression := ch.CompressionLZ4

	switch c.config.Compression {
	case "zstd":
		compression = ch.CompressionZSTD
	case "none":
		compression = ch.CompressionDisabled
	}

	var pool *chpool.Pool

	err := c.doWithRetry(ctx, "dial", func(attemptCtx context.Context) error {
		var dialErr error

		pool, dialErr = chpool.Dial(attemptCtx, chpool.Options{
			ClientOptions: ch.Options{
				Address:     c.config.Addr,
				Database:    c.config.Database,
				User:        c.config.Username,
				Password:    c.config.Password,
				Compression: compression,
				DialTimeout: c.config.DialTimeout,
			},
			MaxConns: c.config.MaxConns,
			MinConns: c.config.MinConns,
		})

		return dialErr
	})
	if err != nil {
		return fmt.Errorf("failed to dial clickhouse: %w", err)
	}

	c.pool = pool

	c.log.WithField("addr", c.config.Addr).Info("Connected to event archive")

	return nil
}

// Stop closes the connection pool.
func (c *Client) Stop(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		c.log.Info("Closed event archive connection pool")
	}

	return nil
}

// doWithRetry executes fn with exponential backoff on transient errors.
// Each attempt runs under the configured query timeout.
func (c *Client) doWithRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryBaseDelay * time.Duration(1<<(attempt-1))
			if c.config.RetryMaxDelay > 0 && delay > c.config.RetryMaxDelay {
				delay = c.config.RetryMaxDelay
			}

			c.log.WithFields(logrus.Fields{
				"attempt":   attempt,
				"max":       c.config.MaxRetries,
				"delay":     delay,
				"operation": operation,
				"error":     lastErr,
			}).Debug("Retrying after transient error")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.config.QueryTimeout)
		err := fn(attemptCtx)

		cancel()

		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.config.MaxRetries, lastErr)
}

// InsertEvents archives a batch of decoded events for network.
func (c *Client) InsertEvents(ctx context.Context, network string, events []contracts.ContractEvent) error {
	if len(events) == 0 {
		return nil
	}

	c.lock.RLock()
	pool := c.pool
	c.lock.RUnlock()

	if pool == nil {
		return fmt.Errorf("archive client not started")
	}

	start := time.Now()
	status := statusSuccess

	defer func() {
		common.ArchiveOperationDuration.WithLabelValues(network, "insert_events", status).Observe(time.Since(start).Seconds())
	}()

	cols := &Columns{}
	now := time.Now().UTC()

	for _, event := range events {
		cols.Append(Row{
			ArchivedDateTime: now,
			Network:          network,
			Contract:         event.Contract.Hex(),
			EventName:        event.Name,
			TxHash:           event.TxHash.Hex(),
			BlockNumber:      event.BlockNumber,
			LogIndex:         uint32(event.LogIndex),
			Args:             encodeArgs(event.Args),
		})
	}

	input := cols.Input()

	err := c.doWithRetry(ctx, "insert_events", func(attemptCtx context.Context) error {
		return pool.Do(attemptCtx, ch.Query{
			Body:  input.Into(c.config.Table),
			Input: input,
		})
	})
	if err != nil {
		status = statusFailed

		return fmt.Errorf("failed to insert events: %w", err)
	}

	for _, event := range events {
		common.EventsArchived.WithLabelValues(network, event.Contract.Hex(), event.Name).Inc()
	}

	c.log.WithFields(logrus.Fields{
		"events": len(events),
		"table":  c.config.Table,
	}).Debug("Archived contract events")

	return nil
}

// encodeArgs renders event arguments as JSON. Values that are not
// natively JSON-encodable (big ints, addresses, byte arrays) are
// stringified first.
func encodeArgs(args map[string]interface{}) string {
	flat := make(map[string]string, len(args))

	for name, value := range args {
		switch v := value.(type) {
		case string:
			flat[name] = v
		case fmt.Stringer:
			flat[name] = v.String()
		default:
			flat[name] = fmt.Sprintf("%v", v)
		}
	}

	encoded, err := json.Marshal(flat)
	if err != nil {
		return "{}"
	}

	return string(encoded)
}
