package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/common"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

type Config struct {
	// Concurrency is the number of concurrent task workers.
	Concurrency int `yaml:"concurrency" default:"5"`
	// Queue is the asynq queue name for archive tasks.
	Queue string `yaml:"queue" default:"archive"`
}

func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.Queue == "" {
		return fmt.Errorf("queue is required")
	}

	return nil
}

// EventSink receives decoded events for long-term storage. Implemented by
// archive.Client.
type EventSink interface {
	InsertEvents(ctx context.Context, network string, events []contracts.ContractEvent) error
}

// Manager runs the background archival pipeline: confirmed transactions
// are enqueued as tasks, workers fetch the receipt, decode known events
// and hand them to the sink.
type Manager struct {
	log    logrus.FieldLogger
	config *Config
	nodes  txmgr.NodeSource
	sink   EventSink

	client *asynq.Client
	server *asynq.Server

	// abis lists the contract ABIs whose events the workers decode.
	abis []abi.ABI

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewManager(log logrus.FieldLogger, config *Config, redisClient *redis.Client, nodes txmgr.NodeSource, sink EventSink) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Asynq manages its own Redis connections to avoid shutdown ordering
	// issues with the shared client.
	redisOpt := redisClient.Options()
	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     redisOpt.Addr,
		Password: redisOpt.Password,
		DB:       redisOpt.DB,
	}

	server := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency: config.Concurrency,
		Queues:      map[string]int{config.Queue: 1},
		LogLevel:    asynq.InfoLevel,
		Logger:      log,
	})

	return &Manager{
		log:    log.WithField("component", "watcher"),
		config: config,
		nodes:  nodes,
		sink:   sink,
		client: asynq.NewClient(asynqRedisOpt),
		server: server,
		abis:   []abi.ABI{contracts.ArtNFTABI, contracts.MarketplaceABI},
	}, nil
}

// Start begins consuming archive tasks. It returns once the worker is
// running.
func (m *Manager) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(ArchiveReceiptTaskType, m.handleArchiveTask)

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		if err := m.server.Start(mux); err != nil {
			m.log.WithError(err).Error("Archive worker failed")
		}
	}()

	m.log.WithField("concurrency", m.config.Concurrency).Info("Archive worker started")

	return nil
}

// Stop shuts down the worker and the enqueue client.
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() {
		m.server.Shutdown()
		m.wg.Wait()

		if err := m.client.Close(); err != nil {
			m.log.WithError(err).Warn("Failed to close task client")
		}
	})

	return nil
}

// EnqueueArchive schedules archival of a confirmed transaction's events.
func (m *Manager) EnqueueArchive(ctx context.Context, hash chaincommon.Hash) error {
	task, err := NewArchiveTask(&ArchivePayload{
		TxHash:  hash.Hex(),
		Network: m.nodes.Network().Name,
	})
	if err != nil {
		return fmt.Errorf("failed to build archive task: %w", err)
	}

	info, err := m.client.EnqueueContext(ctx, task, asynq.Queue(m.config.Queue), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue archive task: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"tx_hash": hash.Hex(),
		"task_id": info.ID,
	}).Debug("Enqueued archive task")

	return nil
}

// handleArchiveTask fetches the receipt for a confirmed transaction,
// decodes the events it recognizes and writes them to the sink. Returning
// an error lets asynq retry with backoff, which also covers the window
// where a confirmed transaction is not yet visible on the queried node.
func (m *Manager) handleArchiveTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()
	status := "success"

	var payload ArchivePayload
	if err := payload.UnmarshalBinary(task.Payload()); err != nil {
		return fmt.Errorf("invalid archive payload: %w", err)
	}

	defer func() {
		common.TasksProcessed.WithLabelValues(payload.Network, ArchiveReceiptTaskType, status).Inc()
		common.TaskProcessingDuration.WithLabelValues(payload.Network, ArchiveReceiptTaskType).Observe(time.Since(start).Seconds())
	}()

	node := m.nodes.GetHealthyNode()
	if node == nil {
		status = "failed"

		return ethereum.ErrNotConnected
	}

	hash := chaincommon.HexToHash(payload.TxHash)

	receipt, err := node.TransactionReceipt(ctx, hash)
	if err != nil {
		status = "failed"

		return fmt.Errorf("failed to fetch receipt %s: %w", payload.TxHash, err)
	}

	if receipt == nil {
		status = "failed"

		return fmt.Errorf("receipt %s not yet visible", payload.TxHash)
	}

	events := m.decodeReceipt(receipt.Logs)
	if len(events) == 0 {
		m.log.WithField("tx_hash", payload.TxHash).Debug("No recognizable events in receipt")

		return nil
	}

	if err := m.sink.InsertEvents(ctx, payload.Network, events); err != nil {
		status = "failed"

		return err
	}

	m.log.WithFields(logrus.Fields{
		"tx_hash": payload.TxHash,
		"events":  len(events),
	}).Debug("Archived transaction events")

	return nil
}

func (m *Manager) decodeReceipt(logs []*types.Log) []contracts.ContractEvent {
	flat := make([]types.Log, 0, len(logs))

	for _, entry := range logs {
		flat = append(flat, *entry)
	}

	var events []contracts.ContractEvent

	for _, parsed := range m.abis {
		events = append(events, contracts.DecodeLogs(parsed, flat)...)
	}

	return events
}
