package journal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Transaction lifecycle states. A transaction only ever moves forward:
// submitted -> confirmed or submitted -> failed.
const (
	StatusSubmitted = "submitted"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// DefaultTTL keeps journal entries for a week. Entries are diagnostic
// state, not the source of truth; the chain is.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned when no journal entry exists for a hash.
var ErrNotFound = errors.New("transaction not found in journal")

// Entry is a journaled transaction record.
type Entry struct {
	Hash        chaincommon.Hash
	Status      string
	Sender      chaincommon.Address
	Nonce       uint64
	Network     string
	SubmittedAt time.Time
	SettledAt   time.Time
	BlockNumber uint64
	GasUsed     uint64
	Reason      string
}

// Journal records transaction submissions and outcomes in Redis so that
// operators can answer "what happened to tx X" without an archive node.
type Journal struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewJournal(log logrus.FieldLogger, redisClient *redis.Client, prefix string, ttl time.Duration) *Journal {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Journal{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
		log:    log.WithField("component", "journal"),
	}
}

// key returns the Redis key for a transaction record.
// Key pattern: {prefix}:tx:{hash}.
func (j *Journal) key(hash chaincommon.Hash) string {
	if j.prefix == "" {
		return fmt.Sprintf("tx:%s", hash.Hex())
	}

	return fmt.Sprintf("%s:tx:%s", j.prefix, hash.Hex())
}

// RecordSubmitted journals a freshly broadcast transaction.
func (j *Journal) RecordSubmitted(ctx context.Context, hash chaincommon.Hash, sender chaincommon.Address, nonce uint64, network string) error {
	key := j.key(hash)

	pipe := j.redis.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":       StatusSubmitted,
		"sender":       sender.Hex(),
		"nonce":        nonce,
		"network":      network,
		"submitted_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, j.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to journal submission: %w", err)
	}

	j.log.WithFields(logrus.Fields{
		"tx_hash": hash.Hex(),
		"sender":  sender.Hex(),
		"nonce":   nonce,
	}).Debug("Journaled transaction submission")

	return nil
}

// RecordConfirmed marks a journaled transaction as confirmed.
func (j *Journal) RecordConfirmed(ctx context.Context, hash chaincommon.Hash, blockNumber, gasUsed uint64) error {
	err := j.redis.HSet(ctx, j.key(hash), map[string]interface{}{
		"status":       StatusConfirmed,
		"block_number": blockNumber,
		"gas_used":     gasUsed,
		"settled_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to journal confirmation: %w", err)
	}

	j.log.WithFields(logrus.Fields{
		"tx_hash":      hash.Hex(),
		"block_number": blockNumber,
	}).Debug("Journaled transaction confirmation")

	return nil
}

// RecordFailed marks a journaled transaction as failed with a reason.
// Used both for on-chain reverts and confirmation timeouts.
func (j *Journal) RecordFailed(ctx context.Context, hash chaincommon.Hash, reason string) error {
	err := j.redis.HSet(ctx, j.key(hash), map[string]interface{}{
		"status":     StatusFailed,
		"reason":     reason,
		"settled_at": time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to journal failure: %w", err)
	}

	j.log.WithFields(logrus.Fields{
		"tx_hash": hash.Hex(),
		"reason":  reason,
	}).Debug("Journaled transaction failure")

	return nil
}

// Get returns the journal entry for a hash, or ErrNotFound when the
// transaction was never journaled or its entry has expired.
func (j *Journal) Get(ctx context.Context, hash chaincommon.Hash) (*Entry, error) {
	fields, err := j.redis.HGetAll(ctx, j.key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal entry: %w", err)
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	entry := &Entry{
		Hash:    hash,
		Status:  fields["status"],
		Sender:  chaincommon.HexToAddress(fields["sender"]),
		Network: fields["network"],
		Reason:  fields["reason"],
	}

	entry.Nonce, _ = strconv.ParseUint(fields["nonce"], 10, 64)
	entry.BlockNumber, _ = strconv.ParseUint(fields["block_number"], 10, 64)
	entry.GasUsed, _ = strconv.ParseUint(fields["gas_used"], 10, 64)

	if raw := fields["submitted_at"]; raw != "" {
		entry.SubmittedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}

	if raw := fields["settled_at"]; raw != "" {
		entry.SettledAt, _ = time.Parse(time.RFC3339Nano, raw)
	}

	return entry, nil
}
