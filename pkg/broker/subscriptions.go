package broker

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/common"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

// Subscription is a live event feed over one contract. Events is closed
// when the subscription is cancelled.
type Subscription struct {
	ID       string
	Contract chaincommon.Address
	Events   <-chan contracts.ContractEvent
}

type subscriptionEntry struct {
	contract chaincommon.Address
	events   chan contracts.ContractEvent
	cancel   context.CancelFunc
	done     chan struct{}
}

// subscriptionSet runs one polling goroutine per subscription. Each
// subscription keeps an independent block cursor, giving broadcast
// semantics: every subscriber observes every matching event, regardless
// of how fast the others consume.
type subscriptionSet struct {
	log          logrus.FieldLogger
	nodes        txmgr.NodeSource
	pollInterval time.Duration
	buffer       int

	mu   sync.Mutex
	subs map[string]*subscriptionEntry
}

func newSubscriptionSet(log logrus.FieldLogger, nodes txmgr.NodeSource, pollInterval time.Duration, buffer int) *subscriptionSet {
	return &subscriptionSet{
		log:          log.WithField("component", "subscriptions"),
		nodes:        nodes,
		pollInterval: pollInterval,
		buffer:       buffer,
		subs:         make(map[string]*subscriptionEntry),
	}
}

func (s *subscriptionSet) subscribe(ctx context.Context, contract chaincommon.Address, parsed abi.ABI, names []string) (*Subscription, error) {
	var topic0 []chaincommon.Hash

	for _, name := range names {
		event, ok := parsed.Events[name]
		if !ok {
			return nil, fmt.Errorf("unknown event %q on %s", name, contract.Hex())
		}

		topic0 = append(topic0, event.ID)
	}

	node := s.nodes.GetHealthyNode()
	if node == nil {
		return nil, ethereum.ErrNotConnected
	}

	// New subscriptions start at the next block: historical events are
	// the query API's job.
	header, err := node.LatestHeader(ctx)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	entry := &subscriptionEntry{
		contract: contract,
		events:   make(chan contracts.ContractEvent, s.buffer),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.subs[id] = entry
	s.mu.Unlock()

	common.SubscriptionsActive.WithLabelValues(s.nodes.Network().Name).Inc()

	go s.poll(subCtx, id, entry, parsed, topic0, header.Number+1)

	s.log.WithFields(logrus.Fields{
		"subscription": id,
		"contract":     contract.Hex(),
		"events":       names,
		"from_block":   header.Number + 1,
	}).Info("Subscription started")

	return &Subscription{
		ID:       id,
		Contract: contract,
		Events:   entry.events,
	}, nil
}

func (s *subscriptionSet) unsubscribe(id string) error {
	s.mu.Lock()
	entry, ok := s.subs[id]

	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrUnknownSubscription
	}

	entry.cancel()
	<-entry.done

	common.SubscriptionsActive.WithLabelValues(s.nodes.Network().Name).Dec()

	s.log.WithField("subscription", id).Info("Subscription stopped")

	return nil
}

func (s *subscriptionSet) closeAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.subs))

	for id := range s.subs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.unsubscribe(id); err != nil {
			s.log.WithError(err).WithField("subscription", id).Warn("Failed to stop subscription")
		}
	}
}

// poll advances the subscription's block cursor, fetching and decoding
// logs in [cursor, latest] each interval. RPC failures skip the tick and
// leave the cursor untouched, so no block range is ever silently dropped.
func (s *subscriptionSet) poll(ctx context.Context, id string, entry *subscriptionEntry, parsed abi.ABI, topic0 []chaincommon.Hash, cursor uint64) {
	defer close(entry.done)
	defer close(entry.events)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		node := s.nodes.GetHealthyNode()
		if node == nil {
			continue
		}

		header, err := node.LatestHeader(ctx)
		if err != nil || header.Number < cursor {
			continue
		}

		filter := ethereum.LogFilter{
			FromBlock: new(big.Int).SetUint64(cursor),
			ToBlock:   new(big.Int).SetUint64(header.Number),
			Addresses: []chaincommon.Address{entry.contract},
		}

		if len(topic0) > 0 {
			filter.Topics = [][]chaincommon.Hash{topic0}
		}

		logs, err := node.FilterLogs(ctx, filter)
		if err != nil {
			s.log.WithError(err).WithField("subscription", id).Warn("Event poll failed")

			continue
		}

		for _, event := range contracts.DecodeLogs(parsed, logs) {
			select {
			case entry.events <- event:
			default:
				s.log.WithFields(logrus.Fields{
					"subscription": id,
					"event":        event.Name,
				}).Warn("Subscriber too slow, dropping event")
			}
		}

		cursor = header.Number + 1
	}
}
