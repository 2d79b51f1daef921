package ethereum

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Pool tracks the healthy endpoints of a single network. Once started it
// is read-mostly; switching networks requires a new pool.
type Pool struct {
	log     logrus.FieldLogger
	network *Network
	nodes   []Node

	mu           sync.RWMutex
	healthyNodes map[Node]bool

	cancel context.CancelFunc
}

// NewPool creates a pool from configuration. Endpoints default to the
// network's public RPC when none are configured.
func NewPool(log logrus.FieldLogger, config *Config) (*Pool, error) {
	network, err := GetNetworkByName(config.Network)
	if err != nil {
		return nil, err
	}

	endpoints, err := config.ResolvedEndpoints()
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(endpoints))
	for _, endpoint := range endpoints {
		nodes = append(nodes, NewRPCNode(log, network, endpoint))
	}

	return NewPoolWithNodes(log, network, nodes), nil
}

// NewPoolWithNodes creates a pool with pre-created Node implementations.
func NewPoolWithNodes(log logrus.FieldLogger, network *Network, nodes []Node) *Pool {
	return &Pool{
		log:          log.WithField("network", network.Name),
		network:      network,
		nodes:        nodes,
		healthyNodes: make(map[Node]bool, len(nodes)),
	}
}

// Network returns the network this pool serves.
func (p *Pool) Network() *Network {
	return p.network
}

func (p *Pool) HasHealthyNode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, isHealthy := range p.healthyNodes {
		if isHealthy {
			return true
		}
	}

	return false
}

// GetHealthyNode returns a random healthy node, or nil when none is ready.
func (p *Pool) GetHealthyNode() Node {
	p.mu.RLock()
	defer p.mu.RUnlock()

	healthy := make([]Node, 0, len(p.healthyNodes))

	for node, isHealthy := range p.healthyNodes {
		if isHealthy {
			healthy = append(healthy, node)
		}
	}

	if len(healthy) == 0 {
		return nil
	}

	//nolint:gosec // selection only, not security sensitive
	return healthy[rand.IntN(len(healthy))]
}

// WaitForHealthyNode blocks until a node becomes ready or ctx ends.
func (p *Pool) WaitForHealthyNode(ctx context.Context) (Node, error) {
	if len(p.nodes) == 0 {
		return nil, ErrNotConnected
	}

	startTime := time.Now()

	for {
		if node := p.GetHealthyNode(); node != nil {
			p.log.WithField("duration", time.Since(startTime).Round(time.Millisecond)).
				Debug("Found healthy node")

			return node, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (p *Pool) Start(ctx context.Context) {
	poolCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	g := new(errgroup.Group)

	for _, node := range p.nodes {
		g.Go(func() error {
			node.OnReady(poolCtx, func(innerCtx context.Context) error {
				p.mu.Lock()
				p.healthyNodes[node] = true
				p.mu.Unlock()

				return nil
			})

			return node.Start(poolCtx)
		})
	}

	// Demote nodes that stop answering.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-poolCtx.Done():
				return
			case <-ticker.C:
				p.probeNodes(poolCtx)
			}
		}
	}()

	go func() {
		if err := g.Wait(); err != nil {
			if poolCtx.Err() != nil {
				return
			}

			p.log.WithError(err).Error("error in pool")
		}
	}()
}

func (p *Pool) probeNodes(ctx context.Context) {
	p.mu.RLock()
	tracked := make([]Node, 0, len(p.healthyNodes))

	for node := range p.healthyNodes {
		tracked = append(tracked, node)
	}
	p.mu.RUnlock()

	for _, node := range tracked {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := node.Ping(probeCtx)

		cancel()

		p.mu.Lock()
		p.healthyNodes[node] = err == nil
		p.mu.Unlock()

		if err != nil {
			p.log.WithError(err).WithField("node", node.Name()).Warn("Node failed liveness probe")
		}
	}
}

// Stop gracefully shuts down the pool.
func (p *Pool) Stop(ctx context.Context) error {
	p.log.Info("Stopping pool")

	if p.cancel != nil {
		p.cancel()
	}

	for _, node := range p.nodes {
		if err := node.Stop(ctx); err != nil {
			p.log.WithError(err).Error("Failed to stop node")
		}
	}

	return nil
}
