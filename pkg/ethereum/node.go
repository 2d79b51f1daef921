package ethereum

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xsequence/ethkit/ethrpc"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// headerTransport adds custom headers to requests and respects context cancellation
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	if req.Context().Err() != nil {
		return nil, req.Context().Err()
	}

	return t.base.RoundTrip(req)
}

// RPCNode talks to one JSON-RPC endpoint of the configured network.
type RPCNode struct {
	endpoint *EndpointConfig
	network  *Network
	log      logrus.FieldLogger
	rpc      *ethrpc.Provider

	connected atomic.Bool
	synced    atomic.Bool

	onReadyCallbacks []func(ctx context.Context) error

	scheduler *gocron.Scheduler

	mu     sync.RWMutex
	cancel context.CancelFunc
}

// NewRPCNode creates a node for one endpoint of network. The node is not
// usable until Start has verified the endpoint.
func NewRPCNode(log logrus.FieldLogger, network *Network, endpoint *EndpointConfig) *RPCNode {
	return &RPCNode{
		endpoint: endpoint,
		network:  network,
		log: log.WithFields(logrus.Fields{
			"module":  "ethereum/node",
			"network": network.Name,
			"source":  endpoint.Name,
		}),
	}
}

func (n *RPCNode) OnReady(_ context.Context, callback func(ctx context.Context) error) {
	n.onReadyCallbacks = append(n.onReadyCallbacks, callback)
}

func (n *RPCNode) Start(ctx context.Context) error {
	n.log.Info("Starting execution node")

	nodeCtx, cancel := context.WithCancel(ctx)

	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()

	// No fixed client timeout, the per-call context controls the request
	// lifecycle.
	httpClient := http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	httpClient.Transport = &headerTransport{
		headers: n.endpoint.Headers,
		base:    httpClient.Transport,
	}

	rpc, err := ethrpc.NewProvider(n.endpoint.RPCURL, ethrpc.WithHTTPClient(&httpClient))
	if err != nil {
		n.log.WithError(err).Error("Failed to create RPC provider")

		return fmt.Errorf("failed to create RPC provider for %s: %w", n.endpoint.RPCURL, err)
	}

	n.rpc = rpc

	go n.initialize(nodeCtx)

	return nil
}

// initialize verifies the endpoint with capped exponential backoff, then
// marks the node connected and fires the ready callbacks.
func (n *RPCNode) initialize(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	operation := func() error {
		chainID, err := n.fetchChainID(ctx)
		if err != nil {
			n.log.WithError(err).Warn("Failed to fetch chain ID, will retry")

			return err
		}

		if chainID != n.network.ChainID {
			// Permanent: the endpoint serves a different chain.
			return backoff.Permanent(fmt.Errorf("%w: got %d, want %d",
				ErrChainIDMismatch, chainID, n.network.ChainID))
		}

		version, err := n.clientVersion(ctx)
		if err != nil {
			n.log.WithError(err).Warn("Failed to fetch client version, will retry")

			return err
		}

		n.log.WithFields(logrus.Fields{
			"chain_id":    chainID,
			"node_ver":    version,
			"header_shim": n.network.PoA,
		}).Info("Endpoint verified")

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		n.log.WithError(err).Error("Failed to verify endpoint after retries")

		return
	}

	if err := n.updateSyncStatus(ctx); err != nil {
		n.log.WithError(err).Warn("Failed to fetch initial sync status")
	}

	n.connected.Store(true)

	if err := n.startScheduler(); err != nil {
		n.log.WithError(err).Error("Failed to start refresh scheduler")
	}

	for _, callback := range n.onReadyCallbacks {
		callbackCtx, callbackCancel := context.WithTimeout(context.Background(), 10*time.Second)

		if err := callback(callbackCtx); err != nil {
			n.log.WithError(err).Error("Failed to run on ready callback")
		}

		callbackCancel()
	}

	n.log.Info("Node initialization completed")
}

func (n *RPCNode) startScheduler() error {
	s := gocron.NewScheduler(time.Local)

	if _, err := s.Every("15s").Do(func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := n.updateSyncStatus(syncCtx); err != nil {
			n.log.WithError(err).Warn("Failed to update sync status")
		}
	}); err != nil {
		return err
	}

	if _, err := s.Every("30s").Do(func() {
		gasCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		n.observeGasPrice(gasCtx)
	}); err != nil {
		return err
	}

	s.StartAsync()

	n.mu.Lock()
	n.scheduler = s
	n.mu.Unlock()

	return nil
}

func (n *RPCNode) Stop(ctx context.Context) error {
	n.log.Info("Stopping execution node")

	n.connected.Store(false)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}

	if n.scheduler != nil {
		n.scheduler.Stop()
	}
	n.mu.Unlock()

	return nil
}

func (n *RPCNode) Name() string {
	return n.endpoint.Name
}

func (n *RPCNode) ChainID() int64 {
	return n.network.ChainID
}

func (n *RPCNode) IsSynced() bool {
	return n.synced.Load()
}

// guard fails fast when the node has not completed a successful connect.
func (n *RPCNode) guard() error {
	if !n.connected.Load() {
		return ErrNotConnected
	}

	return nil
}

func (n *RPCNode) updateSyncStatus(ctx context.Context) error {
	status, err := n.rpc.SyncProgress(ctx)
	if err != nil {
		return err
	}

	n.synced.Store(status == nil)

	return nil
}
