package ethereum

import (
	"context"
	"math/big"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
)

// Node is a single RPC endpoint on the configured network.
//
// All methods must be safe for concurrent use by multiple goroutines.
//
// Lifecycle:
//  1. Create the node with NewRPCNode
//  2. Register OnReady callbacks before calling Start
//  3. Call Start to begin initialization
//  4. The node signals readiness by executing OnReady callbacks once its
//     metadata (chain ID, client version) has been verified
//  5. Call Stop for graceful shutdown
type Node interface {
	// Start initializes the node, verifies the endpoint's chain ID against
	// the configured network and begins background metadata refresh.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the node and releases resources.
	Stop(ctx context.Context) error

	// OnReady registers a callback invoked when the node becomes ready.
	OnReady(ctx context.Context, callback func(ctx context.Context) error)

	// Name returns the configured name for this endpoint.
	Name() string

	// ChainID returns the chain ID verified at connect time.
	ChainID() int64

	// IsSynced returns true if the endpoint reports no sync in progress.
	IsSynced() bool

	// Ping performs a liveness probe against the endpoint.
	Ping(ctx context.Context) error

	// LatestHeader returns the newest block's number, timestamp and hash,
	// tolerating proof-of-authority header formats.
	LatestHeader(ctx context.Context) (*HeaderInfo, error)

	// GasPrice returns the current network gas price in wei.
	GasPrice(ctx context.Context) (*big.Int, error)

	// BalanceAt returns the latest balance of address in wei.
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)

	// PendingNonceAt returns the next nonce for address including pool
	// transactions.
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)

	// EstimateGas simulates msg and returns the gas required.
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)

	// SendRawTransaction broadcasts a signed transaction payload.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	// TransactionReceipt returns the receipt for hash, or nil while the
	// transaction is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// CallContract executes a read-only contract call at the latest block.
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)

	// FilterLogs returns logs matching the filter.
	FilterLogs(ctx context.Context, q LogFilter) ([]types.Log, error)
}
