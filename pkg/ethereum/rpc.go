package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/0xsequence/ethkit/ethrpc"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/common/hexutil"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"

	"github.com/artchain-labs/nft-broker/pkg/common"
)

const (
	STATUS_ERROR   = "error"
	STATUS_SUCCESS = "success"
)

// poaHeader decodes only the header fields the broker needs. Chains that
// run proof-of-authority produce headers that fail strict block
// deserialization, so block reads on those networks go through this shim.
type poaHeader struct {
	Number    hexutil.Uint64   `json:"number"`
	Timestamp hexutil.Uint64   `json:"timestamp"`
	Hash      chaincommon.Hash `json:"hash"`
}

func (n *RPCNode) observe(method string, start time.Time, err error) {
	status := STATUS_SUCCESS
	if err != nil {
		status = STATUS_ERROR
	}

	chainID := fmt.Sprintf("%d", n.network.ChainID)

	common.RPCCallDuration.WithLabelValues(chainID, n.endpoint.Name, method, status).Observe(time.Since(start).Seconds())
	common.RPCCallsTotal.WithLabelValues(chainID, n.endpoint.Name, method, status).Inc()
}

func (n *RPCNode) fetchChainID(ctx context.Context) (int64, error) {
	var chainID hexutil.Big

	call := ethrpc.NewCallBuilder[hexutil.Big]("eth_chainId", nil)

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&chainID))
	n.observe("eth_chainId", start, err)

	if err != nil {
		return 0, err
	}

	return (*big.Int)(&chainID).Int64(), nil
}

func (n *RPCNode) clientVersion(ctx context.Context) (string, error) {
	var version string

	call := ethrpc.NewCallBuilder[string]("web3_clientVersion", nil)

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&version))
	n.observe("web3_clientVersion", start, err)

	if err != nil {
		return "", err
	}

	return version, nil
}

// Ping probes the endpoint. It intentionally skips the connected guard so
// it can double as the liveness check behind IsConnected.
func (n *RPCNode) Ping(ctx context.Context) error {
	var blockNumber uint64

	start := time.Now()
	_, err := n.rpc.Do(ctx, ethrpc.BlockNumber().Into(&blockNumber))
	n.observe("eth_blockNumber", start, err)

	return err
}

func (n *RPCNode) LatestHeader(ctx context.Context) (*HeaderInfo, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	if n.network.PoA {
		var header poaHeader

		call := ethrpc.NewCallBuilder[poaHeader]("eth_getBlockByNumber", nil, "latest", false)

		start := time.Now()
		_, err := n.rpc.Do(ctx, call.Into(&header))
		n.observe("eth_getBlockByNumber", start, err)

		if err != nil {
			return nil, err
		}

		return &HeaderInfo{
			Number:    uint64(header.Number),
			Timestamp: uint64(header.Timestamp),
			Hash:      header.Hash,
		}, nil
	}

	var blockNumber uint64

	start := time.Now()
	_, err := n.rpc.Do(ctx, ethrpc.BlockNumber().Into(&blockNumber))
	n.observe("eth_blockNumber", start, err)

	if err != nil {
		return nil, err
	}

	var block *types.Block

	start = time.Now()
	_, err = n.rpc.Do(ctx, ethrpc.BlockByNumber(new(big.Int).SetUint64(blockNumber)).Into(&block))
	n.observe("eth_getBlockByNumber", start, err)

	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		Number:    block.NumberU64(),
		Timestamp: block.Time(),
		Hash:      block.Hash(),
	}, nil
}

func (n *RPCNode) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	var price hexutil.Big

	call := ethrpc.NewCallBuilder[hexutil.Big]("eth_gasPrice", nil)

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&price))
	n.observe("eth_gasPrice", start, err)

	if err != nil {
		return nil, err
	}

	return (*big.Int)(&price), nil
}

func (n *RPCNode) observeGasPrice(ctx context.Context) {
	price, err := n.GasPrice(ctx)
	if err != nil {
		return
	}

	value, _ := new(big.Float).SetInt(price).Float64()
	common.GasPriceGauge.WithLabelValues(n.network.Name).Set(value)
}

func (n *RPCNode) BalanceAt(ctx context.Context, address chaincommon.Address) (*big.Int, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	var balance hexutil.Big

	call := ethrpc.NewCallBuilder[hexutil.Big]("eth_getBalance", nil, address.Hex(), "latest")

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&balance))
	n.observe("eth_getBalance", start, err)

	if err != nil {
		return nil, err
	}

	return (*big.Int)(&balance), nil
}

func (n *RPCNode) PendingNonceAt(ctx context.Context, address chaincommon.Address) (uint64, error) {
	if err := n.guard(); err != nil {
		return 0, err
	}

	var nonce hexutil.Uint64

	call := ethrpc.NewCallBuilder[hexutil.Uint64]("eth_getTransactionCount", nil, address.Hex(), "pending")

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&nonce))
	n.observe("eth_getTransactionCount", start, err)

	if err != nil {
		return 0, err
	}

	return uint64(nonce), nil
}

func (n *RPCNode) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	if err := n.guard(); err != nil {
		return 0, err
	}

	var gas hexutil.Uint64

	call := ethrpc.NewCallBuilder[hexutil.Uint64]("eth_estimateGas", nil, callArg(msg))

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&gas))
	n.observe("eth_estimateGas", start, err)

	if err != nil {
		return 0, err
	}

	return uint64(gas), nil
}

func (n *RPCNode) SendRawTransaction(ctx context.Context, raw []byte) (chaincommon.Hash, error) {
	if err := n.guard(); err != nil {
		return chaincommon.Hash{}, err
	}

	var hash chaincommon.Hash

	call := ethrpc.NewCallBuilder[chaincommon.Hash]("eth_sendRawTransaction", nil, hexutil.Encode(raw))

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&hash))
	n.observe("eth_sendRawTransaction", start, err)

	if err != nil {
		return chaincommon.Hash{}, err
	}

	return hash, nil
}

func (n *RPCNode) TransactionReceipt(ctx context.Context, hash chaincommon.Hash) (*types.Receipt, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	var receipt *types.Receipt

	call := ethrpc.NewCallBuilder[*types.Receipt]("eth_getTransactionReceipt", nil, hash.Hex())

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&receipt))
	n.observe("eth_getTransactionReceipt", start, err)

	if err != nil {
		return nil, err
	}

	// A null result means the transaction is still pending.
	return receipt, nil
}

func (n *RPCNode) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	var result hexutil.Bytes

	call := ethrpc.NewCallBuilder[hexutil.Bytes]("eth_call", nil, callArg(msg), "latest")

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&result))
	n.observe("eth_call", start, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (n *RPCNode) FilterLogs(ctx context.Context, q LogFilter) ([]types.Log, error) {
	if err := n.guard(); err != nil {
		return nil, err
	}

	var logs []types.Log

	call := ethrpc.NewCallBuilder[[]types.Log]("eth_getLogs", nil, filterArg(q))

	start := time.Now()
	_, err := n.rpc.Do(ctx, call.Into(&logs))
	n.observe("eth_getLogs", start, err)

	if err != nil {
		return nil, err
	}

	return logs, nil
}

func callArg(msg CallMsg) map[string]any {
	arg := map[string]any{
		"from": msg.From.Hex(),
	}

	if msg.To != nil {
		arg["to"] = msg.To.Hex()
	}

	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Encode(msg.Data)
	}

	if msg.Value != nil && msg.Value.Sign() > 0 {
		arg["value"] = hexutil.EncodeBig(msg.Value)
	}

	return arg
}

func filterArg(q LogFilter) map[string]any {
	arg := map[string]any{}

	if q.FromBlock != nil {
		arg["fromBlock"] = hexutil.EncodeBig(q.FromBlock)
	}

	if q.ToBlock != nil {
		arg["toBlock"] = hexutil.EncodeBig(q.ToBlock)
	} else {
		arg["toBlock"] = "latest"
	}

	if len(q.Addresses) > 0 {
		arg["address"] = q.Addresses
	}

	if len(q.Topics) > 0 {
		arg["topics"] = q.Topics
	}

	return arg
}
