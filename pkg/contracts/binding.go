package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"

	"github.com/artchain-labs/nft-broker/pkg/common"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

var (
	// ErrEventNotFound means a transaction confirmed but its receipt does
	// not carry the event the caller needs to decode the outcome.
	ErrEventNotFound = errors.New("expected contract event not found in receipt")

	// ErrEmptyResult means eth_call returned no data, usually because the
	// target address holds no code on this network.
	ErrEmptyResult = errors.New("empty result from contract call")
)

// Transactor executes state-changing transactions. Implemented by
// txmgr.Manager.
type Transactor interface {
	EstimateGas(ctx context.Context, from chaincommon.Address, to *chaincommon.Address, data []byte, value *big.Int) (*txmgr.GasEstimate, error)
	Execute(ctx context.Context, intent txmgr.Intent, privateKey string) (*txmgr.SignedTx, error)
	AwaitConfirmation(ctx context.Context, hash chaincommon.Hash, timeout time.Duration) (*types.Receipt, error)
}

// binding is the shared machinery under each contract wrapper: packing,
// eth_call reads, write dispatch via the transaction manager and log
// filtering.
type binding struct {
	name    string
	abi     abi.ABI
	address chaincommon.Address
	nodes   txmgr.NodeSource
	tx      Transactor
}

// call packs method, executes it read-only at the latest block and
// returns the unpacked outputs.
func (b *binding) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	node := b.nodes.GetHealthyNode()
	if node == nil {
		return nil, ethereum.ErrNotConnected
	}

	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	out, err := node.CallContract(ctx, ethereum.CallMsg{
		To:   &b.address,
		Data: data,
	})

	b.observe(method, err)

	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrEmptyResult, method, b.address.Hex())
	}

	values, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}

	return values, nil
}

// write packs method, submits it as a transaction signed with privateKey
// and waits for the receipt. A zero timeout uses the manager's default.
func (b *binding) write(ctx context.Context, privateKey, method string, value *big.Int, args ...interface{}) (chaincommon.Hash, *types.Receipt, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return chaincommon.Hash{}, nil, fmt.Errorf("packing %s: %w", method, err)
	}

	signed, err := b.tx.Execute(ctx, txmgr.Intent{
		To:    &b.address,
		Value: value,
		Data:  data,
	}, privateKey)

	b.observe(method, err)

	if err != nil {
		return chaincommon.Hash{}, nil, err
	}

	hash := signed.Hash()

	receipt, err := b.tx.AwaitConfirmation(ctx, hash, 0)
	if err != nil {
		return hash, receipt, err
	}

	return hash, receipt, nil
}

// filterEvents fetches logs emitted by this contract over the block range
// and decodes those matching the named events. Empty names selects every
// event in the ABI.
func (b *binding) filterEvents(ctx context.Context, fromBlock, toBlock *big.Int, names ...string) ([]ContractEvent, error) {
	node := b.nodes.GetHealthyNode()
	if node == nil {
		return nil, ethereum.ErrNotConnected
	}

	var topic0 []chaincommon.Hash

	for _, name := range names {
		event, ok := b.abi.Events[name]
		if !ok {
			return nil, fmt.Errorf("unknown event %q on %s", name, b.name)
		}

		topic0 = append(topic0, event.ID)
	}

	filter := ethereum.LogFilter{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []chaincommon.Address{b.address},
	}

	if len(topic0) > 0 {
		filter.Topics = [][]chaincommon.Hash{topic0}
	}

	logs, err := node.FilterLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("filtering %s logs: %w", b.name, err)
	}

	return DecodeLogs(b.abi, logs), nil
}

func (b *binding) observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	common.ContractCallsTotal.WithLabelValues(b.nodes.Network().Name, b.name, operation, status).Inc()
}
