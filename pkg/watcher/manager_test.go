package watcher

import (
	"context"
	"errors"
	"math/big"
	"testing"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchain-labs/nft-broker/internal/testutil"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

var nftAddress = chaincommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type fakeNode struct {
	ethereum.Node

	receiptFn func(hash chaincommon.Hash) (*types.Receipt, error)
}

func (f *fakeNode) TransactionReceipt(ctx context.Context, hash chaincommon.Hash) (*types.Receipt, error) {
	return f.receiptFn(hash)
}

type fakeSource struct {
	node ethereum.Node
}

func (f *fakeSource) GetHealthyNode() ethereum.Node { return f.node }
func (f *fakeSource) Network() *ethereum.Network {
	return &ethereum.Network{Name: "localhost", ChainID: 31337}
}

type fakeSink struct {
	network string
	events  []contracts.ContractEvent
	err     error
}

func (f *fakeSink) InsertEvents(ctx context.Context, network string, events []contracts.ContractEvent) error {
	f.network = network
	f.events = append(f.events, events...)

	return f.err
}

func newTestManager(t *testing.T, node ethereum.Node, sink EventSink) *Manager {
	t.Helper()

	client, _ := testutil.NewMiniredisClient(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	manager, err := NewManager(log, &Config{Concurrency: 1, Queue: "archive"}, client, &fakeSource{node: node}, sink)
	require.NoError(t, err)

	return manager
}

func mintedLog(tokenID int64) *types.Log {
	return &types.Log{
		Address: nftAddress,
		Topics: []chaincommon.Hash{
			contracts.ArtNFTABI.Events["ArtworkMinted"].ID,
			chaincommon.BigToHash(big.NewInt(tokenID)),
			chaincommon.HexToHash("0x01"),
			chaincommon.HexToHash("0x02"),
		},
		Data: mustPackMetadataURI("ipfs://metadata"),
	}
}

func mustPackMetadataURI(uri string) []byte {
	data, err := contracts.ArtNFTABI.Events["ArtworkMinted"].Inputs.NonIndexed().Pack(uri)
	if err != nil {
		panic(err)
	}

	return data
}

func archiveTask(t *testing.T, hash chaincommon.Hash) *asynq.Task {
	t.Helper()

	task, err := NewArchiveTask(&ArchivePayload{TxHash: hash.Hex(), Network: "localhost"})
	require.NoError(t, err)

	return task
}

func TestHandleArchiveTaskDecodesAndInserts(t *testing.T) {
	hash := chaincommon.HexToHash("0x01")

	node := &fakeNode{
		receiptFn: func(h chaincommon.Hash) (*types.Receipt, error) {
			require.Equal(t, hash, h)

			return &types.Receipt{
				TxHash: h,
				Status: types.ReceiptStatusSuccessful,
				Logs: []*types.Log{
					{Address: nftAddress, Topics: []chaincommon.Hash{chaincommon.HexToHash("0xaa")}},
					mintedLog(42),
				},
			}, nil
		},
	}

	sink := &fakeSink{}
	manager := newTestManager(t, node, sink)

	err := manager.handleArchiveTask(context.Background(), archiveTask(t, hash))
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "localhost", sink.network)
	assert.Equal(t, "ArtworkMinted", sink.events[0].Name)
	assert.Equal(t, big.NewInt(42), sink.events[0].Args["tokenId"])
}

func TestHandleArchiveTaskPendingReceiptRetries(t *testing.T) {
	node := &fakeNode{
		receiptFn: func(h chaincommon.Hash) (*types.Receipt, error) {
			return nil, nil
		},
	}

	manager := newTestManager(t, node, &fakeSink{})

	err := manager.handleArchiveTask(context.Background(), archiveTask(t, chaincommon.HexToHash("0x02")))
	assert.Error(t, err, "a pending receipt must surface an error so asynq retries")
}

func TestHandleArchiveTaskNoRecognizableEvents(t *testing.T) {
	node := &fakeNode{
		receiptFn: func(h chaincommon.Hash) (*types.Receipt, error) {
			return &types.Receipt{TxHash: h, Status: types.ReceiptStatusSuccessful}, nil
		},
	}

	sink := &fakeSink{}
	manager := newTestManager(t, node, sink)

	err := manager.handleArchiveTask(context.Background(), archiveTask(t, chaincommon.HexToHash("0x03")))
	require.NoError(t, err)
	assert.Empty(t, sink.events)
}

func TestHandleArchiveTaskSinkFailurePropagates(t *testing.T) {
	node := &fakeNode{
		receiptFn: func(h chaincommon.Hash) (*types.Receipt, error) {
			return &types.Receipt{
				TxHash: h,
				Status: types.ReceiptStatusSuccessful,
				Logs:   []*types.Log{mintedLog(1)},
			}, nil
		},
	}

	sink := &fakeSink{err: errors.New("archive unavailable")}
	manager := newTestManager(t, node, sink)

	err := manager.handleArchiveTask(context.Background(), archiveTask(t, chaincommon.HexToHash("0x04")))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{Queue: "archive"}).Validate())
	assert.Error(t, (&Config{Concurrency: 1}).Validate())
	assert.NoError(t, (&Config{Concurrency: 1, Queue: "archive"}).Validate())
}
