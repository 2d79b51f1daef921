package broker

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchain-labs/nft-broker/internal/testutil"
	"github.com/artchain-labs/nft-broker/pkg/codec"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/journal"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

// Dev key from the standard hardhat account set.
const (
	minterKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	nftAddrHex = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

// chainNode simulates a single-node development chain: it accepts
// correctly priced mint transactions and produces receipts carrying the
// mint event.
type chainNode struct {
	mu sync.Mutex

	nftAddress  chaincommon.Address
	mintingFee  *big.Int
	nextTokenID int64
	nonce       uint64
	blockNumber uint64
	receipts    map[chaincommon.Hash]*types.Receipt
	balances    map[chaincommon.Address]*big.Int

	onReady func(ctx context.Context) error
}

func newChainNode() *chainNode {
	return &chainNode{
		nftAddress:  chaincommon.HexToAddress(nftAddrHex),
		mintingFee:  big.NewInt(10_000_000_000_000_000), // 0.01 ether
		nextTokenID: 42,
		blockNumber: 100,
		receipts:    map[chaincommon.Hash]*types.Receipt{},
		balances:    map[chaincommon.Address]*big.Int{},
	}
}

func (n *chainNode) Start(ctx context.Context) error {
	if n.onReady != nil {
		return n.onReady(ctx)
	}

	return nil
}

func (n *chainNode) Stop(ctx context.Context) error { return nil }

func (n *chainNode) OnReady(ctx context.Context, callback func(ctx context.Context) error) {
	n.onReady = callback
}

func (n *chainNode) Name() string                   { return "devchain" }
func (n *chainNode) ChainID() int64                 { return 31337 }
func (n *chainNode) IsSynced() bool                 { return true }
func (n *chainNode) Ping(ctx context.Context) error { return nil }

func (n *chainNode) LatestHeader(ctx context.Context) (*ethereum.HeaderInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return &ethereum.HeaderInfo{Number: n.blockNumber, Timestamp: uint64(time.Now().Unix())}, nil
}

func (n *chainNode) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (n *chainNode) BalanceAt(ctx context.Context, address chaincommon.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if balance, ok := n.balances[address]; ok {
		return new(big.Int).Set(balance), nil
	}

	return new(big.Int), nil
}

func (n *chainNode) PendingNonceAt(ctx context.Context, address chaincommon.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.nonce, nil
}

func (n *chainNode) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 300000, nil
}

func (n *chainNode) SendRawTransaction(ctx context.Context, raw []byte) (chaincommon.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return chaincommon.Hash{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if tx.Nonce() != n.nonce {
		return chaincommon.Hash{}, assert.AnError
	}

	n.nonce++
	n.blockNumber++

	receipt := &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: new(big.Int).SetUint64(n.blockNumber),
		GasUsed:     tx.Gas() / 2,
	}

	// A mint call emits ArtworkMinted, surrounded by unrelated events the
	// way a proxy or hook would emit them.
	if tx.To() != nil && *tx.To() == n.nftAddress && isMintCall(tx.Data()) {
		if tx.Value().Cmp(n.mintingFee) != 0 {
			return chaincommon.Hash{}, assert.AnError
		}

		receipt.Logs = []*types.Log{
			{Address: n.nftAddress, Topics: []chaincommon.Hash{chaincommon.HexToHash("0xaa")}},
			{
				Address: n.nftAddress,
				Topics: []chaincommon.Hash{
					contracts.ArtNFTABI.Events["ArtworkMinted"].ID,
					chaincommon.BigToHash(big.NewInt(n.nextTokenID)),
					chaincommon.HexToHash("0x01"),
					chaincommon.HexToHash("0x02"),
				},
			},
		}
		n.nextTokenID++
	}

	n.receipts[tx.Hash()] = receipt

	return tx.Hash(), nil
}

func isMintCall(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], contracts.ArtNFTABI.Methods["mintArtwork"].ID)
}

func (n *chainNode) TransactionReceipt(ctx context.Context, hash chaincommon.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.receipts[hash], nil
}

func (n *chainNode) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if msg.To != nil && *msg.To == n.nftAddress &&
		len(msg.Data) >= 4 && bytes.Equal(msg.Data[:4], contracts.ArtNFTABI.Methods["mintingFee"].ID) {
		return contracts.ArtNFTABI.Methods["mintingFee"].Outputs.Pack(n.mintingFee)
	}

	return nil, nil
}

func (n *chainNode) FilterLogs(ctx context.Context, q ethereum.LogFilter) ([]types.Log, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var logs []types.Log

	for _, receipt := range n.receipts {
		for _, entry := range receipt.Logs {
			if len(q.Addresses) > 0 && entry.Address != q.Addresses[0] {
				continue
			}

			logs = append(logs, *entry)
		}
	}

	return logs, nil
}

type fakeArchiver struct {
	mu     sync.Mutex
	hashes []chaincommon.Hash
}

func (f *fakeArchiver) EnqueueArchive(ctx context.Context, hash chaincommon.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hashes = append(f.hashes, hash)

	return nil
}

func newTestService(t *testing.T, node *chainNode) (*Service, *journal.Journal, *fakeArchiver) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	network, err := ethereum.GetNetworkByName("localhost")
	require.NoError(t, err)

	pool := ethereum.NewPoolWithNodes(log, network, []ethereum.Node{node})

	txManager, err := txmgr.NewManager(log, &txmgr.Config{
		ConfirmationTimeout: 2 * time.Second,
		PollInterval:        10 * time.Millisecond,
		SubmitRetries:       2,
	}, pool)
	require.NoError(t, err)

	redisClient, _ := testutil.NewMiniredisClient(t)
	jrnl := journal.NewJournal(log, redisClient, "test", time.Hour)
	archiver := &fakeArchiver{}

	service, err := NewService(log, &Config{
		NFTContract:              nftAddrHex,
		MarketplaceContract:      "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		SubscriptionPollInterval: 10 * time.Millisecond,
		SubscriptionBuffer:       16,
	}, pool, txManager, jrnl, archiver)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, service.Connect(ctx))

	t.Cleanup(func() {
		_ = service.Close(context.Background())
	})

	return service, jrnl, archiver
}

func TestMintNFTEndToEnd(t *testing.T) {
	node := newChainNode()
	service, jrnl, archiver := newTestService(t, node)

	require.True(t, service.IsConnected())

	result, err := service.MintNFT(context.Background(), minterKey,
		"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", NFTMetadata{
			Title:       "Sunset",
			Description: "Oil on canvas",
			ImageURI:    "ipfs://image",
			MetadataURI: "ipfs://metadata",
			RoyaltyBps:  500,
		})
	require.NoError(t, err)

	assert.Equal(t, int64(42), result.TokenID.Int64())
	assert.Equal(t, result.TxHash, result.Receipt.TxHash, "returned hash matches the submitted transaction")
	assert.Equal(t, uint64(types.ReceiptStatusSuccessful), result.Receipt.Status)

	// The confirmed mint is journaled and queued for archival.
	entry, err := jrnl.Get(context.Background(), result.TxHash)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusConfirmed, entry.Status)

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	assert.Contains(t, archiver.hashes, result.TxHash)
}

func TestGetBalanceZeroForFreshAddress(t *testing.T) {
	service, _, _ := newTestService(t, newChainNode())

	amount, err := service.GetBalance(context.Background(), "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	service, _, _ := newTestService(t, newChainNode())

	_, err := service.GetBalance(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, codec.ErrInvalidAddress)
}

func TestSendTransactionJournalsSubmission(t *testing.T) {
	node := newChainNode()
	service, jrnl, _ := newTestService(t, node)

	hash, err := service.SendTransaction(context.Background(), SendRequest{
		To:         "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		ValueWei:   big.NewInt(1000),
		PrivateKey: minterKey,
	})
	require.NoError(t, err)

	entry, err := jrnl.Get(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusSubmitted, entry.Status)
	assert.Equal(t, "localhost", entry.Network)

	receipt, err := service.WaitForConfirmation(context.Background(), hash.Hex(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	entry, err = jrnl.Get(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusConfirmed, entry.Status)
}

func TestNetworkInfo(t *testing.T) {
	service, _, _ := newTestService(t, newChainNode())

	info, err := service.NetworkInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "localhost", info.Network)
	assert.Equal(t, int64(31337), info.ChainID)
	assert.NotZero(t, info.LatestBlock)
	assert.NotNil(t, info.GasPrice)
}

func TestWalletRoundTrip(t *testing.T) {
	service, _, _ := newTestService(t, newChainNode())

	address, privateKey, err := service.CreateWallet()
	require.NoError(t, err)

	imported, err := service.ImportWallet(privateKey)
	require.NoError(t, err)
	assert.Equal(t, address, imported)
}

func TestUnsubscribeUnknown(t *testing.T) {
	service, _, _ := newTestService(t, newChainNode())

	err := service.UnsubscribeFromEvents("no-such-id")
	assert.ErrorIs(t, err, ErrUnknownSubscription)
}

func TestSubscriptionDeliversEvents(t *testing.T) {
	node := newChainNode()
	service, _, _ := newTestService(t, node)

	sub, err := service.SubscribeToEvents(context.Background(), nftAddrHex, "ArtworkMinted")
	require.NoError(t, err)

	_, err = service.MintNFT(context.Background(), minterKey,
		"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", NFTMetadata{Title: "Sunset", RoyaltyBps: 500})
	require.NoError(t, err)

	select {
	case event := <-sub.Events:
		assert.Equal(t, "ArtworkMinted", event.Name)
		assert.Equal(t, big.NewInt(42), event.Args["tokenId"])
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not deliver the mint event")
	}

	require.NoError(t, service.UnsubscribeFromEvents(sub.ID))

	_, open := <-sub.Events
	assert.False(t, open, "events channel is closed after unsubscribe")
}

func TestMintWithoutContractConfigured(t *testing.T) {
	node := newChainNode()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	network, err := ethereum.GetNetworkByName("localhost")
	require.NoError(t, err)

	pool := ethereum.NewPoolWithNodes(log, network, []ethereum.Node{node})

	txManager, err := txmgr.NewManager(log, &txmgr.Config{
		ConfirmationTimeout: time.Second,
		PollInterval:        10 * time.Millisecond,
	}, pool)
	require.NoError(t, err)

	service, err := NewService(log, &Config{
		SubscriptionPollInterval: time.Second,
		SubscriptionBuffer:       1,
	}, pool, txManager, nil, nil)
	require.NoError(t, err)

	_, err = service.MintNFT(context.Background(), minterKey, nftAddrHex, NFTMetadata{})
	assert.ErrorIs(t, err, ErrContractNotConfigured)
}
