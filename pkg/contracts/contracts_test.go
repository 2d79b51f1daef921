package contracts

import (
	"context"
	"math/big"
	"testing"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

var (
	nftAddress    = chaincommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	marketAddress = chaincommon.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

// fakeNode stubs the read-only calls the bindings use. Everything else
// panics via the embedded nil interface.
type fakeNode struct {
	ethereum.Node

	callFn   func(msg ethereum.CallMsg) ([]byte, error)
	filterFn func(q ethereum.LogFilter) ([]types.Log, error)
}

func (f *fakeNode) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return f.callFn(msg)
}

func (f *fakeNode) FilterLogs(ctx context.Context, q ethereum.LogFilter) ([]types.Log, error) {
	return f.filterFn(q)
}

type fakeSource struct {
	node ethereum.Node
}

func (f *fakeSource) GetHealthyNode() ethereum.Node { return f.node }
func (f *fakeSource) Network() *ethereum.Network {
	return &ethereum.Network{Name: "localhost", ChainID: 31337}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func mintedLog(contract chaincommon.Address, tokenID int64) *types.Log {
	return &types.Log{
		Address: contract,
		Topics: []chaincommon.Hash{
			ArtNFTABI.Events["ArtworkMinted"].ID,
			chaincommon.BigToHash(big.NewInt(tokenID)),
			chaincommon.HexToHash("0x01"), // creator
			chaincommon.HexToHash("0x02"), // owner
		},
	}
}

func TestExtractTokenIDIgnoresLogPosition(t *testing.T) {
	topic0 := ArtNFTABI.Events["ArtworkMinted"].ID

	// Marketplace and royalty hook events precede the mint event, and a
	// different contract emits the same signature.
	logs := []*types.Log{
		{Address: marketAddress, Topics: []chaincommon.Hash{chaincommon.HexToHash("0xaa")}},
		{Address: marketAddress, Topics: []chaincommon.Hash{topic0, chaincommon.BigToHash(big.NewInt(999))}},
		mintedLog(nftAddress, 42),
	}

	tokenID, err := extractEventTopic(nftAddress, topic0, logs)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tokenID.Int64())
}

func TestExtractTokenIDAbsentEvent(t *testing.T) {
	logs := []*types.Log{
		{Address: nftAddress, Topics: []chaincommon.Hash{chaincommon.HexToHash("0xaa")}},
	}

	_, err := extractEventTopic(nftAddress, ArtNFTABI.Events["ArtworkMinted"].ID, logs)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestExtractTokenIDMalformedTopics(t *testing.T) {
	logs := []*types.Log{
		{Address: nftAddress, Topics: []chaincommon.Hash{ArtNFTABI.Events["ArtworkMinted"].ID}},
	}

	_, err := extractEventTopic(nftAddress, ArtNFTABI.Events["ArtworkMinted"].ID, logs)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDecodeLogsArtworkMinted(t *testing.T) {
	data, err := ArtNFTABI.Events["ArtworkMinted"].Inputs.NonIndexed().Pack("ipfs://metadata")
	require.NoError(t, err)

	creator := chaincommon.HexToAddress("0x000000000000000000000000000000000000bEEF")

	entry := types.Log{
		Address: nftAddress,
		Topics: []chaincommon.Hash{
			ArtNFTABI.Events["ArtworkMinted"].ID,
			chaincommon.BigToHash(big.NewInt(7)),
			chaincommon.BytesToHash(creator.Bytes()),
			chaincommon.BytesToHash(creator.Bytes()),
		},
		Data:        data,
		BlockNumber: 100,
		TxHash:      chaincommon.HexToHash("0x0c"),
		Index:       3,
	}

	events := DecodeLogs(ArtNFTABI, []types.Log{entry})
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "ArtworkMinted", event.Name)
	assert.Equal(t, nftAddress, event.Contract)
	assert.Equal(t, uint64(100), event.BlockNumber)
	assert.Equal(t, uint(3), event.LogIndex)
	assert.Equal(t, "ipfs://metadata", event.Args["metadataURI"])
	assert.Equal(t, big.NewInt(7), event.Args["tokenId"])
	assert.Equal(t, creator, event.Args["creator"])
}

func TestDecodeLogsSkipsUnknownEvents(t *testing.T) {
	logs := []types.Log{
		{Address: nftAddress, Topics: []chaincommon.Hash{chaincommon.HexToHash("0xdead")}},
		{Address: nftAddress},
	}

	assert.Empty(t, DecodeLogs(ArtNFTABI, logs))
}

func TestMintingFee(t *testing.T) {
	fee := big.NewInt(10_000_000_000_000_000) // 0.01 ether

	node := &fakeNode{
		callFn: func(msg ethereum.CallMsg) ([]byte, error) {
			require.Equal(t, nftAddress, *msg.To)
			require.Equal(t, ArtNFTABI.Methods["mintingFee"].ID, msg.Data[:4])

			return ArtNFTABI.Methods["mintingFee"].Outputs.Pack(fee)
		},
	}

	nft := NewArtNFT(testLogger(), nftAddress, &fakeSource{node: node}, nil)

	got, err := nft.MintingFee(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(fee))
}

func TestCallEmptyResult(t *testing.T) {
	node := &fakeNode{
		callFn: func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, nil
		},
	}

	nft := NewArtNFT(testLogger(), nftAddress, &fakeSource{node: node}, nil)

	_, err := nft.MintingFee(context.Background())
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestCallNotConnected(t *testing.T) {
	nft := NewArtNFT(testLogger(), nftAddress, &fakeSource{}, nil)

	_, err := nft.MintingFee(context.Background())
	assert.ErrorIs(t, err, ethereum.ErrNotConnected)
}

func TestGetListingDecode(t *testing.T) {
	seller := chaincommon.HexToAddress("0x000000000000000000000000000000000000cAfE")
	bidder := chaincommon.HexToAddress("0x000000000000000000000000000000000000bEEF")

	node := &fakeNode{
		callFn: func(msg ethereum.CallMsg) ([]byte, error) {
			return MarketplaceABI.Methods["getListing"].Outputs.Pack(
				seller,
				nftAddress,
				big.NewInt(7),
				big.NewInt(1_000_000),
				true,
				big.NewInt(1_700_000_000),
				bidder,
				big.NewInt(2_000_000),
				true,
			)
		},
	}

	market := NewMarketplace(testLogger(), marketAddress, &fakeSource{node: node}, nil)

	listing, err := market.GetListing(context.Background(), big.NewInt(5))
	require.NoError(t, err)

	assert.Equal(t, int64(5), listing.ListingID.Int64())
	assert.Equal(t, seller, listing.Seller)
	assert.Equal(t, nftAddress, listing.NFTContract)
	assert.Equal(t, int64(7), listing.TokenID.Int64())
	assert.Equal(t, int64(1_000_000), listing.Price.Int64())
	assert.True(t, listing.IsAuction)
	assert.Equal(t, bidder, listing.HighestBidder)
	assert.Equal(t, int64(2_000_000), listing.HighestBid.Int64())
	assert.True(t, listing.Active)
}

func TestGetActiveListings(t *testing.T) {
	node := &fakeNode{
		callFn: func(msg ethereum.CallMsg) ([]byte, error) {
			return MarketplaceABI.Methods["getActiveListings"].Outputs.Pack(
				[]*big.Int{big.NewInt(1), big.NewInt(3), big.NewInt(8)},
			)
		},
	}

	market := NewMarketplace(testLogger(), marketAddress, &fakeSource{node: node}, nil)

	ids, err := market.GetActiveListings(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, int64(3), ids[1].Int64())
}

func TestFilterEventsTopicsAndAddress(t *testing.T) {
	var captured ethereum.LogFilter

	node := &fakeNode{
		filterFn: func(q ethereum.LogFilter) ([]types.Log, error) {
			captured = q

			return nil, nil
		},
	}

	nft := NewArtNFT(testLogger(), nftAddress, &fakeSource{node: node}, nil)

	_, err := nft.Events(context.Background(), big.NewInt(10), big.NewInt(20), "ArtworkMinted")
	require.NoError(t, err)

	assert.Equal(t, []chaincommon.Address{nftAddress}, captured.Addresses)
	require.Len(t, captured.Topics, 1)
	assert.Equal(t, []chaincommon.Hash{ArtNFTABI.Events["ArtworkMinted"].ID}, captured.Topics[0])
	assert.Equal(t, int64(10), captured.FromBlock.Int64())
	assert.Equal(t, int64(20), captured.ToBlock.Int64())
}

func TestFilterEventsUnknownName(t *testing.T) {
	nft := NewArtNFT(testLogger(), nftAddress, &fakeSource{node: &fakeNode{}}, nil)

	_, err := nft.Events(context.Background(), nil, nil, "NoSuchEvent")
	assert.Error(t, err)
}
