package broker

import (
	"context"
	"errors"
	"math/big"
	"time"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"

	"github.com/artchain-labs/nft-broker/pkg/codec"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

// ErrUnknownSubscription is returned when unsubscribing an id that does
// not exist or was already removed.
var ErrUnknownSubscription = errors.New("unknown subscription id")

// NFTMetadata is the artwork descriptor recorded at mint time.
type NFTMetadata struct {
	Title       string
	Description string
	ImageURI    string
	MetadataURI string
	// RoyaltyBps is the creator royalty in basis points.
	RoyaltyBps uint16
}

// SendRequest is a plain value transfer or raw contract call. Addresses
// arrive as strings and are validated at the boundary; gas fields of zero
// or nil mean "resolve from the node".
type SendRequest struct {
	From       string
	To         string
	ValueWei   *big.Int
	PrivateKey string
	GasLimit   uint64
	GasPrice   *big.Int
	Data       []byte
}

// Broker is the capability surface the platform's API layer programs
// against. Exactly one implementation exists per connected network.
//
// All operations that reach the chain return ethereum.ErrNotConnected
// until Connect has succeeded. Money crosses the boundary as exact
// values: wei as *big.Int, ether as codec.Amount.
type Broker interface {
	// Connect starts the node pool and blocks until a node on the
	// configured network is verified and healthy.
	Connect(ctx context.Context) error
	IsConnected() bool
	NetworkInfo(ctx context.Context) (*ethereum.NetworkInfo, error)
	Close(ctx context.Context) error

	CreateWallet() (chaincommon.Address, string, error)
	ImportWallet(privateKey string) (chaincommon.Address, error)
	GetBalance(ctx context.Context, address string) (codec.Amount, error)
	GetTokenBalance(ctx context.Context, address, tokenContract string) (codec.Amount, error)

	EstimateGas(ctx context.Context, from, to string, data []byte, valueWei *big.Int) (*txmgr.GasEstimate, error)
	SendTransaction(ctx context.Context, req SendRequest) (chaincommon.Hash, error)
	GetReceipt(ctx context.Context, hash string) (*types.Receipt, error)
	WaitForConfirmation(ctx context.Context, hash string, timeout time.Duration) (*types.Receipt, error)

	MintNFT(ctx context.Context, minterKey, toAddress string, metadata NFTMetadata) (*contracts.MintResult, error)
	VerifyNFT(ctx context.Context, verifierKey string, tokenID *big.Int, c2paHash [32]byte) (chaincommon.Hash, error)
	GetNFTOwner(ctx context.Context, tokenID *big.Int) (chaincommon.Address, error)
	GetRoyaltyInfo(ctx context.Context, tokenID, salePriceWei *big.Int) (chaincommon.Address, *big.Int, error)

	CreateListing(ctx context.Context, sellerKey string, tokenID, priceWei *big.Int, isAuction bool, duration time.Duration) (*contracts.ListingResult, error)
	BuyNFT(ctx context.Context, buyerKey string, listingID, priceWei *big.Int) (chaincommon.Hash, error)
	PlaceBid(ctx context.Context, bidderKey string, listingID, amountWei *big.Int) (chaincommon.Hash, error)
	FinalizeAuction(ctx context.Context, callerKey string, listingID *big.Int) (chaincommon.Hash, error)
	GetListingInfo(ctx context.Context, listingID *big.Int) (*contracts.Listing, error)
	GetActiveListings(ctx context.Context) ([]*big.Int, error)

	GetNFTEvents(ctx context.Context, fromBlock, toBlock uint64, names ...string) ([]contracts.ContractEvent, error)
	GetMarketplaceEvents(ctx context.Context, fromBlock, toBlock uint64, names ...string) ([]contracts.ContractEvent, error)
	SubscribeToEvents(ctx context.Context, contract string, names ...string) (*Subscription, error)
	UnsubscribeFromEvents(id string) error
}
