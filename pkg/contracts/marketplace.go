package contracts

import (
	"context"
	"fmt"
	"math/big"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

// Listing mirrors the marketplace's on-chain listing record.
type Listing struct {
	ListingID     *big.Int
	Seller        chaincommon.Address
	NFTContract   chaincommon.Address
	TokenID       *big.Int
	Price         *big.Int
	IsAuction     bool
	EndTime       *big.Int
	HighestBidder chaincommon.Address
	HighestBid    *big.Int
	Active        bool
}

// ListingResult is the confirmed outcome of createListing.
type ListingResult struct {
	ListingID *big.Int
	TxHash    chaincommon.Hash
	Receipt   *types.Receipt
}

// Marketplace wraps the platform's sale and auction contract.
type Marketplace struct {
	log logrus.FieldLogger
	binding
}

func NewMarketplace(log logrus.FieldLogger, address chaincommon.Address, nodes txmgr.NodeSource, tx Transactor) *Marketplace {
	return &Marketplace{
		log: log.WithField("component", "contracts/marketplace"),
		binding: binding{
			name:    "marketplace",
			abi:     MarketplaceABI,
			address: address,
			nodes:   nodes,
			tx:      tx,
		},
	}
}

func (c *Marketplace) Address() chaincommon.Address {
	return c.address
}

// CreateListing lists a token for sale or auction and returns the listing
// id extracted from the ListingCreated event. The seller must have
// approved the marketplace for the token beforehand.
func (c *Marketplace) CreateListing(ctx context.Context, privateKey string, nftContract chaincommon.Address, tokenID, price *big.Int, isAuction bool, duration *big.Int) (*ListingResult, error) {
	if duration == nil {
		duration = new(big.Int)
	}

	hash, receipt, err := c.write(ctx, privateKey, "createListing", nil,
		nftContract, tokenID, price, isAuction, duration)
	if err != nil {
		return nil, err
	}

	listingID, err := extractEventTopic(c.address, MarketplaceABI.Events["ListingCreated"].ID, receipt.Logs)
	if err != nil {
		return nil, fmt.Errorf("transaction %s confirmed: %w", hash.Hex(), err)
	}

	c.log.WithFields(logrus.Fields{
		"listing_id": listingID.String(),
		"token_id":   tokenID.String(),
		"price_wei":  price.String(),
		"auction":    isAuction,
		"tx_hash":    hash.Hex(),
	}).Info("Listing created")

	return &ListingResult{
		ListingID: listingID,
		TxHash:    hash,
		Receipt:   receipt,
	}, nil
}

// Buy purchases a fixed-price listing, sending price wei as value.
func (c *Marketplace) Buy(ctx context.Context, privateKey string, listingID, price *big.Int) (chaincommon.Hash, *types.Receipt, error) {
	return c.write(ctx, privateKey, "buyNFT", price, listingID)
}

// PlaceBid bids amount wei on an auction listing.
func (c *Marketplace) PlaceBid(ctx context.Context, privateKey string, listingID, amount *big.Int) (chaincommon.Hash, *types.Receipt, error) {
	return c.write(ctx, privateKey, "placeBid", amount, listingID)
}

// FinalizeAuction settles an ended auction, transferring the token to the
// highest bidder and the proceeds to the seller.
func (c *Marketplace) FinalizeAuction(ctx context.Context, privateKey string, listingID *big.Int) (chaincommon.Hash, *types.Receipt, error) {
	return c.write(ctx, privateKey, "finalizeAuction", nil, listingID)
}

// GetListing reads a listing record.
func (c *Marketplace) GetListing(ctx context.Context, listingID *big.Int) (*Listing, error) {
	values, err := c.call(ctx, "getListing", listingID)
	if err != nil {
		return nil, err
	}

	if len(values) != 9 {
		return nil, fmt.Errorf("unexpected getListing output arity %d", len(values))
	}

	listing := &Listing{ListingID: listingID}

	var ok bool

	if listing.Seller, ok = values[0].(chaincommon.Address); !ok {
		return nil, fmt.Errorf("unexpected seller type %T", values[0])
	}

	if listing.NFTContract, ok = values[1].(chaincommon.Address); !ok {
		return nil, fmt.Errorf("unexpected nftContract type %T", values[1])
	}

	if listing.TokenID, ok = values[2].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected tokenId type %T", values[2])
	}

	if listing.Price, ok = values[3].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected price type %T", values[3])
	}

	if listing.IsAuction, ok = values[4].(bool); !ok {
		return nil, fmt.Errorf("unexpected isAuction type %T", values[4])
	}

	if listing.EndTime, ok = values[5].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected endTime type %T", values[5])
	}

	if listing.HighestBidder, ok = values[6].(chaincommon.Address); !ok {
		return nil, fmt.Errorf("unexpected highestBidder type %T", values[6])
	}

	if listing.HighestBid, ok = values[7].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected highestBid type %T", values[7])
	}

	if listing.Active, ok = values[8].(bool); !ok {
		return nil, fmt.Errorf("unexpected active type %T", values[8])
	}

	return listing, nil
}

// GetActiveListings returns the ids of all open listings.
func (c *Marketplace) GetActiveListings(ctx context.Context) ([]*big.Int, error) {
	values, err := c.call(ctx, "getActiveListings")
	if err != nil {
		return nil, err
	}

	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getActiveListings output type %T", values[0])
	}

	return ids, nil
}

// Events returns decoded marketplace events over the block range.
func (c *Marketplace) Events(ctx context.Context, fromBlock, toBlock *big.Int, names ...string) ([]ContractEvent, error) {
	return c.filterEvents(ctx, fromBlock, toBlock, names...)
}
