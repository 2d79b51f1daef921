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

// MintRequest carries the artwork fields recorded on-chain at mint time.
type MintRequest struct {
	To          chaincommon.Address
	Title       string
	Description string
	ImageURI    string
	MetadataURI string
	// RoyaltyBps is the creator royalty in basis points (ERC-2981).
	RoyaltyBps uint16
}

// MintResult is the confirmed outcome of a mint.
type MintResult struct {
	TokenID *big.Int
	TxHash  chaincommon.Hash
	Receipt *types.Receipt
}

// ArtNFT wraps the platform's ERC-721 contract.
type ArtNFT struct {
	log logrus.FieldLogger
	binding
}

func NewArtNFT(log logrus.FieldLogger, address chaincommon.Address, nodes txmgr.NodeSource, tx Transactor) *ArtNFT {
	return &ArtNFT{
		log: log.WithField("component", "contracts/artnft"),
		binding: binding{
			name:    "artnft",
			abi:     ArtNFTABI,
			address: address,
			nodes:   nodes,
			tx:      tx,
		},
	}
}

// Address returns the contract address this wrapper is bound to.
func (c *ArtNFT) Address() chaincommon.Address {
	return c.address
}

// MintingFee returns the platform fee in wei that mintArtwork requires as
// transaction value.
func (c *ArtNFT) MintingFee(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "mintingFee")
	if err != nil {
		return nil, err
	}

	fee, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected mintingFee output type %T", values[0])
	}

	return fee, nil
}

// Mint submits mintArtwork signed with privateKey, attaches the current
// minting fee as value, waits for the receipt and extracts the new token
// id from the ArtworkMinted event. The fee is read immediately before
// submission so an on-chain fee change between calls is picked up.
func (c *ArtNFT) Mint(ctx context.Context, privateKey string, req MintRequest) (*MintResult, error) {
	fee, err := c.MintingFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading minting fee: %w", err)
	}

	hash, receipt, err := c.write(ctx, privateKey, "mintArtwork", fee,
		req.To,
		req.Title,
		req.Description,
		req.ImageURI,
		req.MetadataURI,
		new(big.Int).SetUint64(uint64(req.RoyaltyBps)),
	)
	if err != nil {
		return nil, err
	}

	tokenID, err := extractEventTopic(c.address, ArtNFTABI.Events["ArtworkMinted"].ID, receipt.Logs)
	if err != nil {
		return nil, fmt.Errorf("transaction %s confirmed: %w", hash.Hex(), err)
	}

	c.log.WithFields(logrus.Fields{
		"token_id": tokenID.String(),
		"to":       req.To.Hex(),
		"tx_hash":  hash.Hex(),
		"fee_wei":  fee.String(),
	}).Info("Artwork minted")

	return &MintResult{
		TokenID: tokenID,
		TxHash:  hash,
		Receipt: receipt,
	}, nil
}

// Verify records a C2PA provenance hash against a token. Only addresses
// the contract has granted the verifier role to will succeed.
func (c *ArtNFT) Verify(ctx context.Context, privateKey string, tokenID *big.Int, c2paHash [32]byte) (chaincommon.Hash, *types.Receipt, error) {
	hash, receipt, err := c.write(ctx, privateKey, "verifyArtwork", nil, tokenID, c2paHash)
	if err != nil {
		return hash, receipt, err
	}

	c.log.WithFields(logrus.Fields{
		"token_id": tokenID.String(),
		"tx_hash":  hash.Hex(),
	}).Info("Artwork verified")

	return hash, receipt, nil
}

// OwnerOf returns the current owner of tokenID.
func (c *ArtNFT) OwnerOf(ctx context.Context, tokenID *big.Int) (chaincommon.Address, error) {
	values, err := c.call(ctx, "ownerOf", tokenID)
	if err != nil {
		return chaincommon.Address{}, err
	}

	owner, ok := values[0].(chaincommon.Address)
	if !ok {
		return chaincommon.Address{}, fmt.Errorf("unexpected ownerOf output type %T", values[0])
	}

	return owner, nil
}

// RoyaltyInfo returns the ERC-2981 royalty receiver and amount for a sale
// at salePrice wei.
func (c *ArtNFT) RoyaltyInfo(ctx context.Context, tokenID, salePrice *big.Int) (chaincommon.Address, *big.Int, error) {
	values, err := c.call(ctx, "royaltyInfo", tokenID, salePrice)
	if err != nil {
		return chaincommon.Address{}, nil, err
	}

	receiver, ok := values[0].(chaincommon.Address)
	if !ok {
		return chaincommon.Address{}, nil, fmt.Errorf("unexpected royaltyInfo output type %T", values[0])
	}

	amount, ok := values[1].(*big.Int)
	if !ok {
		return chaincommon.Address{}, nil, fmt.Errorf("unexpected royaltyInfo output type %T", values[1])
	}

	return receiver, amount, nil
}

// Events returns decoded ArtNFT events over the block range. Empty names
// selects every event the contract declares.
func (c *ArtNFT) Events(ctx context.Context, fromBlock, toBlock *big.Int, names ...string) ([]ContractEvent, error) {
	return c.filterEvents(ctx, fromBlock, toBlock, names...)
}
