package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/codec"
	"github.com/artchain-labs/nft-broker/pkg/contracts"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/journal"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
	"github.com/artchain-labs/nft-broker/pkg/wallet"
)

// ErrContractNotConfigured is returned for NFT or marketplace operations
// when the corresponding contract address is missing from configuration.
var ErrContractNotConfigured = errors.New("contract address not configured")

// ArchiveEnqueuer schedules background archival of a confirmed
// transaction's events. Implemented by watcher.Manager.
type ArchiveEnqueuer interface {
	EnqueueArchive(ctx context.Context, hash chaincommon.Hash) error
}

// Service is the single concrete Broker. It composes the node pool, the
// transaction manager, the contract wrappers and the optional journal
// and archive pipeline.
type Service struct {
	log    logrus.FieldLogger
	config *Config

	pool *ethereum.Pool
	tx   *txmgr.Manager

	nft    *contracts.ArtNFT
	market *contracts.Marketplace

	// journal and archiver are nil when Redis is not configured. Both are
	// best-effort: their failures are logged, never surfaced to callers.
	journal  *journal.Journal
	archiver ArchiveEnqueuer

	subs *subscriptionSet
}

var _ Broker = (*Service)(nil)

func NewService(log logrus.FieldLogger, config *Config, pool *ethereum.Pool, txManager *txmgr.Manager, jrnl *journal.Journal, archiver ArchiveEnqueuer) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		log:      log.WithField("module", "broker"),
		config:   config,
		pool:     pool,
		tx:       txManager,
		journal:  jrnl,
		archiver: archiver,
	}

	if config.NFTContract != "" {
		addr, err := codec.ParseAddress(config.NFTContract)
		if err != nil {
			return nil, err
		}

		s.nft = contracts.NewArtNFT(log, addr, pool, txManager)
	}

	if config.MarketplaceContract != "" {
		addr, err := codec.ParseAddress(config.MarketplaceContract)
		if err != nil {
			return nil, err
		}

		s.market = contracts.NewMarketplace(log, addr, pool, txManager)
	}

	s.subs = newSubscriptionSet(s.log, pool, config.SubscriptionPollInterval, config.SubscriptionBuffer)

	return s, nil
}

// Connect starts the pool and blocks until a node on the configured
// network is verified and healthy.
func (s *Service) Connect(ctx context.Context) error {
	s.pool.Start(ctx)

	node, err := s.pool.WaitForHealthyNode(ctx)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"network":  s.pool.Network().Name,
		"chain_id": node.ChainID(),
		"node":     node.Name(),
	}).Info("Connected to network")

	return nil
}

func (s *Service) IsConnected() bool {
	return s.pool.HasHealthyNode()
}

// Close stops subscriptions and the node pool.
func (s *Service) Close(ctx context.Context) error {
	s.subs.closeAll()

	return s.pool.Stop(ctx)
}

// NetworkInfo returns a live snapshot of the connected network.
func (s *Service) NetworkInfo(ctx context.Context) (*ethereum.NetworkInfo, error) {
	node := s.pool.GetHealthyNode()
	if node == nil {
		return nil, ethereum.ErrNotConnected
	}

	header, err := node.LatestHeader(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := node.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	return &ethereum.NetworkInfo{
		Network:     s.pool.Network().Name,
		ChainID:     s.pool.Network().ChainID,
		LatestBlock: header.Number,
		BlockTime:   header.Timestamp,
		GasPrice:    gasPrice,
	}, nil
}

// CreateWallet generates a fresh key pair. The private key never touches
// persistent storage.
func (s *Service) CreateWallet() (chaincommon.Address, string, error) {
	return wallet.Create()
}

// ImportWallet derives the address controlled by privateKey.
func (s *Service) ImportWallet(privateKey string) (chaincommon.Address, error) {
	return wallet.Import(privateKey)
}

// GetBalance returns the ether balance of address. Fresh addresses have a
// zero balance, not an error.
func (s *Service) GetBalance(ctx context.Context, address string) (codec.Amount, error) {
	addr, err := codec.ParseAddress(address)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	node := s.pool.GetHealthyNode()
	if node == nil {
		return codec.ZeroAmount(), ethereum.ErrNotConnected
	}

	balance, err := node.BalanceAt(ctx, addr)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	return codec.NewEtherAmount(balance)
}

// GetTokenBalance returns the ERC-20 balance of address at tokenContract,
// scaled by the token's own decimals.
func (s *Service) GetTokenBalance(ctx context.Context, address, tokenContract string) (codec.Amount, error) {
	addr, err := codec.ParseAddress(address)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	tokenAddr, err := codec.ParseAddress(tokenContract)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	token := contracts.NewERC20(tokenAddr, s.pool)

	balance, err := token.BalanceOf(ctx, addr)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	decimals, err := token.Decimals(ctx)
	if err != nil {
		return codec.ZeroAmount(), err
	}

	return codec.NewAmount(balance, int32(decimals))
}

// EstimateGas simulates a call and returns a fresh gas estimate. An empty
// from address estimates as the zero address.
func (s *Service) EstimateGas(ctx context.Context, from, to string, data []byte, valueWei *big.Int) (*txmgr.GasEstimate, error) {
	var fromAddr chaincommon.Address

	if from != "" {
		addr, err := codec.ParseAddress(from)
		if err != nil {
			return nil, err
		}

		fromAddr = addr
	}

	toAddr, err := codec.ParseAddress(to)
	if err != nil {
		return nil, err
	}

	return s.tx.EstimateGas(ctx, fromAddr, &toAddr, data, valueWei)
}

// SendTransaction signs and broadcasts a transfer or raw call. The
// returned hash identifies the transaction; confirmation is a separate
// call so callers control how long they wait.
func (s *Service) SendTransaction(ctx context.Context, req SendRequest) (chaincommon.Hash, error) {
	intent := txmgr.Intent{
		Value:    req.ValueWei,
		GasLimit: req.GasLimit,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	}

	if req.From != "" {
		from, err := codec.ParseAddress(req.From)
		if err != nil {
			return chaincommon.Hash{}, err
		}

		intent.From = from
	}

	if req.To != "" {
		to, err := codec.ParseAddress(req.To)
		if err != nil {
			return chaincommon.Hash{}, err
		}

		intent.To = &to
	}

	signed, err := s.tx.Execute(ctx, intent, req.PrivateKey)
	if err != nil {
		return chaincommon.Hash{}, err
	}

	hash := signed.Hash()
	s.journalSubmitted(ctx, signed)

	return hash, nil
}

// GetReceipt returns the receipt for hash, or nil while the transaction
// is pending.
func (s *Service) GetReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	parsed, err := codec.ParseHash(hash)
	if err != nil {
		return nil, err
	}

	return s.tx.Receipt(ctx, parsed)
}

// WaitForConfirmation blocks until the transaction reaches a terminal
// state or timeout elapses. A timeout is not a verdict: the transaction
// may still confirm later and the call can be repeated.
func (s *Service) WaitForConfirmation(ctx context.Context, hash string, timeout time.Duration) (*types.Receipt, error) {
	parsed, err := codec.ParseHash(hash)
	if err != nil {
		return nil, err
	}

	receipt, err := s.tx.AwaitConfirmation(ctx, parsed, timeout)
	s.journalOutcome(ctx, parsed, receipt, err)

	return receipt, err
}

// MintNFT mints an artwork token to toAddress and returns the token id
// extracted from the mint event.
func (s *Service) MintNFT(ctx context.Context, minterKey, toAddress string, metadata NFTMetadata) (*contracts.MintResult, error) {
	if s.nft == nil {
		return nil, fmt.Errorf("%w: nft", ErrContractNotConfigured)
	}

	to, err := codec.ParseAddress(toAddress)
	if err != nil {
		return nil, err
	}

	result, err := s.nft.Mint(ctx, minterKey, contracts.MintRequest{
		To:          to,
		Title:       metadata.Title,
		Description: metadata.Description,
		ImageURI:    metadata.ImageURI,
		MetadataURI: metadata.MetadataURI,
		RoyaltyBps:  metadata.RoyaltyBps,
	})
	if err != nil {
		return nil, err
	}

	s.journalConfirmed(ctx, result.TxHash, result.Receipt)

	return result, nil
}

// VerifyNFT records a C2PA provenance hash against a token.
func (s *Service) VerifyNFT(ctx context.Context, verifierKey string, tokenID *big.Int, c2paHash [32]byte) (chaincommon.Hash, error) {
	if s.nft == nil {
		return chaincommon.Hash{}, fmt.Errorf("%w: nft", ErrContractNotConfigured)
	}

	hash, receipt, err := s.nft.Verify(ctx, verifierKey, tokenID, c2paHash)
	if err != nil {
		return hash, err
	}

	s.journalConfirmed(ctx, hash, receipt)

	return hash, nil
}

func (s *Service) GetNFTOwner(ctx context.Context, tokenID *big.Int) (chaincommon.Address, error) {
	if s.nft == nil {
		return chaincommon.Address{}, fmt.Errorf("%w: nft", ErrContractNotConfigured)
	}

	return s.nft.OwnerOf(ctx, tokenID)
}

func (s *Service) GetRoyaltyInfo(ctx context.Context, tokenID, salePriceWei *big.Int) (chaincommon.Address, *big.Int, error) {
	if s.nft == nil {
		return chaincommon.Address{}, nil, fmt.Errorf("%w: nft", ErrContractNotConfigured)
	}

	return s.nft.RoyaltyInfo(ctx, tokenID, salePriceWei)
}

// CreateListing lists a token on the marketplace. The token must already
// be approved for the marketplace contract.
func (s *Service) CreateListing(ctx context.Context, sellerKey string, tokenID, priceWei *big.Int, isAuction bool, duration time.Duration) (*contracts.ListingResult, error) {
	if s.market == nil || s.nft == nil {
		return nil, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	result, err := s.market.CreateListing(ctx, sellerKey, s.nft.Address(), tokenID, priceWei, isAuction, big.NewInt(int64(duration.Seconds())))
	if err != nil {
		return nil, err
	}

	s.journalConfirmed(ctx, result.TxHash, result.Receipt)

	return result, nil
}

func (s *Service) BuyNFT(ctx context.Context, buyerKey string, listingID, priceWei *big.Int) (chaincommon.Hash, error) {
	if s.market == nil {
		return chaincommon.Hash{}, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	hash, receipt, err := s.market.Buy(ctx, buyerKey, listingID, priceWei)
	if err != nil {
		return hash, err
	}

	s.journalConfirmed(ctx, hash, receipt)

	return hash, nil
}

func (s *Service) PlaceBid(ctx context.Context, bidderKey string, listingID, amountWei *big.Int) (chaincommon.Hash, error) {
	if s.market == nil {
		return chaincommon.Hash{}, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	hash, receipt, err := s.market.PlaceBid(ctx, bidderKey, listingID, amountWei)
	if err != nil {
		return hash, err
	}

	s.journalConfirmed(ctx, hash, receipt)

	return hash, nil
}

func (s *Service) FinalizeAuction(ctx context.Context, callerKey string, listingID *big.Int) (chaincommon.Hash, error) {
	if s.market == nil {
		return chaincommon.Hash{}, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	hash, receipt, err := s.market.FinalizeAuction(ctx, callerKey, listingID)
	if err != nil {
		return hash, err
	}

	s.journalConfirmed(ctx, hash, receipt)

	return hash, nil
}

func (s *Service) GetListingInfo(ctx context.Context, listingID *big.Int) (*contracts.Listing, error) {
	if s.market == nil {
		return nil, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	return s.market.GetListing(ctx, listingID)
}

func (s *Service) GetActiveListings(ctx context.Context) ([]*big.Int, error) {
	if s.market == nil {
		return nil, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	return s.market.GetActiveListings(ctx)
}

// GetNFTEvents returns decoded ArtNFT events over the block range.
func (s *Service) GetNFTEvents(ctx context.Context, fromBlock, toBlock uint64, names ...string) ([]contracts.ContractEvent, error) {
	if s.nft == nil {
		return nil, fmt.Errorf("%w: nft", ErrContractNotConfigured)
	}

	return s.nft.Events(ctx, new(big.Int).SetUint64(fromBlock), new(big.Int).SetUint64(toBlock), names...)
}

// GetMarketplaceEvents returns decoded marketplace events over the block
// range.
func (s *Service) GetMarketplaceEvents(ctx context.Context, fromBlock, toBlock uint64, names ...string) ([]contracts.ContractEvent, error) {
	if s.market == nil {
		return nil, fmt.Errorf("%w: marketplace", ErrContractNotConfigured)
	}

	return s.market.Events(ctx, new(big.Int).SetUint64(fromBlock), new(big.Int).SetUint64(toBlock), names...)
}

// SubscribeToEvents starts an independent event feed for contract. Each
// subscription keeps its own block cursor, so concurrent subscribers all
// observe every matching event.
func (s *Service) SubscribeToEvents(ctx context.Context, contract string, names ...string) (*Subscription, error) {
	addr, err := codec.ParseAddress(contract)
	if err != nil {
		return nil, err
	}

	parsed, err := s.abiFor(addr)
	if err != nil {
		return nil, err
	}

	return s.subs.subscribe(ctx, addr, parsed, names)
}

// UnsubscribeFromEvents stops the feed with the given id and closes its
// channel.
func (s *Service) UnsubscribeFromEvents(id string) error {
	return s.subs.unsubscribe(id)
}

func (s *Service) abiFor(contract chaincommon.Address) (abi.ABI, error) {
	if s.nft != nil && contract == s.nft.Address() {
		return contracts.ArtNFTABI, nil
	}

	if s.market != nil && contract == s.market.Address() {
		return contracts.MarketplaceABI, nil
	}

	return abi.ABI{}, fmt.Errorf("%w: %s", ErrContractNotConfigured, contract.Hex())
}

// journalSubmitted records a broadcast. Journal failures never fail the
// transaction: the chain is the source of truth.
func (s *Service) journalSubmitted(ctx context.Context, signed *txmgr.SignedTx) {
	if s.journal == nil {
		return
	}

	if err := s.journal.RecordSubmitted(ctx, signed.Hash(), signed.Sender, signed.Nonce, s.pool.Network().Name); err != nil {
		s.log.WithError(err).Warn("Failed to journal submission")
	}
}

// journalConfirmed records a terminal receipt and enqueues event
// archival.
func (s *Service) journalConfirmed(ctx context.Context, hash chaincommon.Hash, receipt *types.Receipt) {
	if receipt == nil {
		return
	}

	if s.journal != nil {
		var blockNumber uint64
		if receipt.BlockNumber != nil {
			blockNumber = receipt.BlockNumber.Uint64()
		}

		if err := s.journal.RecordConfirmed(ctx, hash, blockNumber, receipt.GasUsed); err != nil {
			s.log.WithError(err).Warn("Failed to journal confirmation")
		}
	}

	if s.archiver != nil {
		if err := s.archiver.EnqueueArchive(ctx, hash); err != nil {
			s.log.WithError(err).Warn("Failed to enqueue event archival")
		}
	}
}

// journalOutcome maps a confirmation result onto the journal.
func (s *Service) journalOutcome(ctx context.Context, hash chaincommon.Hash, receipt *types.Receipt, err error) {
	switch {
	case err == nil:
		s.journalConfirmed(ctx, hash, receipt)
	case errors.Is(err, txmgr.ErrTransactionFailed):
		if s.journal != nil {
			if jerr := s.journal.RecordFailed(ctx, hash, "execution reverted"); jerr != nil {
				s.log.WithError(jerr).Warn("Failed to journal failure")
			}
		}
	default:
		// Timeouts and transport errors are not verdicts; leave the entry
		// in the submitted state.
	}
}
