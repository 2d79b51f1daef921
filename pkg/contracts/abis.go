package contracts

import (
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
)

// artNFTABI is the platform's ERC-721 with ERC-2981 royalties and a
// payable mint charging a platform fee.
const artNFTABI = `[
	{"type":"function","name":"mintArtwork","stateMutability":"payable","inputs":[
		{"name":"to","type":"address"},
		{"name":"title","type":"string"},
		{"name":"description","type":"string"},
		{"name":"imageURI","type":"string"},
		{"name":"metadataURI","type":"string"},
		{"name":"royaltyBps","type":"uint96"}
	],"outputs":[{"name":"tokenId","type":"uint256"}]},
	{"type":"function","name":"verifyArtwork","stateMutability":"nonpayable","inputs":[
		{"name":"tokenId","type":"uint256"},
		{"name":"c2paHash","type":"bytes32"}
	],"outputs":[]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[
		{"name":"tokenId","type":"uint256"}
	],"outputs":[{"name":"owner","type":"address"}]},
	{"type":"function","name":"royaltyInfo","stateMutability":"view","inputs":[
		{"name":"tokenId","type":"uint256"},
		{"name":"salePrice","type":"uint256"}
	],"outputs":[
		{"name":"receiver","type":"address"},
		{"name":"royaltyAmount","type":"uint256"}
	]},
	{"type":"function","name":"mintingFee","stateMutability":"view","inputs":[],
		"outputs":[{"name":"fee","type":"uint256"}]},
	{"type":"event","name":"ArtworkMinted","inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"owner","type":"address","indexed":true},
		{"name":"metadataURI","type":"string","indexed":false}
	]},
	{"type":"event","name":"ArtworkVerified","inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"verifier","type":"address","indexed":true},
		{"name":"c2paHash","type":"bytes32","indexed":false}
	]}
]`

// marketplaceABI covers fixed-price sales and english auctions.
const marketplaceABI = `[
	{"type":"function","name":"createListing","stateMutability":"nonpayable","inputs":[
		{"name":"nftContract","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"price","type":"uint256"},
		{"name":"isAuction","type":"bool"},
		{"name":"duration","type":"uint256"}
	],"outputs":[{"name":"listingId","type":"uint256"}]},
	{"type":"function","name":"buyNFT","stateMutability":"payable","inputs":[
		{"name":"listingId","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"placeBid","stateMutability":"payable","inputs":[
		{"name":"listingId","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"finalizeAuction","stateMutability":"nonpayable","inputs":[
		{"name":"listingId","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"getListing","stateMutability":"view","inputs":[
		{"name":"listingId","type":"uint256"}
	],"outputs":[
		{"name":"seller","type":"address"},
		{"name":"nftContract","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"price","type":"uint256"},
		{"name":"isAuction","type":"bool"},
		{"name":"endTime","type":"uint256"},
		{"name":"highestBidder","type":"address"},
		{"name":"highestBid","type":"uint256"},
		{"name":"active","type":"bool"}
	]},
	{"type":"function","name":"getActiveListings","stateMutability":"view","inputs":[],
		"outputs":[{"name":"listingIds","type":"uint256[]"}]},
	{"type":"event","name":"ListingCreated","inputs":[
		{"name":"listingId","type":"uint256","indexed":true},
		{"name":"seller","type":"address","indexed":true},
		{"name":"nftContract","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":false},
		{"name":"price","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"ListingSold","inputs":[
		{"name":"listingId","type":"uint256","indexed":true},
		{"name":"buyer","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"BidPlaced","inputs":[
		{"name":"listingId","type":"uint256","indexed":true},
		{"name":"bidder","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"AuctionFinalized","inputs":[
		{"name":"listingId","type":"uint256","indexed":true},
		{"name":"winner","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]}
]`

// erc20ABI is the read-only subset needed for token balances.
const erc20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"}
	],"outputs":[{"name":"balance","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	// ABIs are static, so a parse failure is a programming error.
	ArtNFTABI      = mustParseABI(artNFTABI)
	MarketplaceABI = mustParseABI(marketplaceABI)
	ERC20ABI       = mustParseABI(erc20ABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}

	return parsed
}
