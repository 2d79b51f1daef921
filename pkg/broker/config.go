package broker

import (
	"fmt"
	"time"

	"github.com/artchain-labs/nft-broker/pkg/codec"
)

type Config struct {
	// NFTContract is the deployed ArtNFT contract address.
	NFTContract string `yaml:"nftContract"`
	// MarketplaceContract is the deployed marketplace contract address.
	MarketplaceContract string `yaml:"marketplaceContract"`
	// SubscriptionPollInterval is how often event subscriptions poll for
	// new blocks.
	SubscriptionPollInterval time.Duration `yaml:"subscriptionPollInterval" default:"5s"`
	// SubscriptionBuffer is the per-subscription event channel capacity.
	SubscriptionBuffer int `yaml:"subscriptionBuffer" default:"64"`
}

func (c *Config) Validate() error {
	if c.NFTContract != "" && !codec.ValidateAddress(c.NFTContract) {
		return fmt.Errorf("nftContract is not a valid address: %s", c.NFTContract)
	}

	if c.MarketplaceContract != "" && !codec.ValidateAddress(c.MarketplaceContract) {
		return fmt.Errorf("marketplaceContract is not a valid address: %s", c.MarketplaceContract)
	}

	if c.SubscriptionPollInterval <= 0 {
		return fmt.Errorf("subscriptionPollInterval must be positive")
	}

	if c.SubscriptionBuffer <= 0 {
		return fmt.Errorf("subscriptionBuffer must be positive")
	}

	return nil
}
