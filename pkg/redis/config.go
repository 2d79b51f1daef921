package redis

import (
	"fmt"
)

type Config struct {
	// Address is a host:port pair or a redis:// URL. URL credentials and
	// database number take precedence over the explicit fields below.
	Address string `yaml:"address"`
	// Prefix namespaces every key this service writes.
	Prefix   string `yaml:"prefix"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}

	if c.Prefix == "" {
		c.Prefix = "nft-broker"
	}

	return nil
}
