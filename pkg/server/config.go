package server

import (
	"fmt"
	"time"

	"github.com/artchain-labs/nft-broker/pkg/archive"
	"github.com/artchain-labs/nft-broker/pkg/broker"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/redis"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
	"github.com/artchain-labs/nft-broker/pkg/watcher"
)

type Config struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// Ethereum is the ethereum network configuration.
	Ethereum ethereum.Config `yaml:"ethereum"`
	// Redis is the redis configuration. Optional: without it the
	// transaction journal and archive pipeline are disabled.
	Redis *redis.Config `yaml:"redis"`
	// Transactions is the transaction manager configuration.
	Transactions txmgr.Config `yaml:"transactions"`
	// Broker is the broker configuration.
	Broker broker.Config `yaml:"broker"`
	// Watcher is the archive worker configuration.
	Watcher watcher.Config `yaml:"watcher"`
	// Archive is the ClickHouse event archive configuration. Optional:
	// requires Redis for task delivery.
	Archive *archive.Config `yaml:"archive"`
	// JournalTTL is how long transaction journal entries are kept.
	JournalTTL time.Duration `yaml:"journalTTL" default:"168h"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

func (c *Config) Validate() error {
	if err := c.Ethereum.Validate(); err != nil {
		return fmt.Errorf("invalid ethereum configuration: %w", err)
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis configuration: %w", err)
		}
	}

	if err := c.Transactions.Validate(); err != nil {
		return fmt.Errorf("invalid transaction configuration: %w", err)
	}

	if err := c.Broker.Validate(); err != nil {
		return fmt.Errorf("invalid broker configuration: %w", err)
	}

	if c.Archive != nil {
		if c.Redis == nil {
			return fmt.Errorf("archive requires redis for task delivery")
		}

		if err := c.Archive.Validate(); err != nil {
			return fmt.Errorf("invalid archive configuration: %w", err)
		}

		if err := c.Watcher.Validate(); err != nil {
			return fmt.Errorf("invalid watcher configuration: %w", err)
		}
	}

	return nil
}
