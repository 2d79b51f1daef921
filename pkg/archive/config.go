package archive

import (
	"fmt"
	"time"
)

// Config holds configuration for the ClickHouse event archive using the
// ch-go native client.
type Config struct {
	// Connection
	Addr     string `yaml:"addr"`     // Native protocol address, e.g., "localhost:9000"
	Database string `yaml:"database"` // Database name, default: "default"
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"` // Target table, default: "contract_events"

	// Pool settings
	MaxConns    int32         `yaml:"maxConns"`    // Maximum connections in pool, default: 4
	MinConns    int32         `yaml:"minConns"`    // Minimum connections in pool, default: 1
	DialTimeout time.Duration `yaml:"dialTimeout"` // Dial timeout, default: 10s

	// Performance
	Compression string `yaml:"compression"` // Compression: lz4, zstd, none (default: lz4)

	// Retry settings
	MaxRetries     int           `yaml:"maxRetries"`     // Maximum retry attempts, default: 3
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay"` // Base delay for exponential backoff, default: 100ms
	RetryMaxDelay  time.Duration `yaml:"retryMaxDelay"`  // Max delay between retries, default: 10s

	// Timeout settings
	QueryTimeout time.Duration `yaml:"queryTimeout"` // Query timeout per attempt, default: 30s
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	return nil
}

// SetDefaults sets default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "default"
	}

	if c.Table == "" {
		c.Table = "contract_events"
	}

	if c.MaxConns == 0 {
		c.MaxConns = 4
	}

	if c.MinConns == 0 {
		c.MinConns = 1
	}

	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}

	if c.Compression == "" {
		c.Compression = "lz4"
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}

	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}

	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = 10 * time.Second
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
}
