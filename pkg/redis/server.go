package redis

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from configuration. redis:// URLs are parsed
// in full, so credentials and a database number embedded in the address
// are honored.
func New(config *Config) (*redis.Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	if strings.Contains(config.Address, "://") {
		opts, err := redis.ParseURL(config.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}

		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	}), nil
}
