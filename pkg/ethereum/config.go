package ethereum

import (
	"fmt"
)

type Config struct {
	// Network is the named network to connect to.
	Network string `yaml:"network" default:"localhost"`
	// Endpoints are the RPC endpoints for the network. When empty, the
	// network's default endpoint is used.
	Endpoints []*EndpointConfig `yaml:"endpoints"`
}

type EndpointConfig struct {
	// Name identifies the endpoint in logs and metrics.
	Name string `yaml:"name"`
	// RPCURL overrides the network default RPC URL.
	RPCURL string `yaml:"rpcUrl"`
	// Headers are extra HTTP headers sent with every RPC request.
	Headers map[string]string `yaml:"headers"`
}

func (c *Config) Validate() error {
	if _, err := GetNetworkByName(c.Network); err != nil {
		return err
	}

	for i, endpoint := range c.Endpoints {
		if endpoint.Name == "" {
			return fmt.Errorf("endpoint at index %d requires a name", i)
		}
	}

	return nil
}

// ResolvedEndpoints returns the configured endpoints, or a single default
// endpoint for the network when none are configured.
func (c *Config) ResolvedEndpoints() ([]*EndpointConfig, error) {
	network, err := GetNetworkByName(c.Network)
	if err != nil {
		return nil, err
	}

	if len(c.Endpoints) > 0 {
		endpoints := make([]*EndpointConfig, 0, len(c.Endpoints))

		for _, endpoint := range c.Endpoints {
			resolved := *endpoint
			if resolved.RPCURL == "" {
				resolved.RPCURL = network.DefaultRPC
			}

			endpoints = append(endpoints, &resolved)
		}

		return endpoints, nil
	}

	return []*EndpointConfig{{Name: network.Name, RPCURL: network.DefaultRPC}}, nil
}
