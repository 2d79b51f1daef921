package ethereum

import (
	"fmt"
	"strings"
)

// Network describes one of the fixed set of chains the broker can talk to.
// PoA networks carry non-standard block headers and get a lenient header
// decoder installed before any block-reading call.
type Network struct {
	Name       string
	ChainID    int64
	DefaultRPC string
	PoA        bool
}

var networkMap = map[string]Network{
	"mainnet":   {Name: "mainnet", ChainID: 1, DefaultRPC: "https://eth-mainnet.g.alchemy.com/v2", PoA: false},
	"sepolia":   {Name: "sepolia", ChainID: 11155111, DefaultRPC: "https://eth-sepolia.g.alchemy.com/v2", PoA: true},
	"polygon":   {Name: "polygon", ChainID: 137, DefaultRPC: "https://polygon-rpc.com", PoA: false},
	"mumbai":    {Name: "mumbai", ChainID: 80001, DefaultRPC: "https://rpc-mumbai.maticvigil.com", PoA: true},
	"localhost": {Name: "localhost", ChainID: 31337, DefaultRPC: "http://localhost:8545", PoA: true},
}

// GetNetworkByName returns the network information for the given name.
func GetNetworkByName(name string) (*Network, error) {
	network, exists := networkMap[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, name)
	}

	return &network, nil
}

// GetNetworkByChainID returns the network information for the given chain ID.
func GetNetworkByChainID(chainID int64) (*Network, error) {
	for _, network := range networkMap {
		if network.ChainID == chainID {
			n := network

			return &n, nil
		}
	}

	return nil, fmt.Errorf("%w: chain ID %d", ErrUnsupportedNetwork, chainID)
}

// NetworkNames returns the names of all supported networks.
func NetworkNames() []string {
	names := make([]string, 0, len(networkMap))

	for name := range networkMap {
		names = append(names, name)
	}

	return names
}
