package ethereum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNetworkByName(t *testing.T) {
	tests := []struct {
		name        string
		wantChainID int64
		wantPoA     bool
	}{
		{"mainnet", 1, false},
		{"sepolia", 11155111, true},
		{"polygon", 137, false},
		{"mumbai", 80001, true},
		{"localhost", 31337, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, err := GetNetworkByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChainID, network.ChainID)
			assert.Equal(t, tt.wantPoA, network.PoA)
			assert.NotEmpty(t, network.DefaultRPC)
		})
	}
}

func TestGetNetworkByNameCaseInsensitive(t *testing.T) {
	network, err := GetNetworkByName("Sepolia")
	require.NoError(t, err)
	assert.Equal(t, "sepolia", network.Name)
}

func TestGetNetworkByNameUnknown(t *testing.T) {
	_, err := GetNetworkByName("goerli")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestGetNetworkByChainID(t *testing.T) {
	network, err := GetNetworkByChainID(31337)
	require.NoError(t, err)
	assert.Equal(t, "localhost", network.Name)

	_, err = GetNetworkByChainID(424242)
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestConfigValidate(t *testing.T) {
	config := &Config{Network: "localhost"}
	require.NoError(t, config.Validate())

	config = &Config{Network: "nope"}
	assert.Error(t, config.Validate())

	config = &Config{
		Network:   "localhost",
		Endpoints: []*EndpointConfig{{RPCURL: "http://127.0.0.1:8545"}},
	}
	assert.Error(t, config.Validate(), "endpoint without a name must be rejected")
}

func TestResolvedEndpointsDefaults(t *testing.T) {
	config := &Config{Network: "localhost"}

	endpoints, err := config.ResolvedEndpoints()
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "http://localhost:8545", endpoints[0].RPCURL)

	config = &Config{
		Network: "sepolia",
		Endpoints: []*EndpointConfig{
			{Name: "primary", RPCURL: "https://example.invalid/rpc"},
			{Name: "fallback"},
		},
	}

	endpoints, err = config.ResolvedEndpoints()
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.Equal(t, "https://example.invalid/rpc", endpoints[0].RPCURL)
	assert.NotEmpty(t, endpoints[1].RPCURL, "unset RPC URL falls back to the network default")
}
