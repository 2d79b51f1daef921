package ethereum

import "errors"

// Sentinel errors for chain connection handling.
var (
	// ErrNotConnected indicates an operation attempted before a
	// successful connect, or after all endpoints became unhealthy.
	ErrNotConnected = errors.New("not connected to any network")

	// ErrUnsupportedNetwork indicates an unknown network name or chain ID.
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrChainIDMismatch indicates the endpoint reported a chain ID other
	// than the configured network's.
	ErrChainIDMismatch = errors.New("endpoint chain ID does not match configured network")

	// ErrAlreadyConnected indicates a second connect on the same instance.
	// Switching networks requires a fresh instance.
	ErrAlreadyConnected = errors.New("already connected; network switching requires a new instance")
)
