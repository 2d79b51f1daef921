// Package wallet creates and imports secp256k1 wallets. Private keys are
// transient parameters throughout: they are never persisted, cached or
// logged, and helpers return them only to the immediate caller.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/common/hexutil"
	"github.com/0xsequence/ethkit/go-ethereum/crypto"
)

// ErrInvalidKey indicates malformed private key material.
var ErrInvalidKey = errors.New("invalid private key")

// Create generates a new wallet and returns its address and private key hex.
func Create() (common.Address, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, "", fmt.Errorf("failed to generate key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	privateKey := hexutil.Encode(crypto.FromECDSA(key))

	return address, privateKey, nil
}

// Import derives the address for a private key given as hex, with or
// without the 0x prefix.
func Import(privateKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return crypto.PubkeyToAddress(key.PublicKey), nil
}
