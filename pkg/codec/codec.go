// Package codec validates and normalizes addresses, hashes and on-chain
// amounts. Everything here is pure; money arithmetic is exact decimal,
// never binary floating point.
package codec

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Sentinel errors for codec operations.
var (
	// ErrInvalidAddress indicates a value that is not 0x + 40 hex chars.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidHash indicates a value that is not 0x + 64 hex chars.
	ErrInvalidHash = errors.New("invalid transaction hash")

	// ErrNegativeAmount indicates an amount below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// EtherDecimals is the decimal scale of the chain's native unit.
const EtherDecimals = 18

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hashPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	weiPerEther = decimal.New(1, EtherDecimals)
)

// ValidateAddress reports whether s is a well-formed 20-byte hex address.
func ValidateAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidateHash reports whether s is a well-formed 32-byte hex hash.
func ValidateHash(s string) bool {
	return hashPattern.MatchString(s)
}

// NormalizeAddress validates s and returns its canonical lower-case form.
func NormalizeAddress(s string) (string, error) {
	if !ValidateAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return strings.ToLower(s), nil
}

// NormalizeHash validates s and returns its canonical lower-case form.
func NormalizeHash(s string) (string, error) {
	if !ValidateHash(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	return strings.ToLower(s), nil
}

// ParseAddress validates s and returns it as a common.Address.
func ParseAddress(s string) (common.Address, error) {
	if !ValidateAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return common.HexToAddress(s), nil
}

// ParseHash validates s and returns it as a common.Hash.
func ParseHash(s string) (common.Hash, error) {
	if !ValidateHash(s) {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	return common.HexToHash(s), nil
}

// ToChecksum converts an address to its EIP-55 mixed-case checksum form.
// The operation is idempotent.
func ToChecksum(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}

	return addr.Hex(), nil
}

// WeiToEther converts a wei amount to an exact ether decimal. The value
// is built at the 18-decimal scale directly; Div would round to the
// library's division precision and lose the low digits.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// EtherToWei converts an ether decimal to wei. Values with more than 18
// fractional digits are rejected rather than silently truncated.
func EtherToWei(ether decimal.Decimal) (*big.Int, error) {
	if ether.IsNegative() {
		return nil, ErrNegativeAmount
	}

	scaled := ether.Mul(weiPerEther)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("ether amount %s has sub-wei precision", ether)
	}

	return scaled.BigInt(), nil
}
