package codec

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is an integer value in a token's smallest unit plus its decimal
// scale. Immutable after construction; the value is always >= 0.
type Amount struct {
	value    *big.Int
	decimals int32
}

// NewAmount builds an Amount from a smallest-unit value.
func NewAmount(value *big.Int, decimals int32) (Amount, error) {
	if value == nil {
		value = new(big.Int)
	}

	if value.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}

	if decimals < 0 {
		return Amount{}, fmt.Errorf("decimals must not be negative, got %d", decimals)
	}

	return Amount{value: new(big.Int).Set(value), decimals: decimals}, nil
}

// NewEtherAmount builds an 18-decimal Amount from a wei value.
func NewEtherAmount(wei *big.Int) (Amount, error) {
	return NewAmount(wei, EtherDecimals)
}

// ZeroAmount returns the zero value at the native 18-decimal scale.
func ZeroAmount() Amount {
	return Amount{value: new(big.Int), decimals: EtherDecimals}
}

// Value returns a copy of the smallest-unit integer value.
func (a Amount) Value() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(a.value)
}

// Decimals returns the decimal scale.
func (a Amount) Decimals() int32 {
	return a.decimals
}

// Normalized returns the value divided by 10^decimals, exactly. The
// scale is applied via the decimal's exponent, not a rounding division.
func (a Amount) Normalized() decimal.Decimal {
	if a.value == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(a.value, -a.decimals)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.value == nil || a.value.Sign() == 0
}

func (a Amount) String() string {
	return a.Normalized().String()
}
