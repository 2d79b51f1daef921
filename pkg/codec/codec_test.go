package codec

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"lowercase", "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"checksummed", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", true},
		{"uppercase hex", "0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045", true},
		{"zero address", "0x" + strings.Repeat("0", 40), true},
		{"missing prefix", "d8da6bf26964af9d7eed9e03e53415d37aa96045", false},
		{"too short", "0xd8da6bf26964af9d7eed9e03e53415d37aa9604", false},
		{"too long", "0xd8da6bf26964af9d7eed9e03e53415d37aa960450", false},
		{"non-hex", "0xZZda6bf26964af9d7eed9e03e53415d37aa96045", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateAddress(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	require.NoError(t, err)
	assert.Equal(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", got)

	_, err = NormalizeAddress("not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestToChecksumIdempotent(t *testing.T) {
	addresses := []string{
		"0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
		"0x" + strings.Repeat("a", 40),
	}

	for _, addr := range addresses {
		once, err := ToChecksum(addr)
		require.NoError(t, err)

		twice, err := ToChecksum(once)
		require.NoError(t, err)

		assert.Equal(t, once, twice, "checksum must be idempotent for %s", addr)
		assert.Equal(t, strings.ToLower(addr), strings.ToLower(once))
	}
}

func TestToChecksumKnownVectors(t *testing.T) {
	// Vectors from EIP-55.
	vectors := map[string]string{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359": "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb": "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	}

	for in, want := range vectors {
		got, err := ToChecksum(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestValidateHash(t *testing.T) {
	assert.True(t, ValidateHash("0x"+strings.Repeat("ab", 32)))
	assert.False(t, ValidateHash("0x"+strings.Repeat("ab", 31)))
	assert.False(t, ValidateHash(strings.Repeat("ab", 33)))
}

func TestWeiEtherRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(99),
		big.NewInt(21000),
		new(big.Int).SetUint64(1e18),
		func() *big.Int {
			v, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
			return v
		}(),
	}

	for _, wei := range values {
		ether := WeiToEther(wei)

		back, err := EtherToWei(ether)
		require.NoError(t, err)

		assert.Zero(t, wei.Cmp(back), "round trip mismatch for %s: got %s", wei, back)
	}
}

func TestWeiToEtherExactAtFullScale(t *testing.T) {
	// Sub-16-digit fractions and the low digits of wide values are where
	// a rounding division would silently lose wei.
	tests := []struct {
		wei  string
		want string
	}{
		{"1", "0.000000000000000001"},
		{"99", "0.000000000000000099"},
		{"1000000000000000001", "1.000000000000000001"},
		{"123456789012345678901234567890", "123456789012.34567890123456789"},
	}

	for _, tt := range tests {
		wei, ok := new(big.Int).SetString(tt.wei, 10)
		require.True(t, ok)

		assert.Equal(t, tt.want, WeiToEther(wei).String(), "wei %s", tt.wei)
	}
}

func TestEtherToWeiRejectsSubWei(t *testing.T) {
	tooFine := decimal.New(1, -19) // 0.0000000000000000001 ETH

	_, err := EtherToWei(tooFine)
	assert.Error(t, err)
}

func TestEtherToWeiRejectsNegative(t *testing.T) {
	_, err := EtherToWei(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestAmount(t *testing.T) {
	a, err := NewEtherAmount(new(big.Int).SetUint64(15e17))
	require.NoError(t, err)

	assert.Equal(t, "1.5", a.Normalized().String())
	assert.False(t, a.IsZero())

	// One smallest unit must survive normalization at full scale.
	dust, err := NewEtherAmount(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000001", dust.String())

	_, err = NewAmount(big.NewInt(-1), 18)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	zero := ZeroAmount()
	assert.True(t, zero.IsZero())
	assert.Equal(t, "0", zero.String())
}

func TestAmountValueIsCopied(t *testing.T) {
	v := big.NewInt(100)

	a, err := NewAmount(v, 6)
	require.NoError(t, err)

	v.SetInt64(999)
	assert.Equal(t, int64(100), a.Value().Int64())

	a.Value().SetInt64(5)
	assert.Equal(t, int64(100), a.Value().Int64())
}
