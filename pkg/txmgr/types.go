package txmgr

import (
	"fmt"
	"math/big"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

// NodeSource yields a healthy node of the connected network. Implemented
// by ethereum.Pool.
type NodeSource interface {
	GetHealthyNode() ethereum.Node
	Network() *ethereum.Network
}

// Intent is a transient request to move value or call a contract. It is
// never persisted; it lives only long enough to be signed and submitted.
type Intent struct {
	// From must be controlled by the signing key. The zero address means
	// "derive from the key".
	From common.Address
	// To is the recipient or contract. Nil deploys a contract.
	To *common.Address
	// Value in wei.
	Value *big.Int
	// GasLimit caps gas spend. Zero means estimate.
	GasLimit uint64
	// GasPrice in wei. Nil means resolve from the node at signing time.
	GasPrice *big.Int
	// Data is the contract call data, empty for plain transfers.
	Data []byte
}

// SignedTx is a signed, encoded transaction. Produced once, submitted
// once; re-submission with the same nonce either no-ops or fails
// depending on node state.
type SignedTx struct {
	Tx     *types.Transaction
	Raw    []byte
	Sender common.Address
	Nonce  uint64
}

// Hash returns the transaction hash of the signed payload.
func (s *SignedTx) Hash() common.Hash {
	return s.Tx.Hash()
}

// GasEstimate is the result of a fresh gas simulation. Gas price is
// volatile, so estimates must not be reused across transactions.
type GasEstimate struct {
	GasLimit      uint64
	GasPrice      *big.Int
	EstimatedCost decimal.Decimal // in ether, exact
}

// TotalCostWei returns gas_limit * gas_price in wei.
func (e GasEstimate) TotalCostWei() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(e.GasLimit), e.GasPrice)
}

type Config struct {
	// ConfirmationTimeout bounds each confirmation wait.
	ConfirmationTimeout time.Duration `yaml:"confirmationTimeout" default:"300s"`
	// PollInterval is the receipt polling interval.
	PollInterval time.Duration `yaml:"pollInterval" default:"2s"`
	// SubmitRetries is the number of extra broadcast attempts after a
	// transport-level failure. Node rejections are never retried.
	SubmitRetries uint64 `yaml:"submitRetries" default:"2"`
}

func (c *Config) Validate() error {
	if c.ConfirmationTimeout <= 0 {
		return fmt.Errorf("confirmationTimeout must be positive")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive")
	}

	return nil
}
