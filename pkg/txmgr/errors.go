package txmgr

import (
	"errors"
	"fmt"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
)

// Sentinel errors for the transaction lifecycle.
var (
	// ErrInvalidKey indicates malformed key material or a key that does
	// not control the intent's sender.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrNonceResolution indicates the sender's pending nonce could not
	// be read.
	ErrNonceResolution = errors.New("nonce resolution failed")

	// ErrSigningFailed indicates the transaction could not be signed or
	// encoded.
	ErrSigningFailed = errors.New("signing failed")

	// ErrSubmissionRejected indicates the node refused the raw
	// transaction before accepting it into its pool. Terminal for that
	// exact payload; the caller must rebuild with a fresh nonce/gas.
	ErrSubmissionRejected = errors.New("submission rejected by node")

	// ErrConfirmationTimeout indicates no receipt was observed within the
	// wait window. NOT a transaction failure: the transaction may still
	// confirm later, so callers should re-poll rather than resubmit.
	ErrConfirmationTimeout = errors.New("confirmation timed out")

	// ErrSimulationFailed indicates the gas estimation dry-run reverted.
	ErrSimulationFailed = errors.New("simulation failed")

	// ErrTransactionFailed indicates an on-chain revert. Terminal.
	ErrTransactionFailed = errors.New("transaction failed on-chain")
)

// SimulationError carries the revert reason from a failed dry-run, the
// primary way callers learn a transaction would fail before paying for it.
type SimulationError struct {
	Reason string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %s", e.Reason)
}

func (e *SimulationError) Unwrap() error {
	return ErrSimulationFailed
}

// TxFailedError carries the receipt of a reverted transaction for
// diagnostics.
type TxFailedError struct {
	Hash    common.Hash
	Receipt *types.Receipt
}

func (e *TxFailedError) Error() string {
	if e.Receipt != nil && e.Receipt.BlockNumber != nil {
		return fmt.Sprintf("transaction %s reverted in block %s", e.Hash.Hex(), e.Receipt.BlockNumber)
	}

	return fmt.Sprintf("transaction %s reverted", e.Hash.Hex())
}

func (e *TxFailedError) Unwrap() error {
	return ErrTransactionFailed
}
