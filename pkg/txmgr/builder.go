package txmgr

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/0xsequence/ethkit/go-ethereum/crypto"

	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

// BuildAndSign assembles and signs a transaction from the intent. The
// private key is a transient parameter: it is held only for the duration
// of this call and never logged or retained.
//
// The sender's pending nonce is read immediately before signing to keep
// the race window against concurrent transactions from the same sender
// minimal; callers that share a sender must serialize through Execute.
func (m *Manager) BuildAndSign(ctx context.Context, intent Intent, privateKey string) (*SignedTx, error) {
	node, err := m.node()
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	if intent.From != (common.Address{}) && intent.From != sender {
		return nil, fmt.Errorf("%w: key controls %s, intent is from %s",
			ErrInvalidKey, sender.Hex(), intent.From.Hex())
	}

	gasPrice := intent.GasPrice
	if gasPrice == nil {
		gasPrice, err = node.GasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve gas price: %w", err)
		}
	}

	gasLimit := intent.GasLimit
	if gasLimit == 0 {
		gasLimit, err = node.EstimateGas(ctx, ethereum.CallMsg{
			From:  sender,
			To:    intent.To,
			Value: intent.Value,
			Data:  intent.Data,
		})
		if err != nil {
			return nil, &SimulationError{Reason: err.Error()}
		}
	}

	value := intent.Value
	if value == nil {
		value = new(big.Int)
	}

	// Nonce read last, immediately before signing.
	nonce, err := node.PendingNonceAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonceResolution, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       intent.To,
		Value:    value,
		Data:     intent.Data,
	})

	signer := types.LatestSignerForChainID(big.NewInt(node.ChainID()))

	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return &SignedTx{
		Tx:     signed,
		Raw:    raw,
		Sender: sender,
		Nonce:  nonce,
	}, nil
}

// SenderOf derives the address controlled by a private key without
// retaining the key.
func SenderOf(privateKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return crypto.PubkeyToAddress(key.PublicKey), nil
}
