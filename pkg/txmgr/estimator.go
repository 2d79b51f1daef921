package txmgr

import (
	"context"
	"errors"
	"math/big"

	"github.com/0xsequence/ethkit/go-ethereum/common"

	"github.com/artchain-labs/nft-broker/pkg/codec"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

// EstimateGas simulates the call and returns a fresh estimate. Gas price
// is read per call: a stale price causes underpriced rejections or
// overpayment. A reverting simulation yields SimulationError with the
// node's revert reason.
func (m *Manager) EstimateGas(ctx context.Context, from common.Address, to *common.Address, data []byte, value *big.Int) (*GasEstimate, error) {
	node, err := m.node()
	if err != nil {
		return nil, err
	}

	gasLimit, err := node.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, &SimulationError{Reason: err.Error()}
	}

	gasPrice, err := node.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	totalWei := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)

	return &GasEstimate{
		GasLimit:      gasLimit,
		GasPrice:      gasPrice,
		EstimatedCost: codec.WeiToEther(totalWei),
	}, nil
}
