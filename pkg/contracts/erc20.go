package contracts

import (
	"context"
	"fmt"
	"math/big"

	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"

	"github.com/artchain-labs/nft-broker/pkg/txmgr"
)

// ERC20 is a read-only wrapper for token balance queries.
type ERC20 struct {
	binding
}

func NewERC20(address chaincommon.Address, nodes txmgr.NodeSource) *ERC20 {
	return &ERC20{
		binding: binding{
			name:    "erc20",
			abi:     ERC20ABI,
			address: address,
			nodes:   nodes,
		},
	}
}

// BalanceOf returns the token balance of owner in the token's smallest
// unit.
func (c *ERC20) BalanceOf(ctx context.Context, owner chaincommon.Address) (*big.Int, error) {
	values, err := c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output type %T", values[0])
	}

	return balance, nil
}

// Decimals returns the token's decimal places.
func (c *ERC20) Decimals(ctx context.Context) (uint8, error) {
	values, err := c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals output type %T", values[0])
	}

	return decimals, nil
}
