package ethereum

import (
	"math/big"

	"github.com/0xsequence/ethkit/go-ethereum/common"
)

// CallMsg describes a contract call or gas estimation request.
type CallMsg struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte
}

// LogFilter selects logs by block range, emitting contract and topics.
type LogFilter struct {
	FromBlock *big.Int
	ToBlock   *big.Int
	Addresses []common.Address
	Topics    [][]common.Hash
}

// HeaderInfo carries the block header fields the broker reads. PoA chains
// deliver headers that fail strict deserialization, so only these fields
// are decoded.
type HeaderInfo struct {
	Number    uint64
	Timestamp uint64
	Hash      common.Hash
}

// NetworkInfo is a live snapshot of the connected network.
type NetworkInfo struct {
	Network     string
	ChainID     int64
	LatestBlock uint64
	BlockTime   uint64
	GasPrice    *big.Int
}
