package contracts

import (
	"math/big"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	chaincommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
)

// ContractEvent is a decoded log entry. Args holds both indexed and
// non-indexed fields keyed by their ABI names.
type ContractEvent struct {
	Name        string
	Contract    chaincommon.Address
	TxHash      chaincommon.Hash
	BlockNumber uint64
	LogIndex    uint
	Args        map[string]interface{}
}

// DecodeLogs decodes every log that matches an event in parsed. Logs from
// unknown events are skipped rather than failing the batch: transactions
// routinely emit events from other contracts.
func DecodeLogs(parsed abi.ABI, logs []types.Log) []ContractEvent {
	events := make([]ContractEvent, 0, len(logs))

	for _, entry := range logs {
		decoded, ok := decodeLog(parsed, &entry)
		if !ok {
			continue
		}

		events = append(events, *decoded)
	}

	return events
}

func decodeLog(parsed abi.ABI, entry *types.Log) (*ContractEvent, bool) {
	if len(entry.Topics) == 0 {
		return nil, false
	}

	event, err := parsed.EventByID(entry.Topics[0])
	if err != nil {
		return nil, false
	}

	args := map[string]interface{}{}

	if len(entry.Data) > 0 {
		if err := parsed.UnpackIntoMap(args, event.Name, entry.Data); err != nil {
			return nil, false
		}
	}

	var indexed abi.Arguments

	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}

	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexed, entry.Topics[1:]); err != nil {
			return nil, false
		}
	}

	return &ContractEvent{
		Name:        event.Name,
		Contract:    entry.Address,
		TxHash:      entry.TxHash,
		BlockNumber: entry.BlockNumber,
		LogIndex:    entry.Index,
		Args:        args,
	}, true
}

// extractEventTopic scans receipt logs for the first event emitted by
// contract with the given topic0 and returns its topics[1] as a big int.
// The log position within the receipt is never fixed: marketplaces,
// proxies and royalty hooks emit their own events in the same
// transaction, so matching is by address and signature, not index.
func extractEventTopic(contract chaincommon.Address, topic0 chaincommon.Hash, logs []*types.Log) (*big.Int, error) {
	for _, entry := range logs {
		if entry.Address != contract {
			continue
		}

		if len(entry.Topics) < 2 || entry.Topics[0] != topic0 {
			continue
		}

		return entry.Topics[1].Big(), nil
	}

	return nil, ErrEventNotFound
}
