package watcher

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// ArchiveReceiptTaskType is the task type for archiving a confirmed
// transaction's events.
const ArchiveReceiptTaskType = "tx:archive"

// ArchivePayload identifies a confirmed transaction whose events should
// be decoded and archived.
//
//nolint:tagliatelle // snake_case required for backwards compatibility with queued tasks
type ArchivePayload struct {
	TxHash  string `json:"tx_hash"`
	Network string `json:"network"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *ArchivePayload) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *ArchivePayload) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

// NewArchiveTask creates a task to archive a confirmed transaction.
func NewArchiveTask(payload *ArchivePayload) (*asynq.Task, error) {
	data, err := payload.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(ArchiveReceiptTaskType, data), nil
}
