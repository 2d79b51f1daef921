package archive

import (
	"time"

	"github.com/ClickHouse/ch-go/proto"
)

// Columns holds all columns for the contract_events batch insert using
// the ch-go columnar protocol.
type Columns struct {
	ArchivedDateTime proto.ColDateTime
	Network          proto.ColStr
	Contract         proto.ColStr
	EventName        proto.ColStr
	TxHash           proto.ColStr
	BlockNumber      proto.ColUInt64
	LogIndex         proto.ColUInt32
	Args             proto.ColStr
}

// Row is one archived event.
type Row struct {
	ArchivedDateTime time.Time
	Network          string
	Contract         string
	EventName        string
	TxHash           string
	BlockNumber      uint64
	LogIndex         uint32
	Args             string // JSON-encoded event arguments
}

// Append adds a row to all columns.
func (c *Columns) Append(row Row) {
	c.ArchivedDateTime.Append(row.ArchivedDateTime)
	c.Network.Append(row.Network)
	c.Contract.Append(row.Contract)
	c.EventName.Append(row.EventName)
	c.TxHash.Append(row.TxHash)
	c.BlockNumber.Append(row.BlockNumber)
	c.LogIndex.Append(row.LogIndex)
	c.Args.Append(row.Args)
}

// Reset clears all columns for reuse.
func (c *Columns) Reset() {
	c.ArchivedDateTime.Reset()
	c.Network.Reset()
	c.Contract.Reset()
	c.EventName.Reset()
	c.TxHash.Reset()
	c.BlockNumber.Reset()
	c.LogIndex.Reset()
	c.Args.Reset()
}

// Input returns the proto.Input for inserting data.
func (c *Columns) Input() proto.Input {
	return proto.Input{
		{Name: "archived_date_time", Data: &c.ArchivedDateTime},
		{Name: "network", Data: &c.Network},
		{Name: "contract", Data: &c.Contract},
		{Name: "event_name", Data: &c.EventName},
		{Name: "tx_hash", Data: &c.TxHash},
		{Name: "block_number", Data: &c.BlockNumber},
		{Name: "log_index", Data: &c.LogIndex},
		{Name: "args", Data: &c.Args},
	}
}

// Rows returns the number of rows in the columns.
func (c *Columns) Rows() int {
	return c.BlockNumber.Rows()
}
