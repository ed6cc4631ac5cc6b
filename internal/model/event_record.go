package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EventRecord is a committed event enriched with ledger metadata.
type EventRecord struct {
	Seq       uint64        `json:"seq"`
	TxID      string        `json:"tx_id"`
	Program   string        `json:"program"`
	Pool      string        `json:"pool,omitempty"`
	EventName string        `json:"event_name"`
	Timestamp int64         `json:"timestamp"`
	Data      hexutil.Bytes `json:"data"`
	Decoded   interface{}   `json:"decoded"`
}

// EventRecordRaw is the read-side form of EventRecord with the payload left
// undecoded.
type EventRecordRaw struct {
	Seq       uint64          `json:"seq"`
	TxID      string          `json:"tx_id"`
	Program   string          `json:"program"`
	Pool      string          `json:"pool,omitempty"`
	EventName string          `json:"event_name"`
	Timestamp int64           `json:"timestamp"`
	Data      hexutil.Bytes   `json:"data"`
	Decoded   json.RawMessage `json:"decoded"`
}

// EventBatch is what sinks receive after a commit: the event records and the
// pool states they left behind.
type EventBatch struct {
	Records []EventRecord `json:"records"`
	Pools   []PoolState   `json:"pools"`
}

// Empty reports whether the batch carries nothing to deliver.
func (b EventBatch) Empty() bool {
	return len(b.Records) == 0 && len(b.Pools) == 0
}
