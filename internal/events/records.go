package events

import (
	"github.com/gagliardetto/solana-go"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// NewRecord decodes a ledger log entry into an event record. Entries that do
// not decode are reported through the returned DecodeError.
func NewRecord(entry ledger.LogEntry) (model.EventRecord, *model.DecodeError) {
	rec := model.EventRecord{
		Seq:       entry.Seq,
		TxID:      entry.TxID,
		Program:   entry.Program.String(),
		Timestamp: entry.Timestamp,
		Data:      entry.Data,
	}
	ev, err := Decode(entry.Data)
	if err != nil {
		prefix := ""
		if len(entry.Data) >= 8 {
			prefix = solana.Base58(entry.Data[:8]).String()
		}
		return rec, &model.DecodeError{
			Seq:     entry.Seq,
			TxID:    entry.TxID,
			Program: rec.Program,
			Prefix:  prefix,
			Error:   err.Error(),
		}
	}
	rec.EventName = ev.EventName()
	rec.Decoded = ev
	rec.Pool = poolOf(ev)
	return rec, nil
}

// NewRecords decodes every entry, skipping those that fail.
func NewRecords(entries []ledger.LogEntry) ([]model.EventRecord, []model.DecodeError) {
	records := make([]model.EventRecord, 0, len(entries))
	var failed []model.DecodeError
	for _, entry := range entries {
		rec, derr := NewRecord(entry)
		if derr != nil {
			failed = append(failed, *derr)
			continue
		}
		records = append(records, rec)
	}
	return records, failed
}

func poolOf(ev model.Event) string {
	switch e := ev.(type) {
	case model.DepositEvent:
		return e.Pool.String()
	case model.SwapEvent:
		return e.Pool.String()
	case model.WithdrawEvent:
		return e.Pool.String()
	default:
		return ""
	}
}
