package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
)

const snapshotVersion = 1

// Snapshot is the on-disk form of a ledger.
type Snapshot struct {
	Version   int            `json:"version"`
	Seq       uint64         `json:"seq"`
	Tokens    []TokenAccount `json:"tokens"`
	Mints     []Mint         `json:"mints"`
	Data      []DataAccount  `json:"data"`
	Logs      []LogEntry     `json:"logs"`
	UpdatedAt string         `json:"updated_at"`
}

// Snapshot copies the committed state. Accounts are sorted by address so
// identical ledgers produce identical files.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Version: snapshotVersion,
		Seq:     l.seq,
		Logs:    append([]LogEntry(nil), l.logs...),
	}
	for _, acc := range l.tokens {
		snap.Tokens = append(snap.Tokens, acc)
	}
	for _, m := range l.mints {
		snap.Mints = append(snap.Mints, m)
	}
	for _, acc := range l.data {
		snap.Data = append(snap.Data, acc)
	}
	sort.Slice(snap.Tokens, func(i, j int) bool {
		return bytes.Compare(snap.Tokens[i].Address[:], snap.Tokens[j].Address[:]) < 0
	})
	sort.Slice(snap.Mints, func(i, j int) bool {
		return bytes.Compare(snap.Mints[i].Address[:], snap.Mints[j].Address[:]) < 0
	})
	sort.Slice(snap.Data, func(i, j int) bool {
		return bytes.Compare(snap.Data[i].Address[:], snap.Data[j].Address[:]) < 0
	})
	return snap
}

// Restore replaces the ledger contents with snap.
func (l *Ledger) Restore(snap Snapshot) error {
	if snap.Version != 0 && snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = make(map[solana.PublicKey]TokenAccount, len(snap.Tokens))
	for _, acc := range snap.Tokens {
		l.tokens[acc.Address] = acc
	}
	l.mints = make(map[solana.PublicKey]Mint, len(snap.Mints))
	for _, m := range snap.Mints {
		l.mints[m.Address] = m
	}
	l.data = make(map[solana.PublicKey]DataAccount, len(snap.Data))
	for _, acc := range snap.Data {
		l.data[acc.Address] = acc
	}
	l.logs = append([]LogEntry(nil), snap.Logs...)
	l.seq = snap.Seq
	if n := len(l.logs); n > 0 && l.logs[n-1].Seq > l.seq {
		l.seq = l.logs[n-1].Seq
	}
	return nil
}

// Save writes the ledger to path via a temporary file and rename.
func (l *Ledger) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	snap := l.Snapshot()
	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// Load restores a ledger from path. A missing file yields an empty ledger.
func Load(path string, opts ...Option) (*Ledger, error) {
	l := New(opts...)

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("stat state: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if err := l.Restore(snap); err != nil {
		return nil, err
	}
	return l, nil
}
