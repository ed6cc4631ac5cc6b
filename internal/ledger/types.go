// Package ledger is an in-process account store: token accounts, mints and
// program data accounts behind per-account write locks, committed in atomic
// units together with an append-only log.
package ledger

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrMintNotFound      = errors.New("mint not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("amount overflow")
	ErrMintMismatch      = errors.New("mint mismatch")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotLocked         = errors.New("account not locked by transaction")
	ErrReadOnly          = errors.New("read-only transaction")
)

// TokenAccount holds a balance of one mint for one owner.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}

// Mint is a fungible asset definition.
type Mint struct {
	Address         solana.PublicKey `json:"address"`
	Decimals        uint8            `json:"decimals"`
	Supply          uint64           `json:"supply"`
	MintAuthority   solana.PublicKey `json:"mint_authority"`
	FreezeAuthority solana.PublicKey `json:"freeze_authority"`
}

// DataAccount is an opaque program-owned account.
type DataAccount struct {
	Address solana.PublicKey `json:"address"`
	Owner   solana.PublicKey `json:"owner"`
	Data    []byte           `json:"data"`
}

// LogEntry is one record appended by a committed transaction.
type LogEntry struct {
	Seq       uint64           `json:"seq"`
	TxID      string           `json:"tx_id"`
	Program   solana.PublicKey `json:"program"`
	Data      []byte           `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

// Receipt describes a committed transaction.
type Receipt struct {
	TxID      string
	Timestamp int64
	Logs      []LogEntry
}
