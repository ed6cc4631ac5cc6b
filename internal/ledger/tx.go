package ledger

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Tx is a staged view of the ledger inside Update or View. Reads see staged
// writes first. A write is allowed when the account itself, or its owner or
// authority, is among the locked keys.
type Tx struct {
	ledger   *Ledger
	id       string
	now      time.Time
	readOnly bool
	locked   map[solana.PublicKey]struct{}

	tokens map[solana.PublicKey]TokenAccount
	mints  map[solana.PublicKey]Mint
	data   map[solana.PublicKey]DataAccount
	logs   []LogEntry
}

// ID is the transaction identifier carried by its log entries.
func (tx *Tx) ID() string { return tx.id }

// Now is the transaction timestamp.
func (tx *Tx) Now() time.Time { return tx.now }

func (tx *Tx) writable(addr solana.PublicKey, authorities ...solana.PublicKey) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if _, ok := tx.locked[addr]; ok {
		return nil
	}
	for _, a := range authorities {
		if _, ok := tx.locked[a]; ok {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", addr, ErrNotLocked)
}

// Exists reports whether any kind of account lives at addr.
func (tx *Tx) Exists(addr solana.PublicKey) bool {
	if _, ok := tx.tokenAccount(addr); ok {
		return true
	}
	if _, ok := tx.mint(addr); ok {
		return true
	}
	_, ok := tx.dataAccount(addr)
	return ok
}

func (tx *Tx) tokenAccount(addr solana.PublicKey) (TokenAccount, bool) {
	if acc, ok := tx.tokens[addr]; ok {
		return acc, true
	}
	return tx.ledger.TokenAccount(addr)
}

func (tx *Tx) mint(addr solana.PublicKey) (Mint, bool) {
	if m, ok := tx.mints[addr]; ok {
		return m, true
	}
	return tx.ledger.Mint(addr)
}

func (tx *Tx) dataAccount(addr solana.PublicKey) (DataAccount, bool) {
	if acc, ok := tx.data[addr]; ok {
		return acc, true
	}
	return tx.ledger.AccountData(addr)
}

// TokenAccount reads a token account.
func (tx *Tx) TokenAccount(addr solana.PublicKey) (TokenAccount, error) {
	acc, ok := tx.tokenAccount(addr)
	if !ok {
		return TokenAccount{}, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	return acc, nil
}

// Mint reads a mint.
func (tx *Tx) Mint(addr solana.PublicKey) (Mint, error) {
	m, ok := tx.mint(addr)
	if !ok {
		return Mint{}, fmt.Errorf("mint %s: %w", addr, ErrMintNotFound)
	}
	return m, nil
}

// AccountData reads the bytes of a data account.
func (tx *Tx) AccountData(addr solana.PublicKey) ([]byte, error) {
	acc, ok := tx.dataAccount(addr)
	if !ok {
		return nil, fmt.Errorf("data account %s: %w", addr, ErrAccountNotFound)
	}
	return append([]byte(nil), acc.Data...), nil
}

// CreateDataAccount allocates a data account owned by owner.
func (tx *Tx) CreateDataAccount(addr, owner solana.PublicKey, data []byte) error {
	if err := tx.writable(addr); err != nil {
		return err
	}
	if tx.Exists(addr) {
		return fmt.Errorf("data account %s: %w", addr, ErrAccountExists)
	}
	tx.data[addr] = DataAccount{Address: addr, Owner: owner, Data: append([]byte(nil), data...)}
	return nil
}

// WriteAccountData replaces the bytes of an existing data account.
func (tx *Tx) WriteAccountData(addr solana.PublicKey, data []byte) error {
	if err := tx.writable(addr); err != nil {
		return err
	}
	acc, ok := tx.dataAccount(addr)
	if !ok {
		return fmt.Errorf("data account %s: %w", addr, ErrAccountNotFound)
	}
	acc.Data = append([]byte(nil), data...)
	tx.data[addr] = acc
	return nil
}

// CreateMint allocates a mint with zero supply.
func (tx *Tx) CreateMint(addr solana.PublicKey, decimals uint8, mintAuthority, freezeAuthority solana.PublicKey) error {
	if err := tx.writable(addr, mintAuthority); err != nil {
		return err
	}
	if tx.Exists(addr) {
		return fmt.Errorf("mint %s: %w", addr, ErrAccountExists)
	}
	tx.mints[addr] = Mint{
		Address:         addr,
		Decimals:        decimals,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}
	return nil
}

// CreateTokenAccount allocates an empty token account for mint.
func (tx *Tx) CreateTokenAccount(addr, mint, owner solana.PublicKey) error {
	if err := tx.writable(addr, owner); err != nil {
		return err
	}
	if tx.Exists(addr) {
		return fmt.Errorf("token account %s: %w", addr, ErrAccountExists)
	}
	if _, ok := tx.mint(mint); !ok {
		return fmt.Errorf("mint %s: %w", mint, ErrMintNotFound)
	}
	tx.tokens[addr] = TokenAccount{Address: addr, Mint: mint, Owner: owner}
	return nil
}

// Transfer moves amount between two token accounts of the same mint.
// authority must own the source account.
func (tx *Tx) Transfer(from, to, authority solana.PublicKey, amount uint64) error {
	src, err := tx.TokenAccount(from)
	if err != nil {
		return err
	}
	dst, err := tx.TokenAccount(to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("transfer from %s: %w", from, ErrUnauthorized)
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("transfer %s -> %s: %w", from, to, ErrMintMismatch)
	}
	if err := tx.writable(from, src.Owner); err != nil {
		return err
	}
	if err := tx.writable(to, dst.Owner); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer from %s: %w", from, ErrInsufficientFunds)
	}
	sum, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("transfer to %s: %w", to, ErrOverflow)
	}
	src.Amount -= amount
	dst.Amount = sum
	tx.tokens[from] = src
	tx.tokens[to] = dst
	return nil
}

// MintTo issues amount new units of mint into the to account.
func (tx *Tx) MintTo(mint, to, authority solana.PublicKey, amount uint64) error {
	m, err := tx.Mint(mint)
	if err != nil {
		return err
	}
	dst, err := tx.TokenAccount(to)
	if err != nil {
		return err
	}
	if m.MintAuthority != authority {
		return fmt.Errorf("mint %s: %w", mint, ErrUnauthorized)
	}
	if dst.Mint != mint {
		return fmt.Errorf("mint to %s: %w", to, ErrMintMismatch)
	}
	if err := tx.writable(mint, m.MintAuthority); err != nil {
		return err
	}
	if err := tx.writable(to, dst.Owner); err != nil {
		return err
	}
	supply, carry := bits.Add64(m.Supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint %s supply: %w", mint, ErrOverflow)
	}
	balance, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to %s: %w", to, ErrOverflow)
	}
	m.Supply = supply
	dst.Amount = balance
	tx.mints[mint] = m
	tx.tokens[to] = dst
	return nil
}

// Burn destroys amount units held in from. authority must own from.
func (tx *Tx) Burn(mint, from, authority solana.PublicKey, amount uint64) error {
	m, err := tx.Mint(mint)
	if err != nil {
		return err
	}
	src, err := tx.TokenAccount(from)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("burn from %s: %w", from, ErrUnauthorized)
	}
	if src.Mint != mint {
		return fmt.Errorf("burn from %s: %w", from, ErrMintMismatch)
	}
	if err := tx.writable(from, src.Owner); err != nil {
		return err
	}
	if err := tx.writable(mint, m.MintAuthority); err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("burn from %s: %w", from, ErrInsufficientFunds)
	}
	src.Amount -= amount
	m.Supply -= amount
	tx.tokens[from] = src
	tx.mints[mint] = m
	return nil
}

// Emit appends a log entry that is committed with the transaction.
func (tx *Tx) Emit(program solana.PublicKey, data []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.logs = append(tx.logs, LogEntry{
		TxID:      tx.id,
		Program:   program,
		Data:      append([]byte(nil), data...),
		Timestamp: tx.now.Unix(),
	})
	return nil
}
