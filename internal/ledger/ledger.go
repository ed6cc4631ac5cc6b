package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger stores accounts and serializes writers per account.
type Ledger struct {
	mu     sync.RWMutex
	tokens map[solana.PublicKey]TokenAccount
	mints  map[solana.PublicKey]Mint
	data   map[solana.PublicKey]DataAccount
	logs   []LogEntry
	seq    uint64

	locksMu sync.Mutex
	locks   map[solana.PublicKey]chan struct{}

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		tokens: make(map[solana.PublicKey]TokenAccount),
		mints:  make(map[solana.PublicKey]Mint),
		data:   make(map[solana.PublicKey]DataAccount),
		locks:  make(map[solana.PublicKey]chan struct{}),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Update runs fn as one atomic unit while holding the write locks of keys.
// Writes made through the Tx become visible only if fn returns nil and ctx is
// still live; otherwise nothing is applied.
func (l *Ledger) Update(ctx context.Context, keys []solana.PublicKey, fn func(*Tx) error) (Receipt, error) {
	held, err := l.acquire(ctx, keys)
	if err != nil {
		return Receipt{}, err
	}
	defer l.release(held)

	tx := l.newTx(held, false)
	if err := fn(tx); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	return l.commit(tx), nil
}

// View runs fn with the locks of keys held and rejects every write.
func (l *Ledger) View(ctx context.Context, keys []solana.PublicKey, fn func(*Tx) error) error {
	held, err := l.acquire(ctx, keys)
	if err != nil {
		return err
	}
	defer l.release(held)
	return fn(l.newTx(held, true))
}

func (l *Ledger) newTx(held []solana.PublicKey, readOnly bool) *Tx {
	locked := make(map[solana.PublicKey]struct{}, len(held))
	for _, k := range held {
		locked[k] = struct{}{}
	}
	return &Tx{
		ledger:   l,
		id:       uuid.NewString(),
		now:      l.now(),
		readOnly: readOnly,
		locked:   locked,
		tokens:   make(map[solana.PublicKey]TokenAccount),
		mints:    make(map[solana.PublicKey]Mint),
		data:     make(map[solana.PublicKey]DataAccount),
	}
}

func (l *Ledger) commit(tx *Tx) Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range tx.tokens {
		l.tokens[k] = v
	}
	for k, v := range tx.mints {
		l.mints[k] = v
	}
	for k, v := range tx.data {
		l.data[k] = v
	}
	receipt := Receipt{TxID: tx.id, Timestamp: tx.now.Unix()}
	for _, entry := range tx.logs {
		l.seq++
		entry.Seq = l.seq
		l.logs = append(l.logs, entry)
		receipt.Logs = append(receipt.Logs, entry)
	}
	l.logger.Debug("transaction committed",
		zap.String("tx", tx.id),
		zap.Int("tokens", len(tx.tokens)),
		zap.Int("mints", len(tx.mints)),
		zap.Int("data", len(tx.data)),
		zap.Int("logs", len(tx.logs)),
	)
	return receipt
}

func (l *Ledger) lockFor(key solana.PublicKey) chan struct{} {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// acquire takes the locks of keys in byte order so overlapping writers cannot
// deadlock.
func (l *Ledger) acquire(ctx context.Context, keys []solana.PublicKey) ([]solana.PublicKey, error) {
	sorted := make([]solana.PublicKey, 0, len(keys))
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || k == (solana.PublicKey{}) {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	held := make([]solana.PublicKey, 0, len(sorted))
	for _, k := range sorted {
		select {
		case l.lockFor(k) <- struct{}{}:
			held = append(held, k)
		case <-ctx.Done():
			l.release(held)
			return nil, fmt.Errorf("lock %s: %w", k, ctx.Err())
		}
	}
	return held, nil
}

func (l *Ledger) release(held []solana.PublicKey) {
	for i := len(held) - 1; i >= 0; i-- {
		<-l.lockFor(held[i])
	}
}

// TokenAccount returns a committed token account.
func (l *Ledger) TokenAccount(addr solana.PublicKey) (TokenAccount, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.tokens[addr]
	return acc, ok
}

// Mint returns a committed mint.
func (l *Ledger) Mint(addr solana.PublicKey) (Mint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mints[addr]
	return m, ok
}

// AccountData returns a copy of a committed data account.
func (l *Ledger) AccountData(addr solana.PublicKey) (DataAccount, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.data[addr]
	if ok {
		acc.Data = append([]byte(nil), acc.Data...)
	}
	return acc, ok
}

// DataAccounts returns every committed data account owned by owner.
func (l *Ledger) DataAccounts(owner solana.PublicKey) []DataAccount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []DataAccount
	for _, acc := range l.data {
		if acc.Owner == owner {
			acc.Data = append([]byte(nil), acc.Data...)
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Logs returns committed log entries with Seq > after, in commit order.
func (l *Ledger) Logs(after uint64) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := sort.Search(len(l.logs), func(i int) bool { return l.logs[i].Seq > after })
	out := make([]LogEntry, len(l.logs)-idx)
	copy(out, l.logs[idx:])
	return out
}

// LastSeq is the sequence number of the newest log entry.
func (l *Ledger) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}
