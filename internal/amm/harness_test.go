package amm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"liquidityAMM/internal/events"
	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	batches []model.EventBatch
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Put(_ context.Context, batch model.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) records() []model.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventRecord
	for _, b := range s.batches {
		out = append(out, b.Records...)
	}
	return out
}

type user struct {
	key   solana.PublicKey
	base  solana.PublicKey
	quote solana.PublicKey
}

type harness struct {
	t         *testing.T
	ledger    *ledger.Ledger
	program   *Program
	sink      *recordingSink
	authority solana.PublicKey
	base      solana.PublicKey
	quote     solana.PublicKey
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	l := ledger.New(ledger.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	sink := &recordingSink{}
	program, err := NewProgram(cfg, l, sink, nil)
	require.NoError(t, err)

	h := &harness{
		t:         t,
		ledger:    l,
		program:   program,
		sink:      sink,
		authority: solana.NewWallet().PublicKey(),
	}
	h.base = h.newMint(9)
	h.quote = h.newMint(6)
	return h
}

func (h *harness) newMint(decimals uint8) solana.PublicKey {
	h.t.Helper()
	mint := solana.NewWallet().PublicKey()
	_, err := h.ledger.Update(context.Background(), []solana.PublicKey{h.authority}, func(tx *ledger.Tx) error {
		return tx.CreateMint(mint, decimals, h.authority, h.authority)
	})
	require.NoError(h.t, err)
	return mint
}

func (h *harness) newUser(baseAmount, quoteAmount uint64) user {
	h.t.Helper()
	u := user{
		key:   solana.NewWallet().PublicKey(),
		base:  solana.NewWallet().PublicKey(),
		quote: solana.NewWallet().PublicKey(),
	}
	_, err := h.ledger.Update(context.Background(), []solana.PublicKey{h.authority, u.key}, func(tx *ledger.Tx) error {
		if err := tx.CreateTokenAccount(u.base, h.base, u.key); err != nil {
			return err
		}
		if err := tx.CreateTokenAccount(u.quote, h.quote, u.key); err != nil {
			return err
		}
		if err := tx.MintTo(h.base, u.base, h.authority, baseAmount); err != nil {
			return err
		}
		return tx.MintTo(h.quote, u.quote, h.authority, quoteAmount)
	})
	require.NoError(h.t, err)
	return u
}

func (h *harness) balance(addr solana.PublicKey) uint64 {
	h.t.Helper()
	acc, ok := h.ledger.TokenAccount(addr)
	require.True(h.t, ok, "token account %s missing", addr)
	return acc.Amount
}

func (h *harness) initRequest(index uint64, provider user, b0, q0 uint64) InitializeRequest {
	return InitializeRequest{
		LPDecimals:    9,
		PoolIndex:     index,
		BaseMint:      h.base,
		QuoteMint:     h.quote,
		BaseAmount:    b0,
		QuoteAmount:   q0,
		Provider:      provider.key,
		ProviderBase:  provider.base,
		ProviderQuote: provider.quote,
	}
}

// seedPool creates pool index with the reference 2e9/1e9 reserves.
func (h *harness) seedPool(index uint64) (InitializeResult, user) {
	h.t.Helper()
	provider := h.newUser(10_000_000_000, 10_000_000_000)
	res, err := h.program.InitializeLiquidity(context.Background(), h.initRequest(index, provider, 2_000_000_000, 1_000_000_000))
	require.NoError(h.t, err)
	return res, provider
}

func (h *harness) lastEvent() model.Event {
	h.t.Helper()
	logs := h.ledger.Logs(0)
	require.NotEmpty(h.t, logs)
	ev, err := events.Decode(logs[len(logs)-1].Data)
	require.NoError(h.t, err)
	return ev
}
