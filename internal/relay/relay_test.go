package relay

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

type memorySink struct {
	mu      sync.Mutex
	batches []model.EventBatch
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Put(_ context.Context, batch model.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *memorySink) records() []model.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventRecord
	for _, b := range s.batches {
		out = append(out, b.Records...)
	}
	return out
}

type world struct {
	ledger  *ledger.Ledger
	program *amm.Program
	trader  solana.PublicKey
	base    solana.PublicKey
	quote   solana.PublicKey
	tBase   solana.PublicKey
	tQuote  solana.PublicKey
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		ledger: ledger.New(),
		trader: solana.NewWallet().PublicKey(),
		base:   solana.NewWallet().PublicKey(),
		quote:  solana.NewWallet().PublicKey(),
		tBase:  solana.NewWallet().PublicKey(),
		tQuote: solana.NewWallet().PublicKey(),
	}
	program, err := amm.NewProgram(amm.DefaultConfig(), w.ledger, nil, nil)
	if err != nil {
		t.Fatalf("new program: %v", err)
	}
	w.program = program

	authority := solana.NewWallet().PublicKey()
	_, err = w.ledger.Update(context.Background(), []solana.PublicKey{authority, w.trader}, func(tx *ledger.Tx) error {
		for _, m := range []solana.PublicKey{w.base, w.quote} {
			if err := tx.CreateMint(m, 6, authority, authority); err != nil {
				return err
			}
		}
		if err := tx.CreateTokenAccount(w.tBase, w.base, w.trader); err != nil {
			return err
		}
		if err := tx.CreateTokenAccount(w.tQuote, w.quote, w.trader); err != nil {
			return err
		}
		if err := tx.MintTo(w.base, w.tBase, authority, 100_000_000_000); err != nil {
			return err
		}
		return tx.MintTo(w.quote, w.tQuote, authority, 100_000_000_000)
	})
	if err != nil {
		t.Fatalf("fund trader: %v", err)
	}

	_, err = w.program.InitializeLiquidity(context.Background(), amm.InitializeRequest{
		LPDecimals:    6,
		PoolIndex:     1,
		BaseMint:      w.base,
		QuoteMint:     w.quote,
		BaseAmount:    10_000_000_000,
		QuoteAmount:   10_000_000_000,
		Provider:      w.trader,
		ProviderBase:  w.tBase,
		ProviderQuote: w.tQuote,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return w
}

func (w *world) swap(t *testing.T, amount uint64) {
	t.Helper()
	_, err := w.program.SwapBaseIn(context.Background(), amm.SwapRequest{
		PoolIndex:   1,
		AmountIn:    amount,
		User:        w.trader,
		Source:      w.tBase,
		Destination: w.tQuote,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
}

func TestRelayResumesFromCheckpoint(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 4; i++ {
		w.swap(t, 1_000_000)
	}

	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "relay", "state.json")}
	r := New(Config{BatchSize: 2}, w.ledger, w.program, sink, state, nil)

	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Records != 5 || stats.Batches != 3 || !stats.UpToDate {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(sink.batches[0].Pools) != 1 {
		t.Fatalf("creation batch should carry the pool state")
	}
	if got := sink.batches[0].Pools[0].LastSeq; got != 5 {
		t.Fatalf("pool state last seq = %d", got)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 5 {
		t.Fatalf("checkpoint = %d, %v, %v", last, ok, err)
	}

	stats, err = r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if stats.Batches != 0 || !stats.UpToDate {
		t.Fatalf("expected no work, got %+v", stats)
	}

	w.swap(t, 2_000_000)
	stats, err = r.Run(context.Background())
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if stats.Records != 1 || stats.From != 6 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	records := sink.records()
	for i, rec := range records {
		if rec.Seq != uint64(i+1) {
			t.Fatalf("record %d has seq %d", i, rec.Seq)
		}
	}
	if records[5].EventName != model.EventSwap {
		t.Fatalf("last record is %s", records[5].EventName)
	}
}

func TestRelayValidatesConfig(t *testing.T) {
	w := newWorld(t)
	if _, err := New(Config{}, w.ledger, w.program, &memorySink{}, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if _, err := New(Config{BatchSize: 1}, w.ledger, w.program, nil, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

func TestFileStateStoreMissing(t *testing.T) {
	s := &FileStateStore{Path: filepath.Join(t.TempDir(), "absent.json")}
	_, ok, err := s.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("missing file should be empty state: %v %v", ok, err)
	}
}
