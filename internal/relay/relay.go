// Package relay re-delivers committed ledger events to sinks, resuming from
// a persisted checkpoint. It backfills sinks that were offline or added after
// the events were committed.
package relay

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/events"
	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// Config holds relay settings.
type Config struct {
	FromSeq   uint64
	BatchSize uint64
}

// PoolReader reads current pool state.
type PoolReader interface {
	ID() solana.PublicKey
	PoolAt(ctx context.Context, addr solana.PublicKey) (amm.PoolInfo, error)
	Pools(ctx context.Context) ([]amm.PoolInfo, error)
}

// Stats summarizes one Run.
type Stats struct {
	From     uint64
	To       uint64
	Records  int
	Failed   int
	Batches  int
	UpToDate bool
}

// Relay streams ledger log entries to a sink in batches.
type Relay struct {
	cfg    Config
	ledger *ledger.Ledger
	pools  PoolReader
	sink   events.Sink
	state  StateStore
	logger *zap.Logger
}

// New builds a Relay. state may be nil to always start at cfg.FromSeq.
func New(cfg Config, l *ledger.Ledger, pools PoolReader, sink events.Sink, state StateStore, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{cfg: cfg, ledger: l, pools: pools, sink: sink, state: state, logger: logger}
}

// Run delivers every entry after the checkpoint up to the current head.
func (r *Relay) Run(ctx context.Context) (Stats, error) {
	if r.ledger == nil {
		return Stats{}, fmt.Errorf("ledger is nil")
	}
	if r.sink == nil {
		return Stats{}, fmt.Errorf("sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return Stats{}, fmt.Errorf("batch size must be greater than zero")
	}

	from := r.cfg.FromSeq
	if from == 0 {
		from = 1
	}
	if r.state != nil {
		last, ok, err := r.state.Load(ctx)
		if err != nil {
			return Stats{}, err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", last), zap.Uint64("from", from))
		}
	}

	to := r.ledger.LastSeq()
	stats := Stats{From: from, To: to}
	if from > to {
		r.logger.Info("nothing to relay", zap.Uint64("from", from), zap.Uint64("to", to))
		stats.UpToDate = true
		return stats, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, seqRange := range ranges {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		entries := entriesIn(r.ledger.Logs(seqRange.From-1), seqRange.To)
		records, failed := events.NewRecords(entries)
		for _, f := range failed {
			r.logger.Warn("skip undecodable entry", zap.Uint64("seq", f.Seq), zap.String("error", f.Error))
		}

		pools, err := r.poolStates(ctx, records, to)
		if err != nil {
			return stats, err
		}
		if err := r.sink.Put(ctx, model.EventBatch{Records: records, Pools: pools}); err != nil {
			return stats, fmt.Errorf("deliver seq %d-%d: %w", seqRange.From, seqRange.To, err)
		}
		if r.state != nil {
			if err := r.state.Save(ctx, seqRange.To); err != nil {
				return stats, err
			}
		}

		stats.Records += len(records)
		stats.Failed += len(failed)
		stats.Batches++
		r.logger.Info("batch relayed",
			zap.Int("records", len(records)),
			zap.Int("pools", len(pools)),
			zap.Uint64("from", seqRange.From),
			zap.Uint64("to", seqRange.To),
		)
	}
	stats.UpToDate = true
	return stats, nil
}

func entriesIn(entries []ledger.LogEntry, to uint64) []ledger.LogEntry {
	for i, e := range entries {
		if e.Seq > to {
			return entries[:i]
		}
	}
	return entries
}

// poolStates reads the current state of every pool the records touch.
// Creation events carry no pool address, so a batch holding one refreshes
// all pools of the program.
func (r *Relay) poolStates(ctx context.Context, records []model.EventRecord, head uint64) ([]model.PoolState, error) {
	if r.pools == nil || len(records) == 0 {
		return nil, nil
	}

	var infos []amm.PoolInfo
	refreshAll := false
	touched := make(map[string]struct{})
	for _, rec := range records {
		if rec.EventName == model.EventInitializeLiquidityPool {
			refreshAll = true
			break
		}
		if rec.Pool != "" {
			touched[rec.Pool] = struct{}{}
		}
	}

	if refreshAll {
		all, err := r.pools.Pools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pools: %w", err)
		}
		infos = all
	} else {
		for addr := range touched {
			key, err := solana.PublicKeyFromBase58(addr)
			if err != nil {
				return nil, fmt.Errorf("pool address %q: %w", addr, err)
			}
			info, err := r.pools.PoolAt(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("read pool %s: %w", addr, err)
			}
			infos = append(infos, info)
		}
	}

	states := make([]model.PoolState, 0, len(infos))
	for _, info := range infos {
		state := info.State(r.pools.ID())
		state.LastSeq = head
		states = append(states, state)
	}
	return states, nil
}
