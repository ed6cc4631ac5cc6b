package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityAMM/internal/model"
)

// Store persists pools and their events in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Name implements events.Sink.
func (s *Store) Name() string { return "postgres" }

// Put writes a batch in one transaction: events are inserted once and pool
// rows are upserted.
func (s *Store) Put(ctx context.Context, batch model.EventBatch) error {
	if batch.Empty() {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEvents(ctx, tx, batch.Records); err != nil {
		return err
	}
	if err := upsertPools(ctx, tx, batch.Pools); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpsertPools inserts or updates pool rows.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolState) error {
	return upsertPools(ctx, s.pool, pools)
}

// InsertEvents inserts event records, ignoring ones already stored.
func (s *Store) InsertEvents(ctx context.Context, records []model.EventRecord) error {
	return insertEvents(ctx, s.pool, records)
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func upsertPools(ctx context.Context, db batchSender, pools []model.PoolState) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				program, pool_address, pool_index, base_mint, quote_mint, base_vault, quote_vault,
				lp_mint, lp_decimals, lp_supply, base_reserve, quote_reserve, fee_bps, open_time,
				last_seq, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (program, pool_address)
			DO UPDATE SET
				lp_supply = EXCLUDED.lp_supply,
				base_reserve = EXCLUDED.base_reserve,
				quote_reserve = EXCLUDED.quote_reserve,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
			WHERE pools.last_seq <= EXCLUDED.last_seq
		`,
			pool.Program,
			pool.Address,
			numeric(pool.Index),
			pool.BaseMint,
			pool.QuoteMint,
			pool.BaseVault,
			pool.QuoteVault,
			pool.LPMint,
			int16(pool.LPDecimals),
			numeric(pool.LPSupply),
			numeric(pool.BaseReserve),
			numeric(pool.QuoteReserve),
			int32(pool.FeeBps),
			pool.OpenTime,
			int64(pool.LastSeq),
		)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pool: %w", err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, db batchSender, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		decoded, err := json.Marshal(rec.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", rec.Seq, err)
		}
		var pool *string
		if rec.Pool != "" {
			pool = &rec.Pool
		}
		batch.Queue(`
			INSERT INTO pool_events (
				program, seq, tx_id, pool_address, event_name, event_ts, data, decoded, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (program, seq) DO NOTHING
		`,
			rec.Program,
			int64(rec.Seq),
			rec.TxID,
			pool,
			rec.EventName,
			rec.Timestamp,
			[]byte(rec.Data),
			string(decoded),
		)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// numeric renders a u64 for NUMERIC columns; BIGINT cannot hold the full range.
func numeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// LoadState returns the relay checkpoint for name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM relay_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts the relay checkpoint for name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}
