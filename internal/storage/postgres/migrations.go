package postgres

import (
	"context"
	"fmt"
)

// Migration is one forward schema step.
type Migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "pools and events",
		Up: `
		CREATE TABLE IF NOT EXISTS pools (
			program TEXT NOT NULL,
			pool_address TEXT NOT NULL,
			pool_index NUMERIC(20,0) NOT NULL,
			base_mint TEXT NOT NULL,
			quote_mint TEXT NOT NULL,
			base_vault TEXT NOT NULL,
			quote_vault TEXT NOT NULL,
			lp_mint TEXT NOT NULL,
			lp_decimals SMALLINT NOT NULL,
			lp_supply NUMERIC(20,0) NOT NULL,
			base_reserve NUMERIC(20,0) NOT NULL,
			quote_reserve NUMERIC(20,0) NOT NULL,
			fee_bps INT NOT NULL,
			open_time BIGINT NOT NULL,
			last_seq BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (program, pool_address)
		);

		CREATE TABLE IF NOT EXISTS pool_events (
			program TEXT NOT NULL,
			seq BIGINT NOT NULL,
			tx_id TEXT NOT NULL,
			pool_address TEXT,
			event_name TEXT NOT NULL,
			event_ts BIGINT NOT NULL,
			data BYTEA NOT NULL,
			decoded JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (program, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_pool_events_pool ON pool_events(pool_address, seq);
		CREATE INDEX IF NOT EXISTS idx_pool_events_name ON pool_events(event_name);
		`,
	},
	{
		Version:     2,
		Description: "relay checkpoints",
		Up: `
		CREATE TABLE IF NOT EXISTS relay_state (
			name TEXT PRIMARY KEY,
			last_seq BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		`,
	},
}

// Migrate applies every migration newer than the recorded schema version in
// one transaction.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin migrations: %w", err)
	}
	defer tx.Rollback(ctx)

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := tx.Exec(ctx, m.Up); err != nil {
			return 0, fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description,
		); err != nil {
			return 0, fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit migrations: %w", err)
	}
	return applied, nil
}
