package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/config"
	"liquidityAMM/internal/events"
	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/pda"
	"liquidityAMM/internal/relay"
	"liquidityAMM/internal/storage"
	"liquidityAMM/internal/storage/postgres"
)

// app is the per-invocation wiring shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	ledger  *ledger.Ledger
	program *amm.Program
	store   *postgres.Store
	sink    events.Sink
	// loadedSeq is the log head when the snapshot was loaded.
	loadedSeq uint64
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	programCfg, err := programConfig(cfg)
	if err != nil {
		return nil, err
	}

	l, err := ledger.Load(cfg.StatePath, ledger.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, ledger: l, loadedSeq: l.LastSeq()}

	var sinks []events.Sink
	if cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.EventsOut))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		applied, err := store.Migrate(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		if applied > 0 {
			logger.Info("postgres migrated", zap.Int("applied", applied))
		}
		a.store = store
		sinks = append(sinks, store)
	}
	if len(sinks) > 0 {
		a.sink = events.NewDispatcher(logger, sinks,
			events.WithMaxTries(cfg.SinkRetries),
			events.WithBackOff(events.ExponentialBackOff(cfg.SinkBackoff, cfg.SinkBackoffMax)),
		)
	}

	// Delivery goes through the relay after the snapshot is saved, so the
	// program itself runs without a sink.
	a.program, err = amm.NewProgram(programCfg, l, nil, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("ledger loaded",
		zap.String("state", cfg.StatePath),
		zap.Uint64("last_seq", l.LastSeq()),
		zap.String("program", programCfg.ProgramID.String()),
		zap.String("vault_scheme", programCfg.VaultScheme.String()),
		zap.Int("sinks", len(sinks)),
	)
	return a, nil
}

func programConfig(cfg config.Config) (amm.Config, error) {
	out := amm.DefaultConfig()
	if cfg.ProgramID != "" {
		id, err := solana.PublicKeyFromBase58(cfg.ProgramID)
		if err != nil {
			return amm.Config{}, fmt.Errorf("invalid program-id: %w", err)
		}
		out.ProgramID = id
	}
	scheme, err := pda.ParseVaultScheme(cfg.VaultScheme)
	if err != nil {
		return amm.Config{}, err
	}
	out.VaultScheme = scheme
	out.LegacyPool = cfg.LegacyPool
	out.FeeBps = cfg.FeeBps
	return out, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// commit persists the ledger and then forwards the new log entries. A
// delivery failure is logged and picked up by the next run. Without a
// checkpoint store only the entries committed by this invocation are sent.
func (a *app) commit(ctx context.Context) error {
	if err := a.ledger.Save(a.cfg.StatePath); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if a.sink == nil {
		return nil
	}
	cfg := relay.Config{BatchSize: a.cfg.BatchSize}
	if a.stateStore() == nil {
		cfg.FromSeq = a.loadedSeq + 1
	}
	if _, err := a.relay(cfg).Run(ctx); err != nil {
		a.logger.Warn("event delivery deferred", zap.Error(err))
	}
	return nil
}

func (a *app) relay(cfg relay.Config) *relay.Relay {
	return relay.New(cfg, a.ledger, a.program, a.sink, a.stateStore(), a.logger)
}

func (a *app) stateStore() relay.StateStore {
	if a.cfg.RelayState == "" && a.store != nil {
		return &relay.DBStateStore{Store: a.store, Name: "relay:" + a.cfg.RelayName}
	}
	if a.cfg.RelayState == "" {
		return nil
	}
	return &relay.FileStateStore{Path: a.cfg.RelayState}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pubkeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if raw == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return key, nil
}

// tokenAccountFlag returns the flag value or, when unset, the owner's
// associated token account for mint.
func tokenAccountFlag(cmd *cobra.Command, name string, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw != "" {
		return pubkeyFlag(cmd, name)
	}
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s: %w", name, err)
	}
	return addr, nil
}
