package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAMM/internal/relay"
)

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver committed log entries to the configured sinks",
		RunE:  runRelay,
	}
	cmd.Flags().Uint64("from", 0, "first sequence number when no checkpoint exists")
	cmd.Flags().Uint64("batch-size", 500, "log entries per delivered batch")
	cmd.Flags().String("relay-name", "default", "checkpoint name when stored in Postgres")
	return cmd
}

func runRelay(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.sink == nil {
		return fmt.Errorf("no sink configured: set --events-out or --pg-dsn")
	}
	from, _ := cmd.Flags().GetUint64("from")

	a.logger.Info("relay start",
		zap.Uint64("from", from),
		zap.Uint64("head", a.ledger.LastSeq()),
		zap.Uint64("batch_size", a.cfg.BatchSize),
		zap.String("pg_dsn", redactDSN(a.cfg.PGDSN)),
	)

	stats, err := a.relay(relay.Config{FromSeq: from, BatchSize: a.cfg.BatchSize}).Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
