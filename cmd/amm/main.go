package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityAMM/internal/amm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if code, ok := amm.Code(err); ok {
			fmt.Fprintf(os.Stderr, "program error %d (0x%x)\n", code, code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pools over a local ledger",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("state", "./data/ledger.json", "ledger snapshot path")
	flags.String("program-id", amm.DefaultProgramID.String(), "program address")
	flags.String("vault-scheme", "pool", "vault derivation (pool, mint)")
	flags.Bool("legacy-pool", false, "use the single unindexed pool address")
	flags.Uint16("fee-bps", 0, "swap fee in basis points for new pools")
	flags.Uint8("lp-decimals", 9, "LP mint decimals")
	flags.String("events-out", "./data/events.jsonl", "event JSONL output, empty disables")
	flags.String("pg-dsn", "", "Postgres DSN, empty disables")
	flags.Uint("sink-retries", 3, "delivery attempts per sink")
	flags.Duration("sink-backoff", 200*time.Millisecond, "first delay between delivery attempts")
	flags.Duration("sink-backoff-max", 5*time.Second, "largest delay between delivery attempts")
	flags.String("relay-state", "./data/relay.json", "relay checkpoint file; empty uses Postgres when --pg-dsn is set, otherwise no checkpoint")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newDepositCmd(),
		newSwapCmd(),
		newWithdrawCmd(),
		newPoolCmd(),
		newQuoteCmd(),
		newDeriveCmd(),
		newEventsCmd(),
		newMintCmd(),
		newRelayCmd(),
	)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
