package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. AMM_STATE.
const EnvPrefix = "AMM"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ProgramID   string
	StatePath   string
	EventsOut   string
	PGDSN       string
	FeeBps      uint16
	VaultScheme string
	LegacyPool  bool
	LPDecimals  uint8
	SinkRetries uint
	// SinkBackoff and SinkBackoffMax bound the delay between delivery attempts.
	SinkBackoff    time.Duration
	SinkBackoffMax time.Duration
	RelayState     string
	RelayName      string
	BatchSize      uint64
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("program-id", "Hr9FAeTLTe8ESL831KZjMAreV21Gno4Pv8HTwHRjA8PK")
	v.SetDefault("state", "./data/ledger.json")
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("fee-bps", 0)
	v.SetDefault("vault-scheme", "pool")
	v.SetDefault("legacy-pool", false)
	v.SetDefault("lp-decimals", 9)
	v.SetDefault("sink-retries", 3)
	v.SetDefault("sink-backoff", "200ms")
	v.SetDefault("sink-backoff-max", "5s")
	v.SetDefault("relay-state", "./data/relay.json")
	v.SetDefault("relay-name", "default")
	v.SetDefault("batch-size", 500)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	feeBps := v.GetUint("fee-bps")
	if feeBps > 10_000 {
		return Config{}, fmt.Errorf("fee-bps must be <= 10000, got %d", feeBps)
	}
	lpDecimals := v.GetUint("lp-decimals")
	if lpDecimals > 255 {
		return Config{}, fmt.Errorf("lp-decimals out of range: %d", lpDecimals)
	}

	cfg := Config{
		ProgramID:      strings.TrimSpace(v.GetString("program-id")),
		StatePath:      v.GetString("state"),
		EventsOut:      v.GetString("events-out"),
		PGDSN:          v.GetString("pg-dsn"),
		FeeBps:         uint16(feeBps),
		VaultScheme:    v.GetString("vault-scheme"),
		LegacyPool:     v.GetBool("legacy-pool"),
		LPDecimals:     uint8(lpDecimals),
		SinkRetries:    v.GetUint("sink-retries"),
		SinkBackoff:    v.GetDuration("sink-backoff"),
		SinkBackoffMax: v.GetDuration("sink-backoff-max"),
		RelayState:     v.GetString("relay-state"),
		RelayName:      v.GetString("relay-name"),
		BatchSize:      v.GetUint64("batch-size"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}
