package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/storage"
)

type cli struct {
	t          *testing.T
	dir        string
	relayState string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	t.Chdir(dir)
	return &cli{t: t, dir: dir, relayState: filepath.Join(dir, "relay.json")}
}

func (c *cli) exec(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args,
		"--state", filepath.Join(c.dir, "ledger.json"),
		"--events-out", filepath.Join(c.dir, "events.jsonl"),
		"--relay-state", c.relayState,
		"--log-level", "error",
	))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) run(args ...string) map[string]interface{} {
	c.t.Helper()
	out, err := c.exec(args...)
	require.NoError(c.t, err, "amm %s", strings.Join(args, " "))
	var v map[string]interface{}
	require.NoError(c.t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestPoolLifecycle(t *testing.T) {
	c := newCLI(t)

	base := c.run("mint", "create", "--decimals", "9")
	authority := base["authority"].(string)
	quote := c.run("mint", "create", "--decimals", "6", "--authority", authority)
	baseMint, quoteMint := base["mint"].(string), quote["mint"].(string)

	provider := solana.NewWallet().PublicKey().String()
	funded := c.run("mint", "fund", "--mint", baseMint, "--authority", authority, "--owner", provider, "--amount", "10000000000")
	require.EqualValues(t, 10_000_000_000, funded["balance"])
	c.run("mint", "fund", "--mint", quoteMint, "--authority", authority, "--owner", provider, "--amount", "10000000000")

	initOut := c.run("init", "--index", "0",
		"--base-mint", baseMint, "--quote-mint", quoteMint,
		"--base-amount", "2000000000", "--quote-amount", "1000000000",
		"--provider", provider)
	require.EqualValues(t, 414_213_562, initOut["lp_amount"])

	derived := c.run("derive", "--index", "0", "--base-mint", baseMint, "--quote-mint", quoteMint)
	require.Equal(t, initOut["pool"], derived["pool"])
	require.Equal(t, initOut["lp_mint"], derived["lp_mint"])

	preview := c.run("quote", "swap", "--index", "0", "--direction", "base-in", "--amount-in", "1000000")
	require.Equal(t, "0.5", preview["amount_out"])

	swapOut := c.run("swap", "--index", "0", "--direction", "base-in", "--amount-in", "1000000", "--user", provider)
	require.EqualValues(t, 500_000, swapOut["amount_out"])

	pool := c.run("pool", "--index", "0")
	require.Equal(t, "2.001", pool["base_reserve"])
	require.Equal(t, "999.5", pool["quote_reserve"])

	records, err := storage.ReadEventRecords(filepath.Join(c.dir, "events.jsonl"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "InitializeLiquidityPoolEvent", records[0].EventName)
	require.Equal(t, "SwapEvent", records[1].EventName)

	// Relay is caught up, so a rerun delivers nothing new.
	stats := c.run("relay")
	require.Equal(t, true, stats["UpToDate"])
	require.EqualValues(t, 0, stats["Records"])
}

func TestSlippageReportsProgramCode(t *testing.T) {
	c := newCLI(t)
	provider := c.seedPool("3")

	_, err := c.exec("swap", "--index", "3", "--amount-in", "1000000", "--min-out", "500001", "--user", provider)
	require.ErrorIs(t, err, amm.ErrSlippageExceeded)
	code, ok := amm.Code(err)
	require.True(t, ok)
	require.Equal(t, 6004, code)

	_, err = c.exec("pool", "--index", "4")
	require.ErrorIs(t, err, amm.ErrPoolNotFound)
}

func TestProgramConfigRejectsScheme(t *testing.T) {
	c := newCLI(t)
	_, err := c.exec("derive", "--vault-scheme", "bogus",
		"--base-mint", solana.NewWallet().PublicKey().String(),
		"--quote-mint", solana.NewWallet().PublicKey().String())
	require.Error(t, err)
}

// seedPool creates two mints, funds a provider and opens pool index with
// 2e9 base / 1e9 quote.
func (c *cli) seedPool(index string) string {
	c.t.Helper()
	base := c.run("mint", "create", "--decimals", "9")
	authority := base["authority"].(string)
	quote := c.run("mint", "create", "--decimals", "6", "--authority", authority)
	provider := solana.NewWallet().PublicKey().String()
	for _, m := range []string{base["mint"].(string), quote["mint"].(string)} {
		c.run("mint", "fund", "--mint", m, "--authority", authority, "--owner", provider, "--amount", "10000000000")
	}
	c.run("init", "--index", index,
		"--base-mint", base["mint"].(string), "--quote-mint", quote["mint"].(string),
		"--base-amount", "2000000000", "--quote-amount", "1000000000",
		"--provider", provider)
	return provider
}

func TestEventsWithoutCheckpointAreWrittenOnce(t *testing.T) {
	c := newCLI(t)
	c.relayState = ""

	provider := c.seedPool("0")
	c.run("swap", "--index", "0", "--amount-in", "1000000", "--user", provider)
	c.run("swap", "--index", "0", "--direction", "quote-in", "--amount-in", "1000", "--user", provider)

	records, err := storage.ReadEventRecords(filepath.Join(c.dir, "events.jsonl"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		require.EqualValues(t, i+1, rec.Seq)
	}
	require.Equal(t, "SwapEvent", records[2].EventName)
}
