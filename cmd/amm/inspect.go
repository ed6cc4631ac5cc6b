package main

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/config"
	"liquidityAMM/internal/events"
	"liquidityAMM/internal/pda"
	"liquidityAMM/internal/storage"
)

type poolView struct {
	Address      solana.PublicKey `json:"address"`
	Index        uint64           `json:"index"`
	BaseMint     solana.PublicKey `json:"base_mint"`
	QuoteMint    solana.PublicKey `json:"quote_mint"`
	BaseVault    solana.PublicKey `json:"base_vault"`
	QuoteVault   solana.PublicKey `json:"quote_vault"`
	LPMint       solana.PublicKey `json:"lp_mint"`
	FeeBps       uint16           `json:"fee_bps"`
	VaultScheme  string           `json:"vault_scheme"`
	BaseReserve  decimal.Decimal  `json:"base_reserve"`
	QuoteReserve decimal.Decimal  `json:"quote_reserve"`
	LPSupply     decimal.Decimal  `json:"lp_supply"`
	SpotPrice    decimal.Decimal  `json:"spot_price"`
	OpenTime     int64            `json:"open_time"`
}

func newPoolView(info amm.PoolInfo) poolView {
	return poolView{
		Address:      info.Address,
		Index:        info.Pool.Index,
		BaseMint:     info.Pool.BaseMint,
		QuoteMint:    info.Pool.QuoteMint,
		BaseVault:    info.Pool.BaseVault,
		QuoteVault:   info.Pool.QuoteVault,
		LPMint:       info.Pool.LPMint,
		FeeBps:       info.Pool.FeeBps,
		VaultScheme:  pda.VaultScheme(info.Pool.VaultScheme).String(),
		BaseReserve:  amm.Amount(info.BaseReserve, info.BaseDecimals),
		QuoteReserve: amm.Amount(info.QuoteReserve, info.QuoteDecimals),
		LPSupply:     amm.Amount(info.LPSupply, info.Pool.LPDecimals),
		SpotPrice:    info.SpotPrice(),
		OpenTime:     info.Pool.OpenTime,
	}
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Show a pool with its reserves and spot price",
		RunE:  runPool,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().Bool("all", false, "list every pool")
	return cmd
}

func runPool(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if all, _ := cmd.Flags().GetBool("all"); all {
		pools, err := a.program.Pools(ctx)
		if err != nil {
			return err
		}
		views := make([]poolView, 0, len(pools))
		for _, info := range pools {
			views = append(views, newPoolView(info))
		}
		return printJSON(cmd, views)
	}

	index, _ := cmd.Flags().GetUint64("index")
	info, err := a.program.Pool(ctx, index)
	if err != nil {
		return err
	}
	return printJSON(cmd, newPoolView(info))
}

func newDeriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the derived addresses of a pool",
		RunE:  runDerive,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().String("base-mint", "", "base mint")
	cmd.Flags().String("quote-mint", "", "quote mint")
	cmd.Flags().String("user", "", "optional user for the LP claim account")
	return cmd
}

func runDerive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	programCfg, err := programConfig(cfg)
	if err != nil {
		return err
	}

	baseMint, err := pubkeyFlag(cmd, "base-mint")
	if err != nil {
		return err
	}
	quoteMint, err := pubkeyFlag(cmd, "quote-mint")
	if err != nil {
		return err
	}
	index, _ := cmd.Flags().GetUint64("index")

	var keys pda.PoolKeys
	if programCfg.LegacyPool {
		keys, err = pda.DeriveLegacyPoolKeys(programCfg.ProgramID, programCfg.VaultScheme, baseMint, quoteMint)
	} else {
		keys, err = pda.DerivePoolKeys(programCfg.ProgramID, programCfg.VaultScheme, index, baseMint, quoteMint)
	}
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"program":      programCfg.ProgramID,
		"vault_scheme": programCfg.VaultScheme.String(),
		"pool":         keys.Pool,
		"pool_bump":    keys.PoolBump,
		"base_vault":   keys.BaseVault,
		"quote_vault":  keys.QuoteVault,
		"lp_mint":      keys.LPMint,
	}
	if raw, _ := cmd.Flags().GetString("user"); raw != "" {
		user, err := pubkeyFlag(cmd, "user")
		if err != nil {
			return err
		}
		lpAccount, _, err := pda.LPTokenAccount(programCfg.ProgramID, user, keys.Pool)
		if err != nil {
			return err
		}
		out["lp_account"] = lpAccount
	}
	return printJSON(cmd, out)
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print committed events from the ledger log or a JSONL file",
		RunE:  runEvents,
	}
	cmd.Flags().String("in", "", "read records from this JSONL file instead of the ledger")
	cmd.Flags().Uint64("after", 0, "only entries with a greater sequence number")
	cmd.Flags().Bool("logs", false, "print raw program log lines")
	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	after, _ := cmd.Flags().GetUint64("after")
	asLogs, _ := cmd.Flags().GetBool("logs")
	out := json.NewEncoder(cmd.OutOrStdout())

	if in, _ := cmd.Flags().GetString("in"); in != "" {
		records, err := storage.ReadEventRecords(in)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.Seq <= after {
				continue
			}
			if asLogs {
				fmt.Fprintln(cmd.OutOrStdout(), events.LogLine(rec.Data))
				continue
			}
			ev, err := events.Decode(rec.Data)
			if err != nil {
				return fmt.Errorf("record %d: %w", rec.Seq, err)
			}
			if ev.EventName() != rec.EventName {
				return fmt.Errorf("record %d: payload decodes as %s, labelled %s", rec.Seq, ev.EventName(), rec.EventName)
			}
			if err := out.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.ledger.Logs(after)
	if asLogs {
		for _, entry := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), events.LogLine(entry.Data))
		}
		return nil
	}

	records, failed := events.NewRecords(entries)
	for _, f := range failed {
		a.logger.Warn("undecodable entry", zap.Uint64("seq", f.Seq), zap.String("discriminator", f.Prefix), zap.String("error", f.Error))
	}
	for _, rec := range records {
		if err := out.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
