package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/model"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pool seeded with the provider's liquidity",
		RunE:  runInit,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().String("base-mint", "", "base mint")
	cmd.Flags().String("quote-mint", "", "quote mint")
	cmd.Flags().Uint64("base-amount", 0, "initial base amount (raw units)")
	cmd.Flags().Uint64("quote-amount", 0, "initial quote amount (raw units)")
	cmd.Flags().String("provider", "", "liquidity provider")
	cmd.Flags().String("provider-base", "", "provider base account (default: associated account)")
	cmd.Flags().String("provider-quote", "", "provider quote account (default: associated account)")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	baseMint, err := pubkeyFlag(cmd, "base-mint")
	if err != nil {
		return err
	}
	quoteMint, err := pubkeyFlag(cmd, "quote-mint")
	if err != nil {
		return err
	}
	provider, err := pubkeyFlag(cmd, "provider")
	if err != nil {
		return err
	}
	providerBase, err := tokenAccountFlag(cmd, "provider-base", provider, baseMint)
	if err != nil {
		return err
	}
	providerQuote, err := tokenAccountFlag(cmd, "provider-quote", provider, quoteMint)
	if err != nil {
		return err
	}
	index, _ := cmd.Flags().GetUint64("index")
	baseAmount, _ := cmd.Flags().GetUint64("base-amount")
	quoteAmount, _ := cmd.Flags().GetUint64("quote-amount")

	res, err := a.program.InitializeLiquidity(ctx, amm.InitializeRequest{
		LPDecimals:    a.cfg.LPDecimals,
		PoolIndex:     index,
		BaseMint:      baseMint,
		QuoteMint:     quoteMint,
		BaseAmount:    baseAmount,
		QuoteAmount:   quoteAmount,
		Provider:      provider,
		ProviderBase:  providerBase,
		ProviderQuote: providerQuote,
	})
	if err != nil {
		return fmt.Errorf("initialize pool %d: %w", index, err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"pool":        res.Keys.Pool,
		"base_vault":  res.Keys.BaseVault,
		"quote_vault": res.Keys.QuoteVault,
		"lp_mint":     res.Keys.LPMint,
		"lp_account":  res.LPAccount,
		"lp_amount":   res.LPAmount,
		"tx":          res.Receipt.TxID,
	})
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add liquidity in proportion to the pool reserves",
		RunE:  runDeposit,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().String("side", "base", "side the amount is exact on (base, quote)")
	cmd.Flags().Uint64("amount", 0, "exact input amount (raw units)")
	cmd.Flags().Uint64("max-other", 0, "maximum amount of the other side (raw units)")
	cmd.Flags().String("user", "", "depositor")
	cmd.Flags().String("user-base", "", "user base account (default: associated account)")
	cmd.Flags().String("user-quote", "", "user quote account (default: associated account)")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	index, _ := cmd.Flags().GetUint64("index")
	rawSide, _ := cmd.Flags().GetString("side")
	side, err := model.ParseSide(rawSide)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	maxOther, _ := cmd.Flags().GetUint64("max-other")

	info, err := a.program.Pool(ctx, index)
	if err != nil {
		return err
	}
	user, userBase, userQuote, err := userAccounts(cmd, info.Pool)
	if err != nil {
		return err
	}

	res, err := a.program.Deposit(ctx, amm.DepositRequest{
		LPDecimals:     a.cfg.LPDecimals,
		PoolIndex:      index,
		BaseMint:       info.Pool.BaseMint,
		QuoteMint:      info.Pool.QuoteMint,
		Side:           side,
		Amount:         amount,
		MaxOtherAmount: maxOther,
		User:           user,
		UserBase:       userBase,
		UserQuote:      userQuote,
	})
	if err != nil {
		return fmt.Errorf("deposit into pool %d: %w", index, err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"pool":         res.Pool,
		"lp_account":   res.LPAccount,
		"base_amount":  res.Quote.BaseAmount,
		"quote_amount": res.Quote.QuoteAmount,
		"lp_amount":    res.Quote.LPAmount,
		"tx":           res.Receipt.TxID,
	})
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn LP units for a share of both reserves",
		RunE:  runWithdraw,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().Uint64("lp-amount", 0, "LP units to burn")
	cmd.Flags().Uint64("min-base", 0, "minimum base out (raw units)")
	cmd.Flags().Uint64("min-quote", 0, "minimum quote out (raw units)")
	cmd.Flags().String("user", "", "LP holder")
	cmd.Flags().String("user-base", "", "user base account (default: associated account)")
	cmd.Flags().String("user-quote", "", "user quote account (default: associated account)")
	return cmd
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	index, _ := cmd.Flags().GetUint64("index")
	lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
	minBase, _ := cmd.Flags().GetUint64("min-base")
	minQuote, _ := cmd.Flags().GetUint64("min-quote")

	info, err := a.program.Pool(ctx, index)
	if err != nil {
		return err
	}
	user, userBase, userQuote, err := userAccounts(cmd, info.Pool)
	if err != nil {
		return err
	}

	res, err := a.program.Withdraw(ctx, amm.WithdrawRequest{
		PoolIndex:   index,
		LPAmount:    lpAmount,
		MinBaseOut:  minBase,
		MinQuoteOut: minQuote,
		User:        user,
		UserBase:    userBase,
		UserQuote:   userQuote,
	})
	if err != nil {
		return fmt.Errorf("withdraw from pool %d: %w", index, err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"pool":         res.Pool,
		"lp_amount":    lpAmount,
		"base_amount":  res.Quote.BaseAmount,
		"quote_amount": res.Quote.QuoteAmount,
		"tx":           res.Receipt.TxID,
	})
}

func userAccounts(cmd *cobra.Command, pool model.Pool) (user, base, quote solana.PublicKey, err error) {
	if user, err = pubkeyFlag(cmd, "user"); err != nil {
		return
	}
	if base, err = tokenAccountFlag(cmd, "user-base", user, pool.BaseMint); err != nil {
		return
	}
	quote, err = tokenAccountFlag(cmd, "user-quote", user, pool.QuoteMint)
	return
}
