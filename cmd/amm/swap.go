package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liquidityAMM/internal/amm"
	"liquidityAMM/internal/model"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Exchange one side of a pool for the other",
		RunE:  runSwap,
	}
	cmd.Flags().Uint64("index", 0, "pool index")
	cmd.Flags().String("direction", "base-in", "base-in (base for quote) or quote-in (quote for base)")
	cmd.Flags().Uint64("amount-in", 0, "input amount (raw units)")
	cmd.Flags().Uint64("min-out", 0, "minimum output amount (raw units)")
	cmd.Flags().String("user", "", "trader")
	cmd.Flags().String("source", "", "input token account (default: associated account)")
	cmd.Flags().String("destination", "", "output token account (default: associated account)")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	index, _ := cmd.Flags().GetUint64("index")
	rawDir, _ := cmd.Flags().GetString("direction")
	dir, err := model.ParseDirection(rawDir)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")

	info, err := a.program.Pool(ctx, index)
	if err != nil {
		return err
	}
	user, err := pubkeyFlag(cmd, "user")
	if err != nil {
		return err
	}
	in := dir.InputSide()
	source, err := tokenAccountFlag(cmd, "source", user, info.Pool.Mint(in))
	if err != nil {
		return err
	}
	destination, err := tokenAccountFlag(cmd, "destination", user, info.Pool.Mint(in.Other()))
	if err != nil {
		return err
	}

	res, err := a.program.Swap(ctx, amm.SwapRequest{
		PoolIndex:        index,
		Direction:        dir,
		AmountIn:         amountIn,
		MinimumAmountOut: minOut,
		User:             user,
		Source:           source,
		Destination:      destination,
	})
	if err != nil {
		return fmt.Errorf("swap on pool %d: %w", index, err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"pool":       res.Pool,
		"direction":  dir.String(),
		"amount_in":  res.Quote.AmountIn,
		"fee":        res.Quote.Fee,
		"amount_out": res.Quote.AmountOut,
		"tx":         res.Receipt.TxID,
	})
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an operation against committed reserves without executing it",
	}
	cmd.PersistentFlags().Uint64("index", 0, "pool index")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Preview a swap",
		RunE:  runQuoteSwap,
	}
	swapCmd.Flags().String("direction", "base-in", "base-in or quote-in")
	swapCmd.Flags().Uint64("amount-in", 0, "input amount (raw units)")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Preview a deposit",
		RunE:  runQuoteDeposit,
	}
	depositCmd.Flags().String("side", "base", "side the amount is exact on (base, quote)")
	depositCmd.Flags().Uint64("amount", 0, "exact input amount (raw units)")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Preview a withdrawal",
		RunE:  runQuoteWithdraw,
	}
	withdrawCmd.Flags().Uint64("lp-amount", 0, "LP units to burn")

	cmd.AddCommand(swapCmd, depositCmd, withdrawCmd)
	return cmd
}

func runQuoteSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	index, _ := cmd.Flags().GetUint64("index")
	rawDir, _ := cmd.Flags().GetString("direction")
	dir, err := model.ParseDirection(rawDir)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")

	info, err := a.program.Pool(ctx, index)
	if err != nil {
		return err
	}
	quote, err := a.program.PreviewSwap(ctx, index, dir, amountIn)
	if err != nil {
		return err
	}

	inDecimals, outDecimals := info.BaseDecimals, info.QuoteDecimals
	if dir == model.QuoteToBase {
		inDecimals, outDecimals = outDecimals, inDecimals
	}
	return printJSON(cmd, map[string]interface{}{
		"pool":       info.Address,
		"direction":  dir.String(),
		"quote":      quote,
		"amount_in":  amm.Amount(quote.AmountIn, inDecimals),
		"fee":        amm.Amount(quote.Fee, inDecimals),
		"amount_out": amm.Amount(quote.AmountOut, outDecimals),
	})
}

func runQuoteDeposit(cmd *cobra.Command, _ []string) error {
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

	quote, err := a.program.PreviewDeposit(ctx, index, side, amount)
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}

func runQuoteWithdraw(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	index, _ := cmd.Flags().GetUint64("index")
	lpAmount, _ := cmd.Flags().GetUint64("lp-amount")

	quote, err := a.program.PreviewWithdraw(ctx, index, lpAmount)
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}
