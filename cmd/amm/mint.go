package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAMM/internal/ledger"
)

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Manage test mints in the local ledger",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mint with a fresh address",
		RunE:  runMintCreate,
	}
	createCmd.Flags().Uint8("decimals", 9, "mint decimals")
	createCmd.Flags().String("authority", "", "mint authority (default: fresh key)")

	fundCmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint units into an owner's token account, creating it if needed",
		RunE:  runMintFund,
	}
	fundCmd.Flags().String("mint", "", "mint address")
	fundCmd.Flags().String("authority", "", "mint authority")
	fundCmd.Flags().String("owner", "", "token account owner")
	fundCmd.Flags().String("account", "", "token account (default: associated account)")
	fundCmd.Flags().Uint64("amount", 0, "raw units to mint")

	cmd.AddCommand(createCmd, fundCmd)
	return cmd
}

func runMintCreate(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	decimals, _ := cmd.Flags().GetUint8("decimals")
	authority := solana.NewWallet().PublicKey()
	if raw, _ := cmd.Flags().GetString("authority"); raw != "" {
		if authority, err = pubkeyFlag(cmd, "authority"); err != nil {
			return err
		}
	}
	mint := solana.NewWallet().PublicKey()

	_, err = a.ledger.Update(ctx, []solana.PublicKey{authority}, func(tx *ledger.Tx) error {
		return tx.CreateMint(mint, decimals, authority, authority)
	})
	if err != nil {
		return fmt.Errorf("create mint: %w", err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	a.logger.Info("mint created", zap.String("mint", mint.String()), zap.Uint8("decimals", decimals))
	return printJSON(cmd, map[string]interface{}{
		"mint":      mint,
		"authority": authority,
		"decimals":  decimals,
	})
}

func runMintFund(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mint, err := pubkeyFlag(cmd, "mint")
	if err != nil {
		return err
	}
	authority, err := pubkeyFlag(cmd, "authority")
	if err != nil {
		return err
	}
	owner, err := pubkeyFlag(cmd, "owner")
	if err != nil {
		return err
	}
	account, err := tokenAccountFlag(cmd, "account", owner, mint)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	var balance uint64
	_, err = a.ledger.Update(ctx, []solana.PublicKey{authority, owner}, func(tx *ledger.Tx) error {
		if !tx.Exists(account) {
			if err := tx.CreateTokenAccount(account, mint, owner); err != nil {
				return err
			}
		}
		if err := tx.MintTo(mint, account, authority, amount); err != nil {
			return err
		}
		acc, err := tx.TokenAccount(account)
		if err != nil {
			return err
		}
		balance = acc.Amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("fund %s: %w", account, err)
	}
	if err := a.commit(ctx); err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"account": account,
		"owner":   owner,
		"mint":    mint,
		"balance": balance,
	})
}
