package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// DepositRequest adds liquidity in proportion to the current reserves.
// Amount is exact on Side; the opposite side is capped by MaxOtherAmount.
type DepositRequest struct {
	LPDecimals     uint8
	PoolIndex      uint64
	BaseMint       solana.PublicKey
	QuoteMint      solana.PublicKey
	Side           model.Side
	Amount         uint64
	MaxOtherAmount uint64
	User           solana.PublicKey
	UserBase       solana.PublicKey
	UserQuote      solana.PublicKey
}

// DepositResult describes a committed deposit.
type DepositResult struct {
	Pool      solana.PublicKey
	LPAccount solana.PublicKey
	Quote     DepositQuote
	Receipt   ledger.Receipt
}

// Deposit moves both amounts into the vaults and mints LP units to the
// user's claim account, creating it on first use.
func (p *Program) Deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	res, err := p.deposit(ctx, req)
	if err != nil {
		p.rejected("deposit", err,
			zap.Uint64("pool_index", req.PoolIndex),
			zap.String("side", req.Side.String()),
			zap.Uint64("amount", req.Amount),
		)
		return DepositResult{}, err
	}
	return res, nil
}

func (p *Program) deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	if req.Amount == 0 {
		return DepositResult{}, ErrInvalidAmount
	}
	if req.Side != model.SideBase && req.Side != model.SideQuote {
		return DepositResult{}, fmt.Errorf("deposit side %s: %w", req.Side, ErrInvalidAmount)
	}
	poolAddr, _, err := p.PoolAddress(req.PoolIndex)
	if err != nil {
		return DepositResult{}, err
	}
	lpAccount, err := p.LPAccount(req.User, poolAddr)
	if err != nil {
		return DepositResult{}, err
	}

	var (
		quote DepositQuote
		state model.PoolState
	)
	receipt, err := p.ledger.Update(ctx, []solana.PublicKey{poolAddr, req.User, req.UserBase, req.UserQuote}, func(tx *ledger.Tx) error {
		pool, err := p.loadPool(tx, poolAddr)
		if err != nil {
			return err
		}
		if pool.BaseMint != req.BaseMint || pool.QuoteMint != req.QuoteMint {
			return fmt.Errorf("pool %s trades %s/%s: %w", poolAddr, pool.BaseMint, pool.QuoteMint, ErrInvalidMint)
		}
		lpMint, err := tx.Mint(pool.LPMint)
		if err != nil {
			return err
		}
		if lpMint.Decimals != req.LPDecimals {
			return fmt.Errorf("lp mint has %d decimals, got %d: %w", lpMint.Decimals, req.LPDecimals, ErrInvalidLPMintDecimal)
		}

		baseReserve, quoteReserve, err := reserves(tx, pool)
		if err != nil {
			return err
		}
		quote, err = QuoteDeposit(req.Side, req.Amount, baseReserve, quoteReserve, lpMint.Supply)
		if err != nil {
			return err
		}
		other := quote.QuoteAmount
		if req.Side == model.SideQuote {
			other = quote.BaseAmount
		}
		if other > req.MaxOtherAmount {
			return fmt.Errorf("%s amount %d above max %d: %w", req.Side.Other(), other, req.MaxOtherAmount, ErrSlippageExceeded)
		}

		baseSrc, err := userAccount(tx, req.UserBase, pool.BaseMint)
		if err != nil {
			return err
		}
		quoteSrc, err := userAccount(tx, req.UserQuote, pool.QuoteMint)
		if err != nil {
			return err
		}
		if baseSrc.Amount < quote.BaseAmount || quoteSrc.Amount < quote.QuoteAmount {
			return fmt.Errorf("user %s: %w", req.User, ErrInsufficientFunds)
		}

		if pool.BaseReserve, err = checkedAdd(baseReserve, quote.BaseAmount); err != nil {
			return err
		}
		if pool.QuoteReserve, err = checkedAdd(quoteReserve, quote.QuoteAmount); err != nil {
			return err
		}

		if !tx.Exists(lpAccount) {
			if err := tx.CreateTokenAccount(lpAccount, pool.LPMint, req.User); err != nil {
				return ledgerError(err)
			}
		}
		if err := tx.Transfer(req.UserBase, pool.BaseVault, req.User, quote.BaseAmount); err != nil {
			return ledgerError(err)
		}
		if err := tx.Transfer(req.UserQuote, pool.QuoteVault, req.User, quote.QuoteAmount); err != nil {
			return ledgerError(err)
		}
		if err := tx.MintTo(pool.LPMint, lpAccount, poolAddr, quote.LPAmount); err != nil {
			return ledgerError(err)
		}
		if err := p.storePool(tx, poolAddr, pool); err != nil {
			return err
		}

		if state, err = p.poolState(tx, poolAddr, pool); err != nil {
			return err
		}
		return p.emit(tx, model.DepositEvent{
			User:        req.User,
			Pool:        poolAddr,
			Side:        uint8(req.Side),
			BaseAmount:  quote.BaseAmount,
			QuoteAmount: quote.QuoteAmount,
			LPAmount:    quote.LPAmount,
		})
	})
	if err != nil {
		return DepositResult{}, err
	}

	p.logger.Info("deposit committed",
		zap.String("pool", poolAddr.String()),
		zap.String("user", req.User.String()),
		zap.Uint64("base_amount", quote.BaseAmount),
		zap.Uint64("quote_amount", quote.QuoteAmount),
		zap.Uint64("lp_minted", quote.LPAmount),
	)
	p.publish(ctx, receipt, state)

	return DepositResult{Pool: poolAddr, LPAccount: lpAccount, Quote: quote, Receipt: receipt}, nil
}
