package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// WithdrawRequest redeems LPAmount units for a pro-rata share of reserves.
type WithdrawRequest struct {
	PoolIndex   uint64
	LPAmount    uint64
	MinBaseOut  uint64
	MinQuoteOut uint64
	User        solana.PublicKey
	UserBase    solana.PublicKey
	UserQuote   solana.PublicKey
}

// WithdrawResult describes a committed withdrawal.
type WithdrawResult struct {
	Pool    solana.PublicKey
	Quote   WithdrawQuote
	Receipt ledger.Receipt
}

// Withdraw burns LP units and pays out both reserve shares.
func (p *Program) Withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error) {
	res, err := p.withdraw(ctx, req)
	if err != nil {
		p.rejected("withdraw", err,
			zap.Uint64("pool_index", req.PoolIndex),
			zap.Uint64("lp_amount", req.LPAmount),
		)
		return WithdrawResult{}, err
	}
	return res, nil
}

func (p *Program) withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error) {
	if req.LPAmount == 0 {
		return WithdrawResult{}, ErrInvalidAmount
	}
	poolAddr, _, err := p.PoolAddress(req.PoolIndex)
	if err != nil {
		return WithdrawResult{}, err
	}
	lpAccount, err := p.LPAccount(req.User, poolAddr)
	if err != nil {
		return WithdrawResult{}, err
	}

	var (
		quote WithdrawQuote
		state model.PoolState
	)
	receipt, err := p.ledger.Update(ctx, []solana.PublicKey{poolAddr, req.User, req.UserBase, req.UserQuote}, func(tx *ledger.Tx) error {
		pool, err := p.loadPool(tx, poolAddr)
		if err != nil {
			return err
		}
		claim, err := tx.TokenAccount(lpAccount)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return fmt.Errorf("no lp account for %s: %w", req.User, ErrInsufficientFunds)
			}
			return err
		}
		if claim.Amount < req.LPAmount {
			return fmt.Errorf("lp balance %d below %d: %w", claim.Amount, req.LPAmount, ErrInsufficientFunds)
		}
		lpMint, err := tx.Mint(pool.LPMint)
		if err != nil {
			return err
		}

		baseReserve, quoteReserve, err := reserves(tx, pool)
		if err != nil {
			return err
		}
		quote, err = QuoteWithdraw(req.LPAmount, baseReserve, quoteReserve, lpMint.Supply)
		if err != nil {
			return err
		}
		if quote.BaseAmount < req.MinBaseOut || quote.QuoteAmount < req.MinQuoteOut {
			return fmt.Errorf("withdraw %d/%d below minimum %d/%d: %w",
				quote.BaseAmount, quote.QuoteAmount, req.MinBaseOut, req.MinQuoteOut, ErrSlippageExceeded)
		}
		if _, err := userAccount(tx, req.UserBase, pool.BaseMint); err != nil {
			return err
		}
		if _, err := userAccount(tx, req.UserQuote, pool.QuoteMint); err != nil {
			return err
		}

		pool.BaseReserve = baseReserve - quote.BaseAmount
		pool.QuoteReserve = quoteReserve - quote.QuoteAmount

		if err := tx.Burn(pool.LPMint, lpAccount, req.User, req.LPAmount); err != nil {
			return ledgerError(err)
		}
		if err := tx.Transfer(pool.BaseVault, req.UserBase, poolAddr, quote.BaseAmount); err != nil {
			return ledgerError(err)
		}
		if err := tx.Transfer(pool.QuoteVault, req.UserQuote, poolAddr, quote.QuoteAmount); err != nil {
			return ledgerError(err)
		}
		if err := p.storePool(tx, poolAddr, pool); err != nil {
			return err
		}

		if state, err = p.poolState(tx, poolAddr, pool); err != nil {
			return err
		}
		return p.emit(tx, model.WithdrawEvent{
			User:        req.User,
			Pool:        poolAddr,
			LPAmount:    req.LPAmount,
			BaseAmount:  quote.BaseAmount,
			QuoteAmount: quote.QuoteAmount,
		})
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	p.logger.Info("withdraw committed",
		zap.String("pool", poolAddr.String()),
		zap.String("user", req.User.String()),
		zap.Uint64("lp_burned", req.LPAmount),
		zap.Uint64("base_amount", quote.BaseAmount),
		zap.Uint64("quote_amount", quote.QuoteAmount),
	)
	p.publish(ctx, receipt, state)

	return WithdrawResult{Pool: poolAddr, Quote: quote, Receipt: receipt}, nil
}
