package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// SwapRequest exchanges AmountIn of the input side for the other side.
type SwapRequest struct {
	PoolIndex        uint64
	Direction        model.Direction
	AmountIn         uint64
	MinimumAmountOut uint64
	User             solana.PublicKey
	Source           solana.PublicKey
	Destination      solana.PublicKey
}

// SwapResult describes a committed swap.
type SwapResult struct {
	Pool    solana.PublicKey
	Quote   SwapQuote
	Receipt ledger.Receipt
}

// SwapBaseIn sells base for quote.
func (p *Program) SwapBaseIn(ctx context.Context, req SwapRequest) (SwapResult, error) {
	req.Direction = model.BaseToQuote
	return p.Swap(ctx, req)
}

// SwapQuoteIn sells quote for base.
func (p *Program) SwapQuoteIn(ctx context.Context, req SwapRequest) (SwapResult, error) {
	req.Direction = model.QuoteToBase
	return p.Swap(ctx, req)
}

// Swap prices the trade on pre-trade reserves, credits the input vault and
// pays the output from the opposite vault.
func (p *Program) Swap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	res, err := p.swap(ctx, req)
	if err != nil {
		p.rejected("swap", err,
			zap.Uint64("pool_index", req.PoolIndex),
			zap.String("direction", req.Direction.String()),
			zap.Uint64("amount_in", req.AmountIn),
		)
		return SwapResult{}, err
	}
	return res, nil
}

func (p *Program) swap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	if req.AmountIn == 0 {
		return SwapResult{}, ErrInvalidAmount
	}
	if req.Direction != model.BaseToQuote && req.Direction != model.QuoteToBase {
		return SwapResult{}, fmt.Errorf("swap direction %s: %w", req.Direction, ErrInvalidAmount)
	}
	poolAddr, _, err := p.PoolAddress(req.PoolIndex)
	if err != nil {
		return SwapResult{}, err
	}

	var (
		quote SwapQuote
		state model.PoolState
	)
	receipt, err := p.ledger.Update(ctx, []solana.PublicKey{poolAddr, req.User, req.Source, req.Destination}, func(tx *ledger.Tx) error {
		pool, err := p.loadPool(tx, poolAddr)
		if err != nil {
			return err
		}
		inSide := req.Direction.InputSide()
		outSide := inSide.Other()

		baseReserve, quoteReserve, err := reserves(tx, pool)
		if err != nil {
			return err
		}
		reserveIn, reserveOut := baseReserve, quoteReserve
		if inSide == model.SideQuote {
			reserveIn, reserveOut = quoteReserve, baseReserve
		}
		quote, err = QuoteSwap(req.AmountIn, reserveIn, reserveOut, pool.FeeBps)
		if err != nil {
			return err
		}
		if quote.AmountOut < req.MinimumAmountOut {
			return fmt.Errorf("output %d below minimum %d: %w", quote.AmountOut, req.MinimumAmountOut, ErrSlippageExceeded)
		}

		src, err := userAccount(tx, req.Source, pool.Mint(inSide))
		if err != nil {
			return err
		}
		if _, err := userAccount(tx, req.Destination, pool.Mint(outSide)); err != nil {
			return err
		}
		if src.Amount < req.AmountIn {
			return fmt.Errorf("source %s: %w", req.Source, ErrInsufficientFunds)
		}

		newIn, err := checkedAdd(reserveIn, req.AmountIn)
		if err != nil {
			return err
		}
		newOut := reserveOut - quote.AmountOut
		if inSide == model.SideBase {
			pool.BaseReserve, pool.QuoteReserve = newIn, newOut
		} else {
			pool.BaseReserve, pool.QuoteReserve = newOut, newIn
		}

		if err := tx.Transfer(req.Source, pool.Vault(inSide), req.User, req.AmountIn); err != nil {
			return ledgerError(err)
		}
		if err := tx.Transfer(pool.Vault(outSide), req.Destination, poolAddr, quote.AmountOut); err != nil {
			return ledgerError(err)
		}
		if err := p.storePool(tx, poolAddr, pool); err != nil {
			return err
		}

		if state, err = p.poolState(tx, poolAddr, pool); err != nil {
			return err
		}
		return p.emit(tx, model.SwapEvent{
			User:      req.User,
			Pool:      poolAddr,
			Direction: uint8(req.Direction),
			AmountIn:  req.AmountIn,
			AmountOut: quote.AmountOut,
			Fee:       quote.Fee,
		})
	})
	if err != nil {
		return SwapResult{}, err
	}

	p.logger.Info("swap committed",
		zap.String("pool", poolAddr.String()),
		zap.String("user", req.User.String()),
		zap.String("direction", req.Direction.String()),
		zap.Uint64("amount_in", req.AmountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Uint64("fee", quote.Fee),
	)
	p.publish(ctx, receipt, state)

	return SwapResult{Pool: poolAddr, Quote: quote, Receipt: receipt}, nil
}
