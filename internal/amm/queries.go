package amm

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

// PoolInfo is a consistent read of a pool and the accounts around it.
type PoolInfo struct {
	Address       solana.PublicKey
	Pool          model.Pool
	BaseReserve   uint64
	QuoteReserve  uint64
	LPSupply      uint64
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// Amount converts raw units into a decimal amount.
func Amount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// SpotPrice is the quote value of one whole base unit at current reserves.
func (i PoolInfo) SpotPrice() decimal.Decimal {
	base := Amount(i.BaseReserve, i.BaseDecimals)
	if base.IsZero() {
		return decimal.Zero
	}
	return Amount(i.QuoteReserve, i.QuoteDecimals).Div(base)
}

// State converts the info into the sink representation.
func (i PoolInfo) State(program solana.PublicKey) model.PoolState {
	pool := i.Pool
	pool.BaseReserve, pool.QuoteReserve = i.BaseReserve, i.QuoteReserve
	return newPoolState(program, i.Address, pool, i.LPSupply)
}

// Pool reads the pool at index.
func (p *Program) Pool(ctx context.Context, index uint64) (PoolInfo, error) {
	addr, _, err := p.PoolAddress(index)
	if err != nil {
		return PoolInfo{}, err
	}
	return p.PoolAt(ctx, addr)
}

// PoolAt reads the pool stored at addr.
func (p *Program) PoolAt(ctx context.Context, addr solana.PublicKey) (PoolInfo, error) {
	var info PoolInfo
	err := p.ledger.View(ctx, []solana.PublicKey{addr}, func(tx *ledger.Tx) error {
		pool, err := p.loadPool(tx, addr)
		if err != nil {
			return err
		}
		base, quote, err := reserves(tx, pool)
		if err != nil {
			return err
		}
		lp, err := tx.Mint(pool.LPMint)
		if err != nil {
			return err
		}
		baseMint, err := tx.Mint(pool.BaseMint)
		if err != nil {
			return err
		}
		quoteMint, err := tx.Mint(pool.QuoteMint)
		if err != nil {
			return err
		}
		info = PoolInfo{
			Address:       addr,
			Pool:          pool,
			BaseReserve:   base,
			QuoteReserve:  quote,
			LPSupply:      lp.Supply,
			BaseDecimals:  baseMint.Decimals,
			QuoteDecimals: quoteMint.Decimals,
		}
		return nil
	})
	return info, err
}

// Pools lists every pool owned by the program, ordered by address.
func (p *Program) Pools(ctx context.Context) ([]PoolInfo, error) {
	var out []PoolInfo
	for _, acc := range p.ledger.DataAccounts(p.cfg.ProgramID) {
		var pool model.Pool
		if err := pool.UnmarshalAccount(acc.Data); err != nil {
			continue
		}
		info, err := p.PoolAt(ctx, acc.Address)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// PreviewSwap prices a swap against the committed reserves without
// executing it.
func (p *Program) PreviewSwap(ctx context.Context, index uint64, dir model.Direction, amountIn uint64) (SwapQuote, error) {
	info, err := p.Pool(ctx, index)
	if err != nil {
		return SwapQuote{}, err
	}
	reserveIn, reserveOut := info.BaseReserve, info.QuoteReserve
	if dir.InputSide() == model.SideQuote {
		reserveIn, reserveOut = info.QuoteReserve, info.BaseReserve
	}
	return QuoteSwap(amountIn, reserveIn, reserveOut, info.Pool.FeeBps)
}

// PreviewDeposit prices a deposit against the committed reserves.
func (p *Program) PreviewDeposit(ctx context.Context, index uint64, side model.Side, amount uint64) (DepositQuote, error) {
	info, err := p.Pool(ctx, index)
	if err != nil {
		return DepositQuote{}, err
	}
	return QuoteDeposit(side, amount, info.BaseReserve, info.QuoteReserve, info.LPSupply)
}

// PreviewWithdraw prices redeeming lp units against the committed reserves.
func (p *Program) PreviewWithdraw(ctx context.Context, index uint64, lp uint64) (WithdrawQuote, error) {
	info, err := p.Pool(ctx, index)
	if err != nil {
		return WithdrawQuote{}, err
	}
	return QuoteWithdraw(lp, info.BaseReserve, info.QuoteReserve, info.LPSupply)
}
