package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
	"liquidityAMM/internal/pda"
)

// InitializeRequest creates a pool seeded with the provider's liquidity.
type InitializeRequest struct {
	LPDecimals    uint8
	PoolIndex     uint64
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseAmount    uint64
	QuoteAmount   uint64
	Provider      solana.PublicKey
	ProviderBase  solana.PublicKey
	ProviderQuote solana.PublicKey
}

// InitializeResult describes a created pool.
type InitializeResult struct {
	Keys      pda.PoolKeys
	LPAccount solana.PublicKey
	LPAmount  uint64
	Receipt   ledger.Receipt
}

// InitializeLiquidity creates the pool, its vaults and LP mint, moves the
// seed amounts into the vaults and mints the initial LP units.
func (p *Program) InitializeLiquidity(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	res, err := p.initializeLiquidity(ctx, req)
	if err != nil {
		p.rejected("initialize", err,
			zap.Uint64("pool_index", req.PoolIndex),
			zap.String("provider", req.Provider.String()),
		)
		return InitializeResult{}, err
	}
	return res, nil
}

func (p *Program) initializeLiquidity(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	if req.BaseMint == req.QuoteMint {
		return InitializeResult{}, fmt.Errorf("base and quote mint are both %s: %w", req.BaseMint, ErrInvalidMint)
	}
	lpAmount, err := InitialLiquidity(req.BaseAmount, req.QuoteAmount, req.LPDecimals, p.cfg.InitialLiquidityOffset)
	if err != nil {
		return InitializeResult{}, err
	}

	keys, err := p.PoolKeys(req.PoolIndex, req.BaseMint, req.QuoteMint)
	if err != nil {
		return InitializeResult{}, err
	}
	lpAccount, err := p.LPAccount(req.Provider, keys.Pool)
	if err != nil {
		return InitializeResult{}, err
	}

	var state model.PoolState
	locks := append(keys.All(), req.Provider, req.ProviderBase, req.ProviderQuote)
	receipt, err := p.ledger.Update(ctx, locks, func(tx *ledger.Tx) error {
		for _, addr := range keys.All() {
			if tx.Exists(addr) {
				return fmt.Errorf("%s already holds state: %w", addr, ErrDuplicatePool)
			}
		}
		if _, err := tx.Mint(req.BaseMint); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMint, err)
		}
		if _, err := tx.Mint(req.QuoteMint); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMint, err)
		}
		baseSrc, err := userAccount(tx, req.ProviderBase, req.BaseMint)
		if err != nil {
			return err
		}
		quoteSrc, err := userAccount(tx, req.ProviderQuote, req.QuoteMint)
		if err != nil {
			return err
		}
		if baseSrc.Amount < req.BaseAmount || quoteSrc.Amount < req.QuoteAmount {
			return fmt.Errorf("provider %s: %w", req.Provider, ErrInsufficientFunds)
		}

		pool := model.Pool{
			Index:          req.PoolIndex,
			BaseMint:       req.BaseMint,
			QuoteMint:      req.QuoteMint,
			BaseVault:      keys.BaseVault,
			QuoteVault:     keys.QuoteVault,
			LPMint:         keys.LPMint,
			Creator:        req.Provider,
			LPDecimals:     req.LPDecimals,
			FeeBps:         p.cfg.FeeBps,
			VaultScheme:    uint8(p.cfg.VaultScheme),
			BaseReserve:    req.BaseAmount,
			QuoteReserve:   req.QuoteAmount,
			OpenTime:       tx.Now().Unix(),
			Bump:           keys.PoolBump,
			BaseVaultBump:  keys.BaseVaultBump,
			QuoteVaultBump: keys.QuoteVaultBump,
			LPMintBump:     keys.LPMintBump,
		}
		data, err := pool.MarshalAccount()
		if err != nil {
			return err
		}

		steps := []func() error{
			func() error { return tx.CreateDataAccount(keys.Pool, p.cfg.ProgramID, data) },
			func() error { return tx.CreateTokenAccount(keys.BaseVault, req.BaseMint, keys.Pool) },
			func() error { return tx.CreateTokenAccount(keys.QuoteVault, req.QuoteMint, keys.Pool) },
			func() error { return tx.CreateMint(keys.LPMint, req.LPDecimals, keys.Pool, keys.Pool) },
			func() error { return tx.CreateTokenAccount(lpAccount, keys.LPMint, req.Provider) },
			func() error { return tx.Transfer(req.ProviderBase, keys.BaseVault, req.Provider, req.BaseAmount) },
			func() error { return tx.Transfer(req.ProviderQuote, keys.QuoteVault, req.Provider, req.QuoteAmount) },
			func() error { return tx.MintTo(keys.LPMint, lpAccount, keys.Pool, lpAmount) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return ledgerError(err)
			}
		}

		state = newPoolState(p.cfg.ProgramID, keys.Pool, pool, lpAmount)
		return p.emit(tx, model.InitializeLiquidityPoolEvent{
			LiquidityProvider: req.Provider,
			BaseMint:          req.BaseMint,
			QuoteMint:         req.QuoteMint,
			BaseAmount:        req.BaseAmount,
			QuoteAmount:       req.QuoteAmount,
		})
	})
	if err != nil {
		return InitializeResult{}, err
	}

	p.logger.Info("pool initialized",
		zap.String("pool", keys.Pool.String()),
		zap.Uint64("pool_index", req.PoolIndex),
		zap.Uint64("base_amount", req.BaseAmount),
		zap.Uint64("quote_amount", req.QuoteAmount),
		zap.Uint64("lp_minted", lpAmount),
	)
	p.publish(ctx, receipt, state)

	return InitializeResult{Keys: keys, LPAccount: lpAccount, LPAmount: lpAmount, Receipt: receipt}, nil
}
