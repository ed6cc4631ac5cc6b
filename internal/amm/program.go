// Package amm implements the liquidity pool program: pool creation,
// proportional deposits and withdrawals, and constant-product swaps.
//
// Not every positive swap input is tradable: an output that rounds to zero
// fails with ErrInvalidAmount, and an output that would empty the output
// vault fails with ErrInsufficientLiquidity.
package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"liquidityAMM/internal/events"
	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
	"liquidityAMM/internal/pda"
)

// DefaultProgramID is the address the program is deployed at unless
// configured otherwise.
var DefaultProgramID = solana.MustPublicKeyFromBase58("Hr9FAeTLTe8ESL831KZjMAreV21Gno4Pv8HTwHRjA8PK")

// Config holds the program parameters.
type Config struct {
	ProgramID   solana.PublicKey
	VaultScheme pda.VaultScheme
	// LegacyPool derives the single fixed pool address and ignores pool
	// indexes.
	LegacyPool bool
	// FeeBps is recorded on pools at creation and charged on swap input.
	FeeBps uint16
	// InitialLiquidityOffset is withheld from the first mint of every pool.
	InitialLiquidityOffset OffsetFunc
}

// DefaultConfig returns pool-scoped vaults, no swap fee and a one-unit
// initial offset.
func DefaultConfig() Config {
	return Config{
		ProgramID:              DefaultProgramID,
		VaultScheme:            pda.VaultSchemePool,
		InitialLiquidityOffset: DecimalUnitOffset,
	}
}

// Program executes pool operations against a ledger.
type Program struct {
	cfg    Config
	ledger *ledger.Ledger
	sink   events.Sink
	logger *zap.Logger
}

// NewProgram validates cfg and binds it to a ledger. sink may be nil.
func NewProgram(cfg Config, l *ledger.Ledger, sink events.Sink, logger *zap.Logger) (*Program, error) {
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if cfg.ProgramID == (solana.PublicKey{}) {
		cfg.ProgramID = DefaultProgramID
	}
	if cfg.FeeBps > bpsDenominator {
		return nil, fmt.Errorf("fee bps %d exceeds %d", cfg.FeeBps, bpsDenominator)
	}
	if cfg.InitialLiquidityOffset == nil {
		cfg.InitialLiquidityOffset = DecimalUnitOffset
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{cfg: cfg, ledger: l, sink: sink, logger: logger}, nil
}

// ID is the program address.
func (p *Program) ID() solana.PublicKey { return p.cfg.ProgramID }

// Config returns the effective configuration.
func (p *Program) Config() Config { return p.cfg }

// Ledger returns the bound ledger.
func (p *Program) Ledger() *ledger.Ledger { return p.ledger }

// PoolAddress derives the pool address for index.
func (p *Program) PoolAddress(index uint64) (solana.PublicKey, uint8, error) {
	if p.cfg.LegacyPool {
		return pda.LegacyPoolAddress(p.cfg.ProgramID)
	}
	return pda.PoolAddress(p.cfg.ProgramID, index)
}

// PoolKeys derives every address of the pool at index for the given mints.
func (p *Program) PoolKeys(index uint64, baseMint, quoteMint solana.PublicKey) (pda.PoolKeys, error) {
	if p.cfg.LegacyPool {
		return pda.DeriveLegacyPoolKeys(p.cfg.ProgramID, p.cfg.VaultScheme, baseMint, quoteMint)
	}
	return pda.DerivePoolKeys(p.cfg.ProgramID, p.cfg.VaultScheme, index, baseMint, quoteMint)
}

// LPAccount derives the LP claim account of user in pool.
func (p *Program) LPAccount(user, pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := pda.LPTokenAccount(p.cfg.ProgramID, user, pool)
	return addr, err
}

func (p *Program) loadPool(tx *ledger.Tx, addr solana.PublicKey) (model.Pool, error) {
	data, err := tx.AccountData(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return model.Pool{}, fmt.Errorf("pool %s: %w", addr, ErrPoolNotFound)
		}
		return model.Pool{}, err
	}
	var pool model.Pool
	if err := pool.UnmarshalAccount(data); err != nil {
		return model.Pool{}, fmt.Errorf("pool %s: %w", addr, err)
	}
	return pool, nil
}

func (p *Program) storePool(tx *ledger.Tx, addr solana.PublicKey, pool model.Pool) error {
	data, err := pool.MarshalAccount()
	if err != nil {
		return err
	}
	return tx.WriteAccountData(addr, data)
}

// reserves reads the vault balances, which are authoritative over the
// snapshot stored on the pool.
func reserves(tx *ledger.Tx, pool model.Pool) (base, quote uint64, err error) {
	bv, err := tx.TokenAccount(pool.BaseVault)
	if err != nil {
		return 0, 0, err
	}
	qv, err := tx.TokenAccount(pool.QuoteVault)
	if err != nil {
		return 0, 0, err
	}
	return bv.Amount, qv.Amount, nil
}

// userAccount loads a user token account and checks it holds mint.
func userAccount(tx *ledger.Tx, addr, mint solana.PublicKey) (ledger.TokenAccount, error) {
	acc, err := tx.TokenAccount(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ledger.TokenAccount{}, fmt.Errorf("%w: %w", ErrInvalidMint, err)
		}
		return ledger.TokenAccount{}, err
	}
	if acc.Mint != mint {
		return ledger.TokenAccount{}, fmt.Errorf("account %s holds %s, want %s: %w", addr, acc.Mint, mint, ErrInvalidMint)
	}
	return acc, nil
}

func (p *Program) emit(tx *ledger.Tx, ev model.Event) error {
	data, err := events.Encode(ev)
	if err != nil {
		return err
	}
	return tx.Emit(p.cfg.ProgramID, data)
}

func (p *Program) poolState(tx *ledger.Tx, addr solana.PublicKey, pool model.Pool) (model.PoolState, error) {
	lp, err := tx.Mint(pool.LPMint)
	if err != nil {
		return model.PoolState{}, err
	}
	return newPoolState(p.cfg.ProgramID, addr, pool, lp.Supply), nil
}

func newPoolState(program, addr solana.PublicKey, pool model.Pool, supply uint64) model.PoolState {
	return model.PoolState{
		Program:      program.String(),
		Address:      addr.String(),
		Index:        pool.Index,
		BaseMint:     pool.BaseMint.String(),
		QuoteMint:    pool.QuoteMint.String(),
		BaseVault:    pool.BaseVault.String(),
		QuoteVault:   pool.QuoteVault.String(),
		LPMint:       pool.LPMint.String(),
		LPDecimals:   pool.LPDecimals,
		LPSupply:     supply,
		BaseReserve:  pool.BaseReserve,
		QuoteReserve: pool.QuoteReserve,
		FeeBps:       pool.FeeBps,
		OpenTime:     pool.OpenTime,
	}
}

// publish forwards a committed receipt to the sink. Failures are logged only:
// the operation has already committed.
func (p *Program) publish(ctx context.Context, receipt ledger.Receipt, state model.PoolState) {
	if p.sink == nil {
		return
	}
	records, failed := events.NewRecords(receipt.Logs)
	for _, f := range failed {
		p.logger.Warn("undecodable event", zap.Uint64("seq", f.Seq), zap.String("error", f.Error))
	}
	if n := len(receipt.Logs); n > 0 {
		state.LastSeq = receipt.Logs[n-1].Seq
	}
	batch := model.EventBatch{Records: records, Pools: []model.PoolState{state}}
	if err := p.sink.Put(ctx, batch); err != nil {
		p.logger.Warn("event delivery failed", zap.String("tx", receipt.TxID), zap.Error(err))
	}
}

func (p *Program) rejected(op string, err error, fields ...zap.Field) {
	code, _ := Code(err)
	p.logger.Debug(op+" rejected", append(fields, zap.Int("code", code), zap.Error(err))...)
}
