package amm

import "liquidityAMM/internal/model"

const bpsDenominator = 10_000

// DepositQuote is the outcome of a proportional deposit.
type DepositQuote struct {
	BaseAmount  uint64 `json:"base_amount"`
	QuoteAmount uint64 `json:"quote_amount"`
	LPAmount    uint64 `json:"lp_amount"`
}

// QuoteDeposit prices a deposit where amount on side is authoritative. The
// opposite amount rounds up and the minted units round down, so rounding
// always favors the pool.
func QuoteDeposit(side model.Side, amount, baseReserve, quoteReserve, supply uint64) (DepositQuote, error) {
	if amount == 0 {
		return DepositQuote{}, ErrInvalidAmount
	}
	authReserve, otherReserve := baseReserve, quoteReserve
	if side == model.SideQuote {
		authReserve, otherReserve = quoteReserve, baseReserve
	}
	if supply == 0 || authReserve == 0 {
		return DepositQuote{}, ErrZeroLiquidity
	}

	other, err := mulDivCeil(amount, otherReserve, authReserve)
	if err != nil {
		return DepositQuote{}, err
	}
	lp, err := mulDiv(amount, supply, authReserve)
	if err != nil {
		return DepositQuote{}, err
	}
	if lp == 0 {
		return DepositQuote{}, ErrInvalidAmount
	}

	q := DepositQuote{BaseAmount: amount, QuoteAmount: other, LPAmount: lp}
	if side == model.SideQuote {
		q.BaseAmount, q.QuoteAmount = other, amount
	}
	return q, nil
}

// SwapQuote is the outcome of a swap against fixed reserves.
type SwapQuote struct {
	AmountIn  uint64 `json:"amount_in"`
	Fee       uint64 `json:"fee"`
	AmountOut uint64 `json:"amount_out"`
}

// QuoteSwap prices amountIn against pre-trade reserves:
// out = floor((amountIn - fee) * reserveOut / reserveIn).
// An output that would empty the output reserve fails with
// ErrInsufficientLiquidity, and one that rounds to zero fails with
// ErrInvalidAmount, so not every positive amountIn is tradable.
func QuoteSwap(amountIn, reserveIn, reserveOut uint64, feeBps uint16) (SwapQuote, error) {
	if amountIn == 0 {
		return SwapQuote{}, ErrInvalidAmount
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	if feeBps > bpsDenominator {
		return SwapQuote{}, ErrInvalidAmount
	}
	if _, err := checkedAdd(reserveIn, amountIn); err != nil {
		return SwapQuote{}, err
	}

	fee, err := mulDiv(amountIn, uint64(feeBps), bpsDenominator)
	if err != nil {
		return SwapQuote{}, err
	}
	out, err := mulDiv(amountIn-fee, reserveOut, reserveIn)
	if err != nil {
		return SwapQuote{}, err
	}
	if out == 0 {
		return SwapQuote{}, ErrInvalidAmount
	}
	if out >= reserveOut {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	return SwapQuote{AmountIn: amountIn, Fee: fee, AmountOut: out}, nil
}

// WithdrawQuote is the outcome of redeeming liquidity units.
type WithdrawQuote struct {
	LPAmount    uint64 `json:"lp_amount"`
	BaseAmount  uint64 `json:"base_amount"`
	QuoteAmount uint64 `json:"quote_amount"`
}

// QuoteWithdraw prices redeeming lp units for a pro-rata share of both
// reserves. A share may never empty a vault.
func QuoteWithdraw(lp, baseReserve, quoteReserve, supply uint64) (WithdrawQuote, error) {
	if lp == 0 {
		return WithdrawQuote{}, ErrInvalidAmount
	}
	if supply == 0 {
		return WithdrawQuote{}, ErrZeroLiquidity
	}
	if lp > supply {
		return WithdrawQuote{}, ErrInsufficientLiquidity
	}

	base, err := mulDiv(lp, baseReserve, supply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	quote, err := mulDiv(lp, quoteReserve, supply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	if base >= baseReserve || quote >= quoteReserve {
		return WithdrawQuote{}, ErrInsufficientLiquidity
	}
	if base == 0 && quote == 0 {
		return WithdrawQuote{}, ErrInvalidAmount
	}
	return WithdrawQuote{LPAmount: lp, BaseAmount: base, QuoteAmount: quote}, nil
}

// InitialLiquidity computes the units minted when a pool is created.
func InitialLiquidity(baseAmount, quoteAmount uint64, lpDecimals uint8, offset OffsetFunc) (uint64, error) {
	if baseAmount == 0 || quoteAmount == 0 {
		return 0, ErrInvalidAmount
	}
	if lpDecimals == 0 || lpDecimals > 19 {
		return 0, ErrInvalidLPMintDecimal
	}
	if offset == nil {
		offset = DecimalUnitOffset
	}
	sub, err := offset(lpDecimals)
	if err != nil {
		return 0, err
	}
	root := sqrtProduct(baseAmount, quoteAmount)
	if root <= sub {
		return 0, ErrInsufficientInitialLiquidity
	}
	return root - sub, nil
}

// OffsetFunc returns the units withheld from the initial mint of a pool with
// the given LP decimals.
type OffsetFunc func(lpDecimals uint8) (uint64, error)

// DecimalUnitOffset withholds one whole LP unit, 10^lpDecimals.
func DecimalUnitOffset(lpDecimals uint8) (uint64, error) {
	return pow10(lpDecimals)
}

// NoOffset withholds nothing.
func NoOffset(uint8) (uint64, error) { return 0, nil }
