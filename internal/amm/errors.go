package amm

import (
	"errors"
	"fmt"

	"liquidityAMM/internal/ledger"
)

var (
	ErrDuplicatePool                = errors.New("pool already exists")
	ErrPoolNotFound                 = errors.New("pool not found")
	ErrInvalidAmount                = errors.New("invalid amount")
	ErrInsufficientFunds            = errors.New("insufficient funds")
	ErrSlippageExceeded             = errors.New("slippage exceeded")
	ErrInsufficientLiquidity        = errors.New("insufficient liquidity")
	ErrOverflow                     = errors.New("arithmetic overflow")
	ErrZeroLiquidity                = errors.New("zero liquidity")
	ErrInvalidMint                  = errors.New("invalid mint")
	ErrInvalidLPMintDecimal         = errors.New("invalid lp mint decimals")
	ErrInsufficientInitialLiquidity = errors.New("insufficient initial liquidity")
)

// ErrorCodeOffset is where program error codes start.
const ErrorCodeOffset = 6000

var errorCodes = []error{
	ErrDuplicatePool,
	ErrPoolNotFound,
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrSlippageExceeded,
	ErrInsufficientLiquidity,
	ErrOverflow,
	ErrZeroLiquidity,
	ErrInvalidMint,
	ErrInvalidLPMintDecimal,
	ErrInsufficientInitialLiquidity,
}

// Code maps err to its stable program error code. ok is false when err is
// not one of the program errors.
func Code(err error) (code int, ok bool) {
	for i, target := range errorCodes {
		if errors.Is(err, target) {
			return ErrorCodeOffset + i, true
		}
	}
	return 0, false
}

// ErrorForCode is the inverse of Code.
func ErrorForCode(code int) error {
	i := code - ErrorCodeOffset
	if i < 0 || i >= len(errorCodes) {
		return nil
	}
	return errorCodes[i]
}

// ledgerError translates collaborator failures into program errors, keeping
// the original error in the chain.
func ledgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, ledger.ErrUnauthorized):
		// Nothing in an account the user does not own is spendable by them.
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, ledger.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrOverflow, err)
	case errors.Is(err, ledger.ErrMintMismatch), errors.Is(err, ledger.ErrMintNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidMint, err)
	case errors.Is(err, ledger.ErrAccountExists):
		return fmt.Errorf("%w: %w", ErrDuplicatePool, err)
	default:
		return err
	}
}
