package model

import "github.com/gagliardetto/solana-go"

// Event names as they appear in emitted records.
const (
	EventInitializeLiquidityPool = "InitializeLiquidityPoolEvent"
	EventDeposit                 = "DepositEvent"
	EventSwap                    = "SwapEvent"
	EventWithdraw                = "WithdrawEvent"
)

// Event is implemented by every payload the program emits.
type Event interface {
	EventName() string
}

// InitializeLiquidityPoolEvent is emitted once per pool creation.
type InitializeLiquidityPoolEvent struct {
	LiquidityProvider solana.PublicKey `json:"liquidity_provider"`
	BaseMint          solana.PublicKey `json:"base_mint"`
	QuoteMint         solana.PublicKey `json:"quote_mint"`
	BaseAmount        uint64           `json:"base_amount,string"`
	QuoteAmount       uint64           `json:"quote_amount,string"`
}

func (InitializeLiquidityPoolEvent) EventName() string { return EventInitializeLiquidityPool }

// DepositEvent is emitted for each proportional deposit.
type DepositEvent struct {
	User        solana.PublicKey `json:"user"`
	Pool        solana.PublicKey `json:"pool"`
	Side        uint8            `json:"side"`
	BaseAmount  uint64           `json:"base_amount,string"`
	QuoteAmount uint64           `json:"quote_amount,string"`
	LPAmount    uint64           `json:"lp_amount,string"`
}

func (DepositEvent) EventName() string { return EventDeposit }

// SwapEvent is emitted for each exchange against pool reserves.
type SwapEvent struct {
	User      solana.PublicKey `json:"user"`
	Pool      solana.PublicKey `json:"pool"`
	Direction uint8            `json:"direction"`
	AmountIn  uint64           `json:"amount_in,string"`
	AmountOut uint64           `json:"amount_out,string"`
	Fee       uint64           `json:"fee,string"`
}

func (SwapEvent) EventName() string { return EventSwap }

// WithdrawEvent is emitted when liquidity units are redeemed.
type WithdrawEvent struct {
	User        solana.PublicKey `json:"user"`
	Pool        solana.PublicKey `json:"pool"`
	LPAmount    uint64           `json:"lp_amount,string"`
	BaseAmount  uint64           `json:"base_amount,string"`
	QuoteAmount uint64           `json:"quote_amount,string"`
}

func (WithdrawEvent) EventName() string { return EventWithdraw }
