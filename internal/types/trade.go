package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeIntent is a proposed, not-yet-validated trade produced by the
// decision engine.
type TradeIntent struct {
	TraceID        string          `json:"trace_id"`
	Symbol         string          `json:"symbol"`
	Action         Action          `json:"action"`
	Strike         decimal.Decimal `json:"strike"`
	ExpirationDays int             `json:"expiration_days"`
	RequestedQty   int             `json:"requested_qty"`
	Confidence     float64         `json:"confidence"`
	Rationale      string          `json:"rationale"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ApprovedTrade is a TradeIntent that passed the risk gate. Quantity may be
// reduced by the gate but never increased.
type ApprovedTrade struct {
	TradeIntent
	ApprovedQty  int      `json:"approved_qty"`
	ChecksPassed []string `json:"checks_passed"`
}

// PositionState is the lifecycle state of a position. PENDING and OPEN are
// live; CLOSED and FAILED are terminal.
type PositionState string

const (
	PositionPending PositionState = "PENDING"
	PositionOpen    PositionState = "OPEN"
	PositionClosed  PositionState = "CLOSED"
	PositionFailed  PositionState = "FAILED"
)

// Terminal reports whether no further transition is accepted from s.
func (s PositionState) Terminal() bool {
	return s == PositionClosed || s == PositionFailed
}

// CloseReason names the exit trigger that closed a position.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseTimeStop   CloseReason = "TIME_STOP"
)

// Position is the only long-lived mutable entity in the pipeline. It is
// mutated exclusively by the position tracker.
type Position struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Action       Action          `json:"action"`
	Quantity     int             `json:"quantity"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	EntryTime    time.Time       `json:"entry_time"`
	State        PositionState   `json:"state"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	TakeProfit   decimal.Decimal `json:"take_profit"`
	MaxHoldUntil time.Time       `json:"max_hold_until"`

	ExitPrice   decimal.Decimal `json:"exit_price,omitempty"`
	ExitTime    time.Time       `json:"exit_time,omitempty"`
	CloseReason CloseReason     `json:"close_reason,omitempty"`
	RealizedPnL decimal.Decimal `json:"realized_pnl,omitempty"`
}

// Bullish reports whether the position gains when the underlying rises.
func (p Position) Bullish() bool {
	return p.Action.Sentiment() == SentimentBullish
}
