// Package evaluator is the second-opinion stage. A candidate trade that
// clears the confidence threshold is shown to an evaluator together
// with market context; the evaluator may wave it through, lower its
// confidence, or veto it. No answer means no trade.
package evaluator

import (
	"context"
	"errors"

	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// ErrUnavailable marks evaluator failures (timeout, open breaker,
// unparseable reply). Callers treat it as a veto.
var ErrUnavailable = errors.New("evaluator unavailable")

type Request struct {
	Intent  types.TradeIntent
	Context market.Snapshot
}

type Response struct {
	Approve bool
	// AdjustedConfidence is clamped by callers so it never exceeds the
	// intent's confidence.
	AdjustedConfidence float64
	Rationale          string
}

type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Response, error)
}
