package evaluator

import (
	"context"
	"fmt"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// RuleBased is a deterministic offline reviewer used when no model
// endpoint is configured. It vetoes trades that fight the SMA trend and
// shaves confidence when RSI already sits in the extreme the trade is
// betting toward.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Evaluate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	conf := req.Intent.Confidence
	bullish := req.Intent.Action.Sentiment() == types.SentimentBullish

	if bullish && req.Context.Trend == "down" {
		return Response{
			Approve:            false,
			AdjustedConfidence: conf,
			Rationale:          "bullish entry against a downtrend",
		}, nil
	}
	if !bullish && req.Context.Trend == "up" {
		return Response{
			Approve:            false,
			AdjustedConfidence: conf,
			Rationale:          "bearish entry against an uptrend",
		}, nil
	}

	rationale := "trend-aligned"
	if bullish && req.Context.RSI >= 70 {
		conf -= 0.1
		rationale = "overbought, reduced conviction"
	} else if !bullish && req.Context.RSI <= 30 {
		conf -= 0.1
		rationale = "oversold, reduced conviction"
	}
	if conf < 0 {
		conf = 0
	}
	return Response{Approve: true, AdjustedConfidence: conf, Rationale: rationale}, nil
}
