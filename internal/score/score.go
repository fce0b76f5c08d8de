// Package score assigns a bounded confidence value to aggregated signals.
package score

import (
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Scoring weights. The exact numbers are tunable, but the formula must stay
// monotonic in consensus and specificity, and deterministic for identical
// input.
const (
	base            = 0.5
	perOriginator   = 0.1 // per distinct originator beyond the first
	consensusCap    = 0.3
	strikeBonus     = 0.15
	urgencyBonus    = 0.1
	horizonBonus    = 0.05
	sourceChat      = "chat"
)

// Score wraps an aggregate with its confidence. Source tags where the
// aggregate came from; chat-derived aggregates use the "chat" tag.
func Score(sig types.AggregatedSignal) types.ScoredSignal {
	c := base
	consensus := float64(sig.ConsensusCount-1) * perOriginator
	if consensus > consensusCap {
		consensus = consensusCap
	}
	if consensus > 0 {
		c += consensus
	}
	if sig.Strike != nil {
		c += strikeBonus
	}
	if sig.HasHighUrgency() {
		c += urgencyBonus
	}
	if sig.HorizonDays() != nil {
		c += horizonBonus
	}
	if c > 1.0 {
		c = 1.0
	}
	if c < 0.0 {
		c = 0.0
	}
	return types.ScoredSignal{
		AggregatedSignal: sig,
		Confidence:       c,
		Source:           sourceChat,
	}
}

// All scores each aggregate in order.
func All(signals []types.AggregatedSignal) []types.ScoredSignal {
	out := make([]types.ScoredSignal, 0, len(signals))
	for _, s := range signals {
		out = append(out, Score(s))
	}
	return out
}
