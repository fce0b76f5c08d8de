// Package decision turns scored signals into trade intents and defers
// each intent to the external evaluator for a final verdict.
package decision

import (
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Merge flattens per-source signal batches into one list. Sources are
// given in priority order; when two sources assert the same symbol and
// action, the earlier source wins and the later duplicate is dropped.
func Merge(bySource ...[]types.ScoredSignal) []types.ScoredSignal {
	seen := make(map[string]struct{})
	var out []types.ScoredSignal
	for _, batch := range bySource {
		for _, sig := range batch {
			key := sig.Symbol + "|" + string(sig.Action)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, sig)
		}
	}
	return out
}
