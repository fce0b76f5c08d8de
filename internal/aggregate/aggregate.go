// Package aggregate merges candidate signals that assert the same intent
// within a sliding time window, counting distinct originators as consensus.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// DefaultWindow is the aggregation window when none is configured.
const DefaultWindow = 5 * time.Minute

type group struct {
	symbol     string
	action     types.Action
	earliest   time.Time
	latest     time.Time
	candidates []types.CandidateSignal
}

// Aggregate groups candidates sharing symbol+action within one window.
// Candidates with the same symbol but opposite action never merge; the
// conflict is surfaced as two aggregates. Affirmation candidates (empty
// symbol) attach to the most recent concrete group still inside the window
// and contribute to consensus only.
func Aggregate(candidates []types.CandidateSignal, window time.Duration) []types.AggregatedSignal {
	if window <= 0 {
		window = DefaultWindow
	}
	sorted := make([]types.CandidateSignal, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].OriginatorID < sorted[j].OriginatorID
	})

	var (
		groups []*group
		open   = map[string]*group{} // symbol|action -> newest open group
		last   *group                // most recent group that took a concrete candidate
	)
	for _, c := range sorted {
		if c.Symbol == "" {
			// Affirmation: ride along with whatever was just called out.
			if last != nil && !c.Timestamp.After(last.earliest.Add(window)) {
				joined := c
				joined.Symbol = last.symbol
				joined.Action = last.action
				last.candidates = append(last.candidates, joined)
				if c.Timestamp.After(last.latest) {
					last.latest = c.Timestamp
				}
			}
			continue
		}
		if !c.Action.Tradeable() {
			continue
		}
		key := c.Symbol + "|" + string(c.Action)
		g := open[key]
		if g == nil || c.Timestamp.After(g.earliest.Add(window)) {
			g = &group{symbol: c.Symbol, action: c.Action, earliest: c.Timestamp, latest: c.Timestamp}
			groups = append(groups, g)
			open[key] = g
		}
		g.candidates = append(g.candidates, c)
		if c.Timestamp.After(g.latest) {
			g.latest = c.Timestamp
		}
		last = g
	}

	out := make([]types.AggregatedSignal, 0, len(groups))
	for _, g := range groups {
		out = append(out, types.AggregatedSignal{
			Symbol:         g.symbol,
			Action:         g.action,
			Strike:         modeStrike(g.candidates),
			ConsensusCount: distinctOriginators(g.candidates),
			EarliestAt:     g.earliest,
			LatestAt:       g.latest,
			Candidates:     g.candidates,
		})
	}
	return out
}

func distinctOriginators(candidates []types.CandidateSignal) int {
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c.OriginatorID] = struct{}{}
	}
	return len(seen)
}

// modeStrike returns the most frequent non-nil strike, ties broken by
// earliest occurrence.
func modeStrike(candidates []types.CandidateSignal) *decimal.Decimal {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	values := map[string]decimal.Decimal{}
	for i, c := range candidates {
		if c.Strike == nil {
			continue
		}
		key := c.Strike.String()
		counts[key]++
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
			values[key] = *c.Strike
		}
	}
	bestKey := ""
	for key := range counts {
		if bestKey == "" {
			bestKey = key
			continue
		}
		if counts[key] > counts[bestKey] ||
			(counts[key] == counts[bestKey] && firstSeen[key] < firstSeen[bestKey]) {
			bestKey = key
		}
	}
	if bestKey == "" {
		return nil
	}
	v := values[bestKey]
	return &v
}
