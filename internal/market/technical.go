package market

import (
	"context"
	"fmt"
	"time"

	"github.com/liorsolomon/ai-options-trading-bot/internal/ingest"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0

	// Extremes beyond these get a small confidence bump.
	rsiDeepOverbought = 80.0
	rsiDeepOversold   = 20.0

	technicalBase  = 0.6
	technicalBump  = 0.1
	candleLookback = 120
)

// TechnicalScanner watches a fixed symbol set and emits signals when
// RSI leaves the neutral band. Lowest-priority source; chat consensus
// and direct submissions both outrank it in the merge.
type TechnicalScanner struct {
	source  Source
	symbols []string
	nowFn   func() time.Time
}

func NewTechnicalScanner(source Source, symbols []string) *TechnicalScanner {
	return &TechnicalScanner{source: source, symbols: symbols, nowFn: time.Now}
}

func (t *TechnicalScanner) Name() string { return "technical" }

func (t *TechnicalScanner) Collect(ctx context.Context) ([]types.ScoredSignal, ingest.Stats, error) {
	var (
		out   []types.ScoredSignal
		stats ingest.Stats
	)
	now := t.nowFn().UTC()
	for _, symbol := range t.symbols {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}
		candles, err := t.source.Candles(ctx, symbol, candleLookback)
		if err != nil {
			logger.Warnf("technical: candles %s: %v", symbol, err)
			continue
		}
		snap, err := ComputeSnapshot(symbol, candles)
		if err != nil {
			logger.Warnf("technical: %v", err)
			continue
		}
		sig, ok := t.fromSnapshot(snap, now)
		if !ok {
			continue
		}
		out = append(out, sig)
		stats.Items++
	}
	return out, stats, nil
}

func (t *TechnicalScanner) fromSnapshot(snap Snapshot, now time.Time) (types.ScoredSignal, bool) {
	var (
		action types.Action
		deep   bool
	)
	switch {
	case snap.RSI <= rsiOversold:
		action = types.ActionBuyCall
		deep = snap.RSI <= rsiDeepOversold
	case snap.RSI >= rsiOverbought:
		action = types.ActionBuyPut
		deep = snap.RSI >= rsiDeepOverbought
	default:
		return types.ScoredSignal{}, false
	}
	conf := technicalBase
	if deep {
		conf += technicalBump
	}
	return types.ScoredSignal{
		AggregatedSignal: types.AggregatedSignal{
			Symbol:         snap.Symbol,
			Action:         action,
			ConsensusCount: 1,
			EarliestAt:     now,
			LatestAt:       now,
		},
		Confidence: conf,
		Source:     "technical",
		Rationale: fmt.Sprintf("RSI(%d)=%.1f with %s trend, last close %.2f",
			rsiPeriod, snap.RSI, snap.Trend, snap.LastClose),
	}, true
}
