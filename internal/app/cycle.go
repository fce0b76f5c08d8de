package app

import (
	"context"
	"errors"
	"time"

	"github.com/liorsolomon/ai-options-trading-bot/internal/decision"
	"github.com/liorsolomon/ai-options-trading-bot/internal/ingest"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/pkg/text"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// cycleSummary is the operator-facing record appended to the event log
// after every cycle.
type cycleSummary struct {
	StartedAt      time.Time `json:"started_at"`
	DurationMillis int64     `json:"duration_millis"`
	Quarantined    int       `json:"quarantined"`
	Signals        int       `json:"signals"`
	Intents        int       `json:"intents"`
	Approved       int       `json:"approved"`
	Rejected       int       `json:"rejected"`
	Opened         int       `json:"opened"`
	FailedFills    int       `json:"failed_fills"`
	OpenPositions  int       `json:"open_positions"`
	DailyLatched   bool      `json:"daily_loss_latched"`
}

// runCycle drains accumulated input and walks it through the full
// pipeline. Individual failures are counted, never fatal to the cycle.
func (a *App) runCycle(ctx context.Context) {
	started := time.Now().UTC()
	summary := cycleSummary{StartedAt: started}

	summary.Quarantined = ingest.FeedDrain(a.queue, a.chatSource, a.subSource)

	// Sources in priority order; the merge is first-wins per
	// symbol+action so submissions outrank chat, chat outranks the
	// technical scanner.
	subs := a.collect(ctx, a.subSource, &summary)
	chat := a.collect(ctx, a.chatSource, &summary)
	tech := a.collect(ctx, a.scanner, &summary)
	merged := decision.Merge(subs, chat, tech)
	summary.Signals = len(merged)

	for _, sig := range merged {
		if err := a.audit.AppendSignal(sig); err != nil {
			logger.Warnf("audit: signal: %v", err)
		}
	}

	equity := a.gate.Snapshot().Equity
	intents, skipped := a.engine.Decide(ctx, merged, equity)
	summary.Intents = len(intents)
	for _, s := range skipped {
		a.auditSkip(s)
	}

	for _, intent := range intents {
		price, err := a.engine.MarkPrice(ctx, intent.Symbol)
		if err != nil {
			logger.Warnf("cycle: mark price %s: %v", intent.Symbol, err)
			continue
		}
		approved, err := a.gate.Validate(intent, price)
		if err != nil {
			summary.Rejected++
			var rej *risk.Rejection
			if errors.As(err, &rej) {
				logger.Infof("cycle: %s rejected by %s: %s", intent.Symbol, rej.Check, rej.Reason)
				a.auditIntent(intent, rej.Check, rej.Reason)
			} else {
				a.auditIntent(intent, "rejected", err.Error())
			}
			continue
		}
		summary.Approved++
		a.auditIntent(intent, "approved", "")
		if err := a.audit.AppendApproval(approved); err != nil {
			logger.Warnf("audit: approval: %v", err)
		}

		pos, err := a.tracker.Open(ctx, approved)
		if err != nil || pos.State == types.PositionFailed {
			summary.FailedFills++
			continue
		}
		summary.Opened++
	}

	summary.OpenPositions = a.tracker.OpenCount()
	summary.DailyLatched = a.gate.Snapshot().DailyLossLatched
	summary.DurationMillis = time.Since(started).Milliseconds()
	if err := a.events.Append("cycle_summary", summary); err != nil {
		logger.Warnf("event log: cycle summary: %v", err)
	}
	logger.Infof("cycle done in %dms: signals=%d intents=%d approved=%d opened=%d rejected=%d quarantined=%d",
		summary.DurationMillis, summary.Signals, summary.Intents,
		summary.Approved, summary.Opened, summary.Rejected, summary.Quarantined)
}

func (a *App) collect(ctx context.Context, src ingest.Source, summary *cycleSummary) []types.ScoredSignal {
	signals, stats, err := src.Collect(ctx)
	if err != nil {
		logger.Warnf("cycle: source %s: %v", src.Name(), err)
	}
	summary.Quarantined += stats.Quarantined
	return signals
}

func (a *App) auditSkip(s decision.Skipped) {
	intent := types.TradeIntent{
		Symbol:     s.Signal.Symbol,
		Action:     s.Signal.Action,
		Confidence: s.Signal.Confidence,
	}
	if err := a.audit.AppendIntent(intent, s.Reason, text.Truncate(s.Detail, 300)); err != nil {
		logger.Warnf("audit: skip: %v", err)
	}
}

func (a *App) auditIntent(intent types.TradeIntent, outcome, detail string) {
	if err := a.audit.AppendIntent(intent, outcome, detail); err != nil {
		logger.Warnf("audit: intent: %v", err)
	}
}
