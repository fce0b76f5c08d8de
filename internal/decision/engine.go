package decision

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/evaluator"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

const (
	defaultThreshold      = 0.6
	defaultExpirationDays = 30
	snapshotLookback      = 120
)

// Skip reasons recorded alongside signals that produced no intent.
const (
	SkipBelowThreshold = "below_threshold"
	SkipNotTradeable   = "not_tradeable"
	SkipNoPrice        = "no_price"
	SkipZeroQuantity   = "zero_quantity"
	SkipEvaluatorVeto  = "evaluator_veto"
	SkipEvaluatorDown  = "evaluator_unavailable"
)

// Skipped records a signal that did not become a trade intent.
type Skipped struct {
	Signal types.ScoredSignal
	Reason string
	Detail string
}

type Config struct {
	ConfidenceThreshold float64
	// RiskFraction of equity put at risk per trade; quantity is this
	// budget divided by the stop distance.
	RiskFraction         decimal.Decimal
	StopDistanceFraction decimal.Decimal
	EvaluatorTimeout     time.Duration
}

// Engine filters scored signals by confidence, sizes the survivors and
// runs each past the evaluator. The evaluator can veto or lower
// confidence; it can never raise it, and silence means veto.
type Engine struct {
	cfg    Config
	prices market.Source
	eval   evaluator.Evaluator
	nowFn  func() time.Time
}

func NewEngine(cfg Config, prices market.Source, eval evaluator.Evaluator) *Engine {
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = defaultThreshold
	}
	if cfg.EvaluatorTimeout == 0 {
		cfg.EvaluatorTimeout = 30 * time.Second
	}
	return &Engine{cfg: cfg, prices: prices, eval: eval, nowFn: time.Now}
}

// Decide processes one merged signal batch. Returned intents carry the
// evaluator-adjusted confidence; every non-converted signal appears in
// skipped with its reason.
func (e *Engine) Decide(ctx context.Context, signals []types.ScoredSignal, equity decimal.Decimal) ([]types.TradeIntent, []Skipped) {
	var (
		intents []types.TradeIntent
		skipped []Skipped
	)
	for _, sig := range signals {
		if !sig.Action.Tradeable() {
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipNotTradeable})
			continue
		}
		if sig.Confidence < e.cfg.ConfidenceThreshold {
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipBelowThreshold})
			continue
		}

		price, err := e.prices.LastPrice(ctx, sig.Symbol)
		if err != nil || price.Sign() <= 0 {
			logger.Warnf("decision: no price for %s: %v", sig.Symbol, err)
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipNoPrice})
			continue
		}

		qty := e.sizePosition(equity, price)
		if qty <= 0 {
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipZeroQuantity})
			continue
		}

		intent := e.buildIntent(sig, price, qty)
		resp, err := e.review(ctx, intent)
		switch {
		case err != nil:
			logger.Warnf("decision: evaluator unavailable for %s, vetoing: %v", intent.Symbol, err)
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipEvaluatorDown, Detail: err.Error()})
		case !resp.Approve:
			skipped = append(skipped, Skipped{Signal: sig, Reason: SkipEvaluatorVeto, Detail: resp.Rationale})
		default:
			if resp.AdjustedConfidence < intent.Confidence {
				intent.Confidence = resp.AdjustedConfidence
			}
			if resp.Rationale != "" {
				intent.Rationale = intent.Rationale + " | review: " + resp.Rationale
			}
			intents = append(intents, intent)
		}
	}
	return intents, skipped
}

// MarkPrice exposes the engine's price source so callers can value an
// intent at the same mark the sizing used.
func (e *Engine) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return e.prices.LastPrice(ctx, symbol)
}

// sizePosition converts the per-trade risk budget into a unit count.
func (e *Engine) sizePosition(equity, price decimal.Decimal) int {
	budget := equity.Mul(e.cfg.RiskFraction)
	stopDistance := price.Mul(e.cfg.StopDistanceFraction)
	if stopDistance.Sign() <= 0 {
		return 0
	}
	return int(budget.Div(stopDistance).IntPart())
}

func (e *Engine) buildIntent(sig types.ScoredSignal, price decimal.Decimal, qty int) types.TradeIntent {
	strike := price.Round(0)
	if sig.Strike != nil {
		strike = *sig.Strike
	}
	expDays := defaultExpirationDays
	if h := sig.HorizonDays(); h != nil {
		expDays = *h
	}
	return types.TradeIntent{
		TraceID:        uuid.NewString(),
		Symbol:         sig.Symbol,
		Action:         sig.Action,
		Strike:         strike,
		ExpirationDays: expDays,
		RequestedQty:   qty,
		Confidence:     sig.Confidence,
		Rationale:      rationale(sig),
		CreatedAt:      e.nowFn().UTC(),
	}
}

// review wraps the evaluator call with its bounded timeout and the
// market context snapshot.
func (e *Engine) review(ctx context.Context, intent types.TradeIntent) (evaluator.Response, error) {
	candles, err := e.prices.Candles(ctx, intent.Symbol, snapshotLookback)
	var snap market.Snapshot
	if err == nil {
		snap, err = market.ComputeSnapshot(intent.Symbol, candles)
	}
	if err != nil {
		// Degraded context is still context; the reviewer sees the
		// symbol and zeroed indicators rather than being skipped.
		logger.Debugf("decision: snapshot for %s unavailable: %v", intent.Symbol, err)
		snap = market.Snapshot{Symbol: intent.Symbol, Trend: "flat"}
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.cfg.EvaluatorTimeout)
	defer cancel()
	resp, err := e.eval.Evaluate(evalCtx, evaluator.Request{Intent: intent, Context: snap})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return evaluator.Response{}, evaluator.ErrUnavailable
		}
		return evaluator.Response{}, err
	}
	if resp.AdjustedConfidence > intent.Confidence {
		resp.AdjustedConfidence = intent.Confidence
	}
	return resp, nil
}

func rationale(sig types.ScoredSignal) string {
	if sig.Rationale != "" {
		return sig.Rationale
	}
	return "consensus " + sig.Source + " signal"
}
