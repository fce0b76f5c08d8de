package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Check names, also used in ApprovedTrade.ChecksPassed and rejections.
const (
	CheckExposure    = "exposure"
	CheckPerTradeCap = "per_trade_cap"
	CheckDailyLoss   = "daily_loss"
	CheckCorrelation = "correlation"
)

// Rejection reports which check refused an intent.
type Rejection struct {
	Check  string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("risk rejection [%s]: %s", r.Check, r.Reason)
}

// Toggles enables individual checks. The default config enables all.
type Toggles struct {
	Exposure    bool
	PerTradeCap bool
	DailyLoss   bool
	Correlation bool
}

type Config struct {
	ExposureCeilingFraction decimal.Decimal
	PerTradeCapFraction     decimal.Decimal
	DailyLossLimitFraction  decimal.Decimal
	CorrelationLimit        float64
	// Groups maps symbol to a correlation bucket. Symbols in the same
	// bucket are treated as correlated at GroupRho.
	Groups   map[string]string
	GroupRho float64
	Toggles  Toggles
}

// Gate runs the sequential risk checks. Exposure and size resize the
// intent downward; daily-loss and correlation are hard stops, and a
// daily-loss breach latches for the rest of the trading day.
type Gate struct {
	mu    sync.Mutex
	cfg   Config
	snap  Snapshot
	nowFn func() time.Time
}

func NewGate(cfg Config, equity decimal.Decimal) *Gate {
	if cfg.GroupRho == 0 {
		cfg.GroupRho = 0.8
	}
	g := &Gate{cfg: cfg, nowFn: time.Now}
	g.snap = newSnapshot(equity, g.nowFn())
	return g
}

// Snapshot returns a copy of the current portfolio state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap.clone()
}

// Validate runs the checks in fixed order against the current snapshot
// and, on acceptance, applies the trade's exposure to it. The approved
// quantity is never above the requested quantity.
func (g *Gate) Validate(intent types.TradeIntent, price decimal.Decimal) (types.ApprovedTrade, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay()

	if intent.RequestedQty <= 0 {
		return types.ApprovedTrade{}, &Rejection{Check: CheckExposure, Reason: "non-positive quantity"}
	}
	if price.Sign() <= 0 {
		return types.ApprovedTrade{}, &Rejection{Check: CheckExposure, Reason: "no valid mark price"}
	}

	qty := intent.RequestedQty
	var passed []string

	if g.cfg.Toggles.Exposure {
		ceiling := g.snap.Equity.Mul(g.cfg.ExposureCeilingFraction)
		headroom := ceiling.Sub(g.snap.OpenExposure)
		if resized, ok := fitQty(qty, price, headroom); !ok {
			return types.ApprovedTrade{}, &Rejection{
				Check:  CheckExposure,
				Reason: fmt.Sprintf("exposure %s at ceiling %s", g.snap.OpenExposure, ceiling),
			}
		} else if resized < qty {
			logger.Infof("risk: %s resized %d -> %d by exposure headroom", intent.Symbol, qty, resized)
			qty = resized
		}
		passed = append(passed, CheckExposure)
	}

	if g.cfg.Toggles.PerTradeCap {
		cap := g.snap.Equity.Mul(g.cfg.PerTradeCapFraction)
		if resized, ok := fitQty(qty, price, cap); !ok {
			return types.ApprovedTrade{}, &Rejection{
				Check:  CheckPerTradeCap,
				Reason: fmt.Sprintf("per-trade cap %s below one unit at %s", cap, price),
			}
		} else if resized < qty {
			logger.Infof("risk: %s resized %d -> %d by per-trade cap", intent.Symbol, qty, resized)
			qty = resized
		}
		passed = append(passed, CheckPerTradeCap)
	}

	if g.cfg.Toggles.DailyLoss {
		limit := g.snap.Equity.Mul(g.cfg.DailyLossLimitFraction)
		if g.snap.DailyLossLatched || (limit.Sign() > 0 && g.snap.DailyRealizedPnL.Neg().GreaterThanOrEqual(limit)) {
			if !g.snap.DailyLossLatched {
				g.snap.DailyLossLatched = true
				g.snap.Version++
				logger.Errorf("risk: daily loss limit breached (pnl=%s limit=%s), no new positions until %s rolls over",
					g.snap.DailyRealizedPnL, limit.Neg(), g.snap.Day)
			}
			return types.ApprovedTrade{}, &Rejection{
				Check:  CheckDailyLoss,
				Reason: "daily loss limit breached, new positions suppressed for the day",
			}
		}
		passed = append(passed, CheckDailyLoss)
	}

	if g.cfg.Toggles.Correlation {
		if rho, other := g.maxCorrelation(intent.Symbol); rho > g.cfg.CorrelationLimit {
			return types.ApprovedTrade{}, &Rejection{
				Check:  CheckCorrelation,
				Reason: fmt.Sprintf("correlation %.2f with open %s exceeds limit %.2f", rho, other, g.cfg.CorrelationLimit),
			}
		}
		passed = append(passed, CheckCorrelation)
	}

	approved := types.ApprovedTrade{
		TradeIntent:  intent,
		ApprovedQty:  qty,
		ChecksPassed: passed,
	}
	g.apply(approved, price)
	return approved, nil
}

// RecordFill replaces the provisional notional applied at approval with
// the actual fill footprint, keyed by position id for later release.
func (g *Gate) RecordFill(positionID, symbol string, qty int, fillPrice decimal.Decimal, traceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.snap.Open {
		if e.PositionID == traceID {
			g.snap.OpenExposure = g.snap.OpenExposure.Sub(e.Notional)
			notional := fillPrice.Mul(decimal.NewFromInt(int64(qty)))
			g.snap.Open[i] = OpenExposureEntry{PositionID: positionID, Symbol: symbol, Notional: notional}
			g.snap.OpenExposure = g.snap.OpenExposure.Add(notional)
			g.snap.Version++
			return
		}
	}
}

// Release drops a position's exposure and books its realized P&L.
// Called when a position closes or fails to fill.
func (g *Gate) Release(positionID string, realized decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay()
	for i, e := range g.snap.Open {
		if e.PositionID == positionID {
			g.snap.OpenExposure = g.snap.OpenExposure.Sub(e.Notional)
			g.snap.Open = append(g.snap.Open[:i], g.snap.Open[i+1:]...)
			break
		}
	}
	g.snap.DailyRealizedPnL = g.snap.DailyRealizedPnL.Add(realized)
	g.snap.Equity = g.snap.Equity.Add(realized)
	g.snap.Version++
}

func (g *Gate) apply(t types.ApprovedTrade, price decimal.Decimal) {
	notional := price.Mul(decimal.NewFromInt(int64(t.ApprovedQty)))
	g.snap.Open = append(g.snap.Open, OpenExposureEntry{
		PositionID: t.TraceID,
		Symbol:     t.Symbol,
		Notional:   notional,
	})
	g.snap.OpenExposure = g.snap.OpenExposure.Add(notional)
	g.snap.Version++
}

// rollDay resets the daily accumulators when the trading day changes.
// Callers hold the lock.
func (g *Gate) rollDay() {
	day := tradingDay(g.nowFn())
	if day == g.snap.Day {
		return
	}
	g.snap.Day = day
	g.snap.DailyRealizedPnL = decimal.Zero
	g.snap.DailyLossLatched = false
	g.snap.Version++
}

// maxCorrelation returns the highest assumed correlation between symbol
// and any open position. Same symbol counts as 1.0, same group as
// GroupRho, otherwise uncorrelated.
func (g *Gate) maxCorrelation(symbol string) (float64, string) {
	group := g.cfg.Groups[symbol]
	var (
		max   float64
		other string
	)
	for _, e := range g.snap.Open {
		rho := 0.0
		switch {
		case e.Symbol == symbol:
			rho = 1.0
		case group != "" && g.cfg.Groups[e.Symbol] == group:
			rho = g.cfg.GroupRho
		}
		if rho > max {
			max, other = rho, e.Symbol
		}
	}
	return max, other
}

// fitQty shrinks qty so qty*price fits inside budget. ok is false when
// not even one unit fits.
func fitQty(qty int, price, budget decimal.Decimal) (int, bool) {
	if budget.Sign() <= 0 {
		return 0, false
	}
	notional := price.Mul(decimal.NewFromInt(int64(qty)))
	if notional.LessThanOrEqual(budget) {
		return qty, true
	}
	fit := budget.Div(price).IntPart()
	if fit < 1 {
		return 0, false
	}
	return int(fit), true
}
