// Package position owns the position lifecycle state machine:
// PENDING to OPEN on confirmed fill, PENDING to FAILED on execution
// failure, OPEN to CLOSED on the first exit trigger. Terminal states
// accept no further transitions.
package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/liorsolomon/ai-options-trading-bot/internal/broker"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

type Config struct {
	StopLossFraction   decimal.Decimal
	TakeProfitFraction decimal.Decimal
	MaxHold            time.Duration
	FillTimeout        time.Duration
}

// tracked wraps one position with its own lock so transitions for
// distinct positions never contend, while a single position sees
// at-most-one transition in flight.
type tracked struct {
	mu  sync.Mutex
	pos types.Position
}

type Tracker struct {
	cfg    Config
	broker broker.Broker
	prices market.Source
	gate   *risk.Gate
	nowFn  func() time.Time

	// onTransition, when set, receives a copy of the position after
	// every state change. Used for the audit trail.
	onTransition func(types.Position)

	mu        sync.Mutex
	positions map[string]*tracked
}

func NewTracker(cfg Config, b broker.Broker, prices market.Source, gate *risk.Gate) *Tracker {
	if cfg.FillTimeout == 0 {
		cfg.FillTimeout = 10 * time.Second
	}
	return &Tracker{
		cfg:       cfg,
		broker:    b,
		prices:    prices,
		gate:      gate,
		nowFn:     time.Now,
		positions: make(map[string]*tracked),
	}
}

func (t *Tracker) SetTransitionHook(fn func(types.Position)) { t.onTransition = fn }

// Open executes an approved trade. The position starts PENDING, moves
// to OPEN only on a confirmed fill, and lands in FAILED on any
// execution error or timeout. FAILED positions are never retried here.
func (t *Tracker) Open(ctx context.Context, trade types.ApprovedTrade) (types.Position, error) {
	now := t.nowFn().UTC()
	tr := &tracked{pos: types.Position{
		ID:        uuid.NewString(),
		Symbol:    trade.Symbol,
		Action:    trade.Action,
		Quantity:  trade.ApprovedQty,
		EntryTime: now,
		State:     types.PositionPending,
	}}
	t.mu.Lock()
	t.positions[tr.pos.ID] = tr
	t.mu.Unlock()
	t.notify(tr.pos)

	fillCtx, cancel := context.WithTimeout(ctx, t.cfg.FillTimeout)
	defer cancel()
	res, err := t.broker.Submit(fillCtx, broker.OrderRequest{
		Symbol:    trade.Symbol,
		Action:    trade.Action,
		Quantity:  trade.ApprovedQty,
		OrderType: broker.OrderMarket,
	})

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if err != nil || res.Status != broker.OrderFilled {
		tr.pos.State = types.PositionFailed
		t.gate.Release(trade.TraceID, decimal.Zero)
		t.notify(tr.pos)
		if err == nil {
			err = fmt.Errorf("order %s not filled: %s", res.OrderID, res.Status)
		}
		logger.Warnf("position %s failed to fill: %v", tr.pos.ID, err)
		return tr.pos, err
	}

	entry := res.FillPrice
	tr.pos.State = types.PositionOpen
	tr.pos.EntryPrice = entry
	tr.pos.EntryTime = t.nowFn().UTC()
	tr.pos.MaxHoldUntil = tr.pos.EntryTime.Add(t.cfg.MaxHold)
	if tr.pos.Bullish() {
		tr.pos.StopLoss = entry.Mul(decimal.NewFromInt(1).Sub(t.cfg.StopLossFraction))
		tr.pos.TakeProfit = entry.Mul(decimal.NewFromInt(1).Add(t.cfg.TakeProfitFraction))
	} else {
		tr.pos.StopLoss = entry.Mul(decimal.NewFromInt(1).Add(t.cfg.StopLossFraction))
		tr.pos.TakeProfit = entry.Mul(decimal.NewFromInt(1).Sub(t.cfg.TakeProfitFraction))
	}
	t.gate.RecordFill(tr.pos.ID, tr.pos.Symbol, tr.pos.Quantity, entry, trade.TraceID)
	t.notify(tr.pos)
	logger.Infof("position %s open: %s %s x%d @ %s stop=%s take=%s hold_until=%s",
		tr.pos.ID, tr.pos.Action, tr.pos.Symbol, tr.pos.Quantity, entry,
		tr.pos.StopLoss, tr.pos.TakeProfit, tr.pos.MaxHoldUntil.Format(time.RFC3339))
	return tr.pos, nil
}

// MonitorOnce evaluates exit triggers for every open position. Distinct
// positions are checked concurrently; each holds its own lock through
// its transition.
func (t *Tracker) MonitorOnce(ctx context.Context) error {
	t.mu.Lock()
	open := make([]*tracked, 0, len(t.positions))
	for _, tr := range t.positions {
		open = append(open, tr)
	}
	t.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, tr := range open {
		tr := tr
		g.Go(func() error {
			t.check(gctx, tr)
			return nil
		})
	}
	return g.Wait()
}

// check applies the exit triggers in fixed order. Stop-loss is always
// consulted first so simultaneous triggers resolve conservatively.
func (t *Tracker) check(ctx context.Context, tr *tracked) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.pos.State != types.PositionOpen {
		return
	}
	price, err := t.prices.LastPrice(ctx, tr.pos.Symbol)
	if err != nil {
		logger.Warnf("monitor: price %s: %v", tr.pos.Symbol, err)
		return
	}
	now := t.nowFn().UTC()

	var reason types.CloseReason
	switch {
	case t.stopHit(tr.pos, price):
		reason = types.CloseStopLoss
	case t.takeHit(tr.pos, price):
		reason = types.CloseTakeProfit
	case !now.Before(tr.pos.MaxHoldUntil):
		reason = types.CloseTimeStop
	default:
		return
	}
	t.close(tr, price, now, reason)
}

func (t *Tracker) stopHit(p types.Position, price decimal.Decimal) bool {
	if p.Bullish() {
		return price.LessThanOrEqual(p.StopLoss)
	}
	return price.GreaterThanOrEqual(p.StopLoss)
}

func (t *Tracker) takeHit(p types.Position, price decimal.Decimal) bool {
	if p.Bullish() {
		return price.GreaterThanOrEqual(p.TakeProfit)
	}
	return price.LessThanOrEqual(p.TakeProfit)
}

// close finalizes an OPEN position. Callers hold the position lock.
func (t *Tracker) close(tr *tracked, price decimal.Decimal, now time.Time, reason types.CloseReason) {
	qty := decimal.NewFromInt(int64(tr.pos.Quantity))
	move := price.Sub(tr.pos.EntryPrice)
	if !tr.pos.Bullish() {
		move = move.Neg()
	}
	tr.pos.State = types.PositionClosed
	tr.pos.ExitPrice = price
	tr.pos.ExitTime = now
	tr.pos.CloseReason = reason
	tr.pos.RealizedPnL = move.Mul(qty)

	t.gate.Release(tr.pos.ID, tr.pos.RealizedPnL)
	t.notify(tr.pos)
	logger.Infof("position %s closed: %s @ %s pnl=%s", tr.pos.ID, reason, price, tr.pos.RealizedPnL)
}

// Positions returns a stable-ordered copy of all tracked positions.
func (t *Tracker) Positions() []types.Position {
	t.mu.Lock()
	tracked := make([]*tracked, 0, len(t.positions))
	for _, tr := range t.positions {
		tracked = append(tracked, tr)
	}
	t.mu.Unlock()

	out := make([]types.Position, 0, len(tracked))
	for _, tr := range tracked {
		tr.mu.Lock()
		out = append(out, tr.pos)
		tr.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out
}

// OpenCount reports live positions for the cycle summary.
func (t *Tracker) OpenCount() int {
	n := 0
	for _, p := range t.Positions() {
		if p.State == types.PositionOpen {
			n++
		}
	}
	return n
}

func (t *Tracker) notify(p types.Position) {
	if t.onTransition != nil {
		t.onTransition(p)
	}
}
