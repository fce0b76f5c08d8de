package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liorsolomon/ai-options-trading-bot/internal/broker"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

type stubBroker struct {
	fill decimal.Decimal
	err  error
}

func (b *stubBroker) Submit(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if b.err != nil {
		return broker.OrderResult{Status: broker.OrderRejected}, b.err
	}
	return broker.OrderResult{OrderID: "ord-1", FillPrice: b.fill, Status: broker.OrderFilled}, nil
}

type stubPrices struct {
	price decimal.Decimal
	err   error
}

func (s *stubPrices) Candles(context.Context, string, int) ([]market.Candle, error) {
	return nil, errors.New("unused")
}

func (s *stubPrices) LastPrice(context.Context, string) (decimal.Decimal, error) {
	return s.price, s.err
}

func (s *stubPrices) Close() error { return nil }

func testGate() *risk.Gate {
	return risk.NewGate(risk.Config{
		Toggles: risk.Toggles{},
	}, decimal.NewFromInt(100000))
}

func testTracker(b broker.Broker, prices market.Source) (*Tracker, *risk.Gate) {
	gate := testGate()
	tr := NewTracker(Config{
		StopLossFraction:   decimal.NewFromFloat(0.05),
		TakeProfitFraction: decimal.NewFromFloat(0.10),
		MaxHold:            72 * time.Hour,
		FillTimeout:        time.Second,
	}, b, prices, gate)
	return tr, gate
}

func approved(symbol string, action types.Action, qty int) types.ApprovedTrade {
	return types.ApprovedTrade{
		TradeIntent: types.TradeIntent{
			TraceID: "trace-1",
			Symbol:  symbol,
			Action:  action,
		},
		ApprovedQty: qty,
	}
}

func TestOpen_FillMovesPendingToOpen(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	var states []types.PositionState
	tr.SetTransitionHook(func(p types.Position) { states = append(states, p.State) })

	pos, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	assert.Equal(t, types.PositionOpen, pos.State)
	assert.Equal(t, []types.PositionState{types.PositionPending, types.PositionOpen}, states)
	assert.True(t, pos.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, pos.StopLoss.Equal(decimal.NewFromInt(95)))
	assert.True(t, pos.TakeProfit.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, 1, tr.OpenCount())
}

func TestOpen_BearishStopsInverted(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	pos, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyPut, 10))
	require.NoError(t, err)

	assert.True(t, pos.StopLoss.Equal(decimal.NewFromInt(105)), "bearish stop sits above entry")
	assert.True(t, pos.TakeProfit.Equal(decimal.NewFromInt(90)))
}

func TestOpen_BrokerErrorMovesToFailed(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, gate := testTracker(&stubBroker{err: errors.New("venue down")}, prices)

	// Seed provisional exposure under the intent's trace id, as the
	// risk gate does at approval.
	_, err := gate.Validate(types.TradeIntent{TraceID: "trace-1", Symbol: "NVDA", RequestedQty: 10}, decimal.NewFromInt(100))
	require.NoError(t, err)

	pos, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.Error(t, err)
	assert.Equal(t, types.PositionFailed, pos.State)
	assert.Zero(t, tr.OpenCount())
	assert.True(t, gate.Snapshot().OpenExposure.IsZero(), "failed fill releases provisional exposure")
}

func TestMonitor_StopLoss(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, gate := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	pos, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	prices.price = decimal.NewFromInt(94)
	require.NoError(t, tr.MonitorOnce(context.Background()))

	got := tr.Positions()
	require.Len(t, got, 1)
	assert.Equal(t, types.PositionClosed, got[0].State)
	assert.Equal(t, types.CloseStopLoss, got[0].CloseReason)
	assert.True(t, got[0].RealizedPnL.Equal(decimal.NewFromInt(-60)))
	assert.True(t, gate.Snapshot().DailyRealizedPnL.Equal(decimal.NewFromInt(-60)))
	_ = pos
}

func TestMonitor_StopLossWinsOverTakeProfitAndTimeStop(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	_, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	// Degenerate config where one price satisfies every trigger: the
	// stop must still be the recorded reason.
	tr.cfg.MaxHold = 0
	trk := tr.positions[tr.Positions()[0].ID]
	trk.pos.StopLoss = decimal.NewFromInt(100)
	trk.pos.TakeProfit = decimal.NewFromInt(100)
	trk.pos.MaxHoldUntil = time.Now().Add(-time.Hour)

	require.NoError(t, tr.MonitorOnce(context.Background()))
	got := tr.Positions()[0]
	assert.Equal(t, types.PositionClosed, got.State)
	assert.Equal(t, types.CloseStopLoss, got.CloseReason)
}

func TestMonitor_TakeProfitBearish(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	_, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyPut, 5))
	require.NoError(t, err)

	prices.price = decimal.NewFromInt(88)
	require.NoError(t, tr.MonitorOnce(context.Background()))

	got := tr.Positions()[0]
	assert.Equal(t, types.CloseTakeProfit, got.CloseReason)
	// Bearish position gains when the underlying falls.
	assert.True(t, got.RealizedPnL.Equal(decimal.NewFromInt(60)), "got %s", got.RealizedPnL)
}

func TestMonitor_TimeStop(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(101)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	_, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	base := time.Now().UTC()
	tr.nowFn = func() time.Time { return base.Add(73 * time.Hour) }
	require.NoError(t, tr.MonitorOnce(context.Background()))

	got := tr.Positions()[0]
	assert.Equal(t, types.PositionClosed, got.State)
	assert.Equal(t, types.CloseTimeStop, got.CloseReason)
}

func TestMonitor_ClosedIsTerminal(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	_, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	prices.price = decimal.NewFromInt(50)
	require.NoError(t, tr.MonitorOnce(context.Background()))
	closed := tr.Positions()[0]
	require.Equal(t, types.PositionClosed, closed.State)

	transitions := 0
	tr.SetTransitionHook(func(types.Position) { transitions++ })
	prices.price = decimal.NewFromInt(500)
	require.NoError(t, tr.MonitorOnce(context.Background()))

	after := tr.Positions()[0]
	assert.Equal(t, closed.ExitPrice, after.ExitPrice, "closed position must not be touched again")
	assert.Equal(t, closed.CloseReason, after.CloseReason)
	assert.Zero(t, transitions)
}

func TestMonitor_PriceErrorLeavesPositionOpen(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	_, err := tr.Open(context.Background(), approved("NVDA", types.ActionBuyCall, 10))
	require.NoError(t, err)

	prices.err = errors.New("feed down")
	require.NoError(t, tr.MonitorOnce(context.Background()))
	assert.Equal(t, types.PositionOpen, tr.Positions()[0].State)
}

func TestPositions_SortedByEntryTime(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(100)}
	tr, _ := testTracker(&stubBroker{fill: decimal.NewFromInt(100)}, prices)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	offset := 0
	tr.nowFn = func() time.Time {
		offset++
		return base.Add(time.Duration(offset) * time.Minute)
	}

	_, err := tr.Open(context.Background(), approved("AAPL", types.ActionBuyCall, 1))
	require.NoError(t, err)
	_, err = tr.Open(context.Background(), approved("MSFT", types.ActionBuyCall, 1))
	require.NoError(t, err)

	got := tr.Positions()
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "MSFT", got[1].Symbol)
}
