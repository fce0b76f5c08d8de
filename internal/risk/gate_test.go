package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

func testConfig() Config {
	return Config{
		ExposureCeilingFraction: decimal.NewFromFloat(0.5),
		PerTradeCapFraction:     decimal.NewFromFloat(0.02),
		DailyLossLimitFraction:  decimal.NewFromFloat(0.03),
		CorrelationLimit:        0.75,
		GroupRho:                0.8,
		Groups:                  map[string]string{"NVDA": "semis", "AMD": "semis"},
		Toggles:                 Toggles{Exposure: true, PerTradeCap: true, DailyLoss: true, Correlation: true},
	}
}

func intent(symbol string, qty int) types.TradeIntent {
	return types.TradeIntent{
		TraceID:      "trace-" + symbol,
		Symbol:       symbol,
		Action:       types.ActionBuyCall,
		RequestedQty: qty,
		Confidence:   0.8,
	}
}

func TestGate_ApprovedQtyNeverExceedsRequested(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	approved, err := g.Validate(intent("AAPL", 5), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.LessOrEqual(t, approved.ApprovedQty, 5)
	assert.Equal(t, 5, approved.ApprovedQty)
	assert.Equal(t, []string{CheckExposure, CheckPerTradeCap, CheckDailyLoss, CheckCorrelation}, approved.ChecksPassed)
}

func TestGate_PerTradeCapResizes(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	// Cap is 2000; 50 units at 100 would be 5000.
	approved, err := g.Validate(intent("AAPL", 50), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 20, approved.ApprovedQty)
}

func TestGate_PerTradeCapRejectsWhenNoUnitFits(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	_, err := g.Validate(intent("AAPL", 1), decimal.NewFromInt(3000))
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, CheckPerTradeCap, rej.Check)
}

func TestGate_ExposureHeadroom(t *testing.T) {
	cfg := testConfig()
	cfg.PerTradeCapFraction = decimal.NewFromFloat(0.5) // park the cap out of the way
	g := NewGate(cfg, decimal.NewFromInt(10000))

	// Ceiling 5000. First trade takes 4000 of it.
	first, err := g.Validate(intent("AAPL", 40), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 40, first.ApprovedQty)

	// 1000 headroom left: a 30-unit ask is resized to 10.
	second, err := g.Validate(intent("MSFT", 30), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 10, second.ApprovedQty)

	// No headroom at all now.
	_, err = g.Validate(intent("TSLA", 1), decimal.NewFromInt(100))
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, CheckExposure, rej.Check)
}

func TestGate_DailyLossLatch(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }
	g.snap.Day = tradingDay(now)

	// Limit is 3000. Book a 3500 loss.
	approved, err := g.Validate(intent("AAPL", 5), decimal.NewFromInt(100))
	require.NoError(t, err)
	g.Release(approved.TraceID, decimal.NewFromInt(-3500))

	_, err = g.Validate(intent("MSFT", 5), decimal.NewFromInt(100))
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, CheckDailyLoss, rej.Check)
	assert.True(t, g.Snapshot().DailyLossLatched)

	// Latched for the rest of the day even for tiny asks.
	_, err = g.Validate(intent("TSLA", 1), decimal.NewFromInt(1))
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, CheckDailyLoss, rej.Check)

	// A new trading day clears the latch.
	now = now.Add(24 * time.Hour)
	_, err = g.Validate(intent("TSLA", 1), decimal.NewFromInt(100))
	assert.NoError(t, err)
	assert.False(t, g.Snapshot().DailyLossLatched)
}

func TestGate_CorrelationReject(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	_, err := g.Validate(intent("NVDA", 2), decimal.NewFromInt(100))
	require.NoError(t, err)

	t.Run("same symbol", func(t *testing.T) {
		_, err := g.Validate(intent("NVDA", 2), decimal.NewFromInt(100))
		var rej *Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, CheckCorrelation, rej.Check)
	})

	t.Run("same group", func(t *testing.T) {
		_, err := g.Validate(intent("AMD", 2), decimal.NewFromInt(100))
		var rej *Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, CheckCorrelation, rej.Check)
	})

	t.Run("unrelated symbol passes", func(t *testing.T) {
		_, err := g.Validate(intent("AAPL", 2), decimal.NewFromInt(100))
		assert.NoError(t, err)
	})
}

func TestGate_ApplyAndReleaseExposure(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	approved, err := g.Validate(intent("AAPL", 10), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, g.Snapshot().OpenExposure.Equal(decimal.NewFromInt(1000)))

	// Fill at a worse price re-keys the entry and adjusts the notional.
	g.RecordFill("pos-1", "AAPL", 10, decimal.NewFromInt(110), approved.TraceID)
	snap := g.Snapshot()
	assert.True(t, snap.OpenExposure.Equal(decimal.NewFromInt(1100)))
	require.Len(t, snap.Open, 1)
	assert.Equal(t, "pos-1", snap.Open[0].PositionID)

	g.Release("pos-1", decimal.NewFromInt(250))
	snap = g.Snapshot()
	assert.True(t, snap.OpenExposure.IsZero())
	assert.Empty(t, snap.Open)
	assert.True(t, snap.Equity.Equal(decimal.NewFromInt(100250)))
	assert.True(t, snap.DailyRealizedPnL.Equal(decimal.NewFromInt(250)))
}

func TestGate_InvalidInputs(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))

	_, err := g.Validate(intent("AAPL", 0), decimal.NewFromInt(100))
	assert.Error(t, err)

	_, err = g.Validate(intent("AAPL", 1), decimal.Zero)
	assert.Error(t, err)
}

func TestGate_SnapshotIsACopy(t *testing.T) {
	g := NewGate(testConfig(), decimal.NewFromInt(100000))
	_, err := g.Validate(intent("AAPL", 1), decimal.NewFromInt(100))
	require.NoError(t, err)

	snap := g.Snapshot()
	snap.Open[0].Symbol = "XXXX"
	assert.Equal(t, "AAPL", g.Snapshot().Open[0].Symbol)
}
