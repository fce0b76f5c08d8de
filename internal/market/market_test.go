package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 2, 10, 17, 42, 0, time.UTC)
	return func() time.Time { return at }
}

func TestSimSource_Deterministic(t *testing.T) {
	a := NewSimSource()
	a.nowFn = fixedClock()
	b := NewSimSource()
	b.nowFn = fixedClock()

	ca, err := a.Candles(context.Background(), "NVDA", 60)
	require.NoError(t, err)
	cb, err := b.Candles(context.Background(), "NVDA", 60)
	require.NoError(t, err)
	assert.Equal(t, ca, cb, "same symbol and clock must replay the same series")

	pa, err := a.LastPrice(context.Background(), "NVDA")
	require.NoError(t, err)
	pb, err := b.LastPrice(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.True(t, pa.Equal(pb))
	assert.True(t, pa.GreaterThan(decimal.Zero))

	// Different symbols diverge.
	other, err := a.LastPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, pa.Equal(other))
}

func TestSimSource_CandleShape(t *testing.T) {
	s := NewSimSource()
	s.nowFn = fixedClock()

	candles, err := s.Candles(context.Background(), "TSLA", 10)
	require.NoError(t, err)
	require.Len(t, candles, 10)

	for i, c := range candles {
		assert.GreaterOrEqual(t, c.High, c.Open, "candle %d", i)
		assert.GreaterOrEqual(t, c.High, c.Close, "candle %d", i)
		assert.LessOrEqual(t, c.Low, c.Open, "candle %d", i)
		assert.LessOrEqual(t, c.Low, c.Close, "candle %d", i)
		assert.Less(t, c.OpenTime, c.CloseTime, "candle %d", i)
		if i > 0 {
			assert.Greater(t, c.OpenTime, candles[i-1].OpenTime, "series is oldest-first")
		}
	}

	_, err = s.Candles(context.Background(), "TSLA", 0)
	assert.Error(t, err)
}

func TestComputeSnapshot(t *testing.T) {
	s := NewSimSource()
	s.nowFn = fixedClock()

	candles, err := s.Candles(context.Background(), "NVDA", 120)
	require.NoError(t, err)

	snap, err := ComputeSnapshot("NVDA", candles)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", snap.Symbol)
	assert.Equal(t, candles[len(candles)-1].Close, snap.LastClose)
	assert.GreaterOrEqual(t, snap.RSI, 0.0)
	assert.LessOrEqual(t, snap.RSI, 100.0)
	assert.NotZero(t, snap.SMAFast)
	assert.NotZero(t, snap.SMASlow)
	assert.Contains(t, []string{"up", "down", "flat"}, snap.Trend)
}

func TestComputeSnapshot_TooFewCandles(t *testing.T) {
	s := NewSimSource()
	s.nowFn = fixedClock()

	candles, err := s.Candles(context.Background(), "NVDA", 30)
	require.NoError(t, err)
	_, err = ComputeSnapshot("NVDA", candles)
	assert.Error(t, err)
}

func TestTechnicalScanner_SignalDirection(t *testing.T) {
	scanner := NewTechnicalScanner(NewSimSource(), nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("oversold means call", func(t *testing.T) {
		sig, ok := scanner.fromSnapshot(Snapshot{Symbol: "NVDA", RSI: 25, Trend: "down", LastClose: 100}, now)
		require.True(t, ok)
		assert.Equal(t, types.ActionBuyCall, sig.Action)
		assert.InDelta(t, 0.6, sig.Confidence, 1e-9)
		assert.Contains(t, sig.Rationale, "RSI(14)=25.0")
	})

	t.Run("deep oversold bumps confidence", func(t *testing.T) {
		sig, ok := scanner.fromSnapshot(Snapshot{Symbol: "NVDA", RSI: 15}, now)
		require.True(t, ok)
		assert.InDelta(t, 0.7, sig.Confidence, 1e-9)
	})

	t.Run("overbought means put", func(t *testing.T) {
		sig, ok := scanner.fromSnapshot(Snapshot{Symbol: "NVDA", RSI: 75}, now)
		require.True(t, ok)
		assert.Equal(t, types.ActionBuyPut, sig.Action)
	})

	t.Run("neutral band is silent", func(t *testing.T) {
		_, ok := scanner.fromSnapshot(Snapshot{Symbol: "NVDA", RSI: 50}, now)
		assert.False(t, ok)
	})
}

func TestTechnicalScanner_Collect(t *testing.T) {
	src := NewSimSource()
	src.nowFn = fixedClock()
	scanner := NewTechnicalScanner(src, []string{"NVDA", "AAPL"})
	scanner.nowFn = fixedClock()

	signals, stats, err := scanner.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(signals), stats.Items)
	for _, sig := range signals {
		assert.Equal(t, "technical", sig.Source)
		assert.True(t, sig.Action.Tradeable())
	}
}
