package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

const (
	rsiPeriod   = 14
	macdFast    = 12
	macdSlow    = 26
	macdSignal  = 9
	smaFastSpan = 20
	smaSlowSpan = 50
)

// Snapshot is the indicator view handed to the evaluator as market
// context and consumed by the technical scanner.
type Snapshot struct {
	Symbol    string  `json:"symbol"`
	LastClose float64 `json:"last_close"`
	RSI       float64 `json:"rsi"`
	MACD      float64 `json:"macd"`
	MACDSig   float64 `json:"macd_signal"`
	MACDHist  float64 `json:"macd_hist"`
	SMAFast   float64 `json:"sma_fast"`
	SMASlow   float64 `json:"sma_slow"`
	Trend     string  `json:"trend"`
}

// ComputeSnapshot derives the indicator set from a candle series. The
// series must be oldest-first and long enough for the slow SMA.
func ComputeSnapshot(symbol string, candles []Candle) (Snapshot, error) {
	need := smaSlowSpan + 1
	if macdSlow+macdSignal > need {
		need = macdSlow + macdSignal
	}
	if len(candles) < need {
		return Snapshot{}, fmt.Errorf("indicators: %s needs %d candles, got %d", symbol, need, len(candles))
	}
	cl := closes(candles)

	rsi := talib.Rsi(cl, rsiPeriod)
	macd, sig, hist := talib.Macd(cl, macdFast, macdSlow, macdSignal)
	fast := talib.Sma(cl, smaFastSpan)
	slow := talib.Sma(cl, smaSlowSpan)

	snap := Snapshot{
		Symbol:    symbol,
		LastClose: cl[len(cl)-1],
		RSI:       last(rsi),
		MACD:      last(macd),
		MACDSig:   last(sig),
		MACDHist:  last(hist),
		SMAFast:   last(fast),
		SMASlow:   last(slow),
	}
	switch {
	case snap.SMAFast > snap.SMASlow:
		snap.Trend = "up"
	case snap.SMAFast < snap.SMASlow:
		snap.Trend = "down"
	default:
		snap.Trend = "flat"
	}
	return snap, nil
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
