// Package risk validates trade intents against portfolio limits. All
// checks run against an explicit versioned snapshot; accepted trades
// mutate the snapshot atomically so later intents in the same cycle see
// the updated exposure.
package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenExposureEntry is one open position's footprint in the snapshot.
type OpenExposureEntry struct {
	PositionID string
	Symbol     string
	Notional   decimal.Decimal
}

// Snapshot is the portfolio state the gate validates against. It is
// owned by the gate; callers get copies.
type Snapshot struct {
	Version          int64
	Day              string
	Equity           decimal.Decimal
	OpenExposure     decimal.Decimal
	DailyRealizedPnL decimal.Decimal
	Open             []OpenExposureEntry
	DailyLossLatched bool
}

func newSnapshot(equity decimal.Decimal, now time.Time) Snapshot {
	return Snapshot{
		Version: 1,
		Day:     tradingDay(now),
		Equity:  equity,
	}
}

func tradingDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// clone returns a deep copy safe to hand outside the gate's lock.
func (s Snapshot) clone() Snapshot {
	cp := s
	cp.Open = append([]OpenExposureEntry(nil), s.Open...)
	return cp
}
