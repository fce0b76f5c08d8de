package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SimSource generates a deterministic price walk per symbol. The same
// symbol always yields the same series for a fixed clock, which keeps
// paper runs and tests reproducible without a data feed.
type SimSource struct {
	nowFn func() time.Time

	mu    sync.Mutex
	bases map[string]float64
}

func NewSimSource() *SimSource {
	return &SimSource{nowFn: time.Now, bases: make(map[string]float64)}
}

// basePrice derives a stable starting price in [40, 450) from the symbol.
func (s *SimSource) basePrice(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.bases[symbol]; ok {
		return p
	}
	h := fnv.New64a()
	h.Write([]byte(symbol))
	p := 40 + float64(h.Sum64()%41000)/100
	s.bases[symbol] = p
	return p
}

func (s *SimSource) Candles(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("sim: limit must be positive, got %d", limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := s.basePrice(symbol)
	end := s.nowFn().UTC().Truncate(time.Hour)

	out := make([]Candle, 0, limit)
	for i := limit; i > 0; i-- {
		open := walk(base, end.Add(-time.Duration(i)*time.Hour).Unix())
		close := walk(base, end.Add(-time.Duration(i-1)*time.Hour).Unix())
		hi, lo := open, close
		if close > hi {
			hi = close
		}
		if open < lo {
			lo = open
		}
		openAt := end.Add(-time.Duration(i) * time.Hour)
		out = append(out, Candle{
			OpenTime:  openAt.UnixMilli(),
			CloseTime: openAt.Add(time.Hour).UnixMilli() - 1,
			Open:      round2(open),
			High:      round2(hi * 1.002),
			Low:       round2(lo * 0.998),
			Close:     round2(close),
			Volume:    round2(1e5 + 5e4*math.Abs(math.Sin(float64(openAt.Unix())/7919))),
		})
	}
	return out, nil
}

func (s *SimSource) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	base := s.basePrice(symbol)
	p := walk(base, s.nowFn().UTC().Truncate(time.Minute).Unix())
	return decimal.NewFromFloat(round2(p)), nil
}

func (s *SimSource) Close() error { return nil }

// walk maps a base price and a timestamp to a smooth bounded price.
// Two slow sinusoids keep moves within roughly +-6% of base.
func walk(base float64, unix int64) float64 {
	t := float64(unix)
	drift := 0.04*math.Sin(t/86400) + 0.02*math.Sin(t/21600+1.3)
	return base * (1 + drift)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
