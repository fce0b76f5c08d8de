package market

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source serves price data for one or more symbols.
type Source interface {
	// Candles returns up to limit recent candles, oldest first.
	Candles(ctx context.Context, symbol string, limit int) ([]Candle, error)

	// LastPrice returns the latest traded price for symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	Close() error
}
