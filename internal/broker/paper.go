package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
)

// Paper simulates execution against a market source. Orders fill at
// the source's last price after a fixed latency, subject to the ctx
// deadline like a real venue.
type Paper struct {
	prices  market.Source
	latency time.Duration
}

func NewPaper(prices market.Source, latency time.Duration) *Paper {
	return &Paper{prices: prices, latency: latency}
}

func (p *Paper) Submit(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if req.Quantity <= 0 {
		return OrderResult{Status: OrderRejected}, fmt.Errorf("paper: quantity must be positive")
	}
	if !req.Action.Tradeable() {
		return OrderResult{Status: OrderRejected}, fmt.Errorf("paper: action %s is not executable", req.Action)
	}
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return OrderResult{Status: OrderRejected}, ctx.Err()
		case <-time.After(p.latency):
		}
	}
	price, err := p.prices.LastPrice(ctx, req.Symbol)
	if err != nil {
		return OrderResult{Status: OrderRejected}, fmt.Errorf("paper: price %s: %w", req.Symbol, err)
	}
	res := OrderResult{
		OrderID:   uuid.NewString(),
		FillPrice: price,
		Status:    OrderFilled,
	}
	logger.Infof("paper fill: %s %s x%d @ %s (order %s)",
		req.Action, req.Symbol, req.Quantity, price, res.OrderID)
	return res, nil
}
