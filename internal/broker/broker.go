// Package broker defines the execution contract and a paper
// implementation that fills at the simulated market price.
package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

type OrderType string

const OrderMarket OrderType = "MARKET"

type OrderStatus string

const (
	OrderFilled   OrderStatus = "FILLED"
	OrderRejected OrderStatus = "REJECTED"
)

type OrderRequest struct {
	Symbol    string       `json:"symbol"`
	Action    types.Action `json:"action"`
	Quantity  int          `json:"quantity"`
	OrderType OrderType    `json:"order_type"`
}

type OrderResult struct {
	OrderID   string          `json:"order_id"`
	FillPrice decimal.Decimal `json:"fill_price"`
	Status    OrderStatus     `json:"status"`
}

// Broker executes orders. Submit must respect ctx deadlines; a fill
// that does not confirm in time is the caller's cue to fail the
// position rather than wait.
type Broker interface {
	Submit(ctx context.Context, req OrderRequest) (OrderResult, error)
}
