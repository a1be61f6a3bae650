package broker

import (
	"context"
	"time"
)

// Broker is the trading surface of the terminal bridge. Every order method
// only guarantees that the command reached a command slot; the outcome shows
// up later in OpenOrders and in terminal messages.
type Broker interface {
	Account() Account
	OpenOrders() map[int64]Order

	OpenOrder(ctx context.Context, req OrderRequest) error
	ModifyOrder(ctx context.Context, req ModifyRequest) error
	CloseOrder(ctx context.Context, ticket int64, lots float64) error
	CloseAllOrders(ctx context.Context) error
	CloseOrdersBySymbol(ctx context.Context, symbol string) error
	CloseOrdersByMagic(ctx context.Context, magic int64) error
}

// OrderRequest describes a new market or pending order. Zero Price, StopLoss,
// TakeProfit or Expiration mean "not set".
type OrderRequest struct {
	Symbol     string
	Type       OrderType
	Lots       float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Magic      int64
	Comment    string
	Expiration time.Time
}

// ModifyRequest changes an open order in place; the ticket stays the same.
type ModifyRequest struct {
	Ticket     int64
	Lots       float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Expiration time.Time
}

// UnixOrZero renders t as unix seconds, with the zero time as 0.
func UnixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
