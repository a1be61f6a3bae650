package sim

import (
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
)

// position is an open or pending order held by the terminal.
type position struct {
	broker.Order
	openedAt  time.Time
	expiresAt time.Time
}

// side is +1 for buy orders and -1 for sell orders, pending or not.
func side(t broker.OrderType) float64 {
	switch t {
	case broker.Sell, broker.SellLimit, broker.SellStop:
		return -1
	}
	return 1
}

// mark is the price a position would close at: bid for longs, ask for shorts.
func (p *position) mark(bid, ask float64) float64 {
	if side(p.Type) > 0 {
		return bid
	}
	return ask
}

func (p *position) units(contractSize float64) float64 {
	return side(p.Type) * p.Lots * contractSize
}

// unrealizedPL is in the symbol's quote currency.
func (p *position) unrealizedPL(mark, contractSize float64) float64 {
	return p.units(contractSize) * (mark - p.OpenPrice)
}

func (p *position) hitStopLoss(mark float64) bool {
	if p.StopLoss == 0 {
		return false
	}
	if side(p.Type) > 0 {
		return mark <= p.StopLoss
	}
	return mark >= p.StopLoss
}

func (p *position) hitTakeProfit(mark float64) bool {
	if p.TakeProfit == 0 {
		return false
	}
	if side(p.Type) > 0 {
		return mark >= p.TakeProfit
	}
	return mark <= p.TakeProfit
}

// triggered reports whether a pending order fills at this quote. Buy orders
// fill on the ask, sell orders on the bid.
func (p *position) triggered(bid, ask float64) bool {
	switch p.Type {
	case broker.BuyLimit:
		return ask <= p.OpenPrice
	case broker.BuyStop:
		return ask >= p.OpenPrice
	case broker.SellLimit:
		return bid >= p.OpenPrice
	case broker.SellStop:
		return bid <= p.OpenPrice
	}
	return false
}

// filledType is the market type a pending order becomes once it fills.
func filledType(t broker.OrderType) broker.OrderType {
	if side(t) > 0 {
		return broker.Buy
	}
	return broker.Sell
}

// closedTrade is one entry of the historic trades file.
type closedTrade struct {
	Ticket     int64            `json:"-"`
	Magic      int64            `json:"magic"`
	Symbol     string           `json:"symbol"`
	Lots       float64          `json:"lots"`
	Type       broker.OrderType `json:"type"`
	OpenTime   string           `json:"open_time"`
	CloseTime  string           `json:"close_time"`
	OpenPrice  float64          `json:"open_price"`
	ClosePrice float64          `json:"close_price"`
	StopLoss   float64          `json:"SL"`
	TakeProfit float64          `json:"TP"`
	PnL        float64          `json:"pnl"`
	Commission float64          `json:"commission"`
	Swap       float64          `json:"swap"`
	Comment    string           `json:"comment"`

	closedAt time.Time
}
