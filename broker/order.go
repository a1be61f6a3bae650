package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type OrderType string

const (
	Buy       OrderType = "buy"
	Sell      OrderType = "sell"
	BuyLimit  OrderType = "buylimit"
	SellLimit OrderType = "selllimit"
	BuyStop   OrderType = "buystop"
	SellStop  OrderType = "sellstop"
)

var OrderTypes = []OrderType{Buy, Sell, BuyLimit, SellLimit, BuyStop, SellStop}

func (t OrderType) Valid() bool {
	for _, ot := range OrderTypes {
		if t == ot {
			return true
		}
	}
	return false
}

// Pending is true for limit and stop orders.
func (t OrderType) Pending() bool {
	return t.Valid() && t != Buy && t != Sell
}

func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown order type %q", s)
	}
	return t, nil
}

// Order is one entry of the terminal's open orders map. Ticket comes from the
// map key, not from the order body.
type Order struct {
	Ticket     int64     `json:"-"`
	Symbol     string    `json:"symbol"`
	Type       OrderType `json:"type"`
	Lots       float64   `json:"lots"`
	OpenPrice  float64   `json:"open_price"`
	OpenTime   Text      `json:"open_time,omitempty"`
	StopLoss   float64   `json:"SL"`
	TakeProfit float64   `json:"TP"`
	PnL        float64   `json:"pnl,omitempty"`
	Swap       float64   `json:"swap,omitempty"`
	Commission float64   `json:"commission,omitempty"`
	Magic      int64     `json:"magic"`
	Comment    string    `json:"comment"`
	Expiration Text      `json:"expiration,omitempty"`
}

// Text decodes from either a JSON string or a JSON number. Terminal builds
// differ in how they write times, so both are accepted verbatim.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	*t = Text(n.String())
	return nil
}
