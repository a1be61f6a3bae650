package wire

import (
	"encoding/json"
	"strconv"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// The encoders produce files in the terminal's own format. The simulator
// and the tests write them; the bridge itself only reads.

func EncodeOrders(snap OrdersSnapshot) ([]byte, error) {
	f := struct {
		AccountInfo broker.Account          `json:"account_info"`
		Orders      map[string]broker.Order `json:"orders"`
	}{
		AccountInfo: snap.Account,
		Orders:      make(map[string]broker.Order, len(snap.Orders)),
	}
	if f.AccountInfo == nil {
		f.AccountInfo = broker.Account{}
	}
	for ticket, o := range snap.Orders {
		f.Orders[strconv.FormatInt(ticket, 10)] = o
	}
	return json.Marshal(f)
}

func EncodeMessages(msgs map[int64]broker.Message) ([]byte, error) {
	f := make(map[string]broker.Message, len(msgs))
	for millis, m := range msgs {
		f[strconv.FormatInt(millis, 10)] = m
	}
	return json.Marshal(f)
}

func EncodeMarketData(ticks map[string]market.Tick) ([]byte, error) {
	type quote struct {
		Bid float64 `json:"bid"`
		Ask float64 `json:"ask"`
	}
	f := make(map[string]quote, len(ticks))
	for symbol, tk := range ticks {
		f[symbol] = quote{Bid: tk.Bid, Ask: tk.Ask}
	}
	return json.Marshal(f)
}

func EncodeBarData(bars map[string]market.Bar) ([]byte, error) {
	type ohlc struct {
		Time       string  `json:"time"`
		Open       float64 `json:"open"`
		High       float64 `json:"high"`
		Low        float64 `json:"low"`
		Close      float64 `json:"close"`
		TickVolume int64   `json:"tick_volume"`
	}
	f := make(map[string]ohlc, len(bars))
	for key, b := range bars {
		f[key] = ohlc{b.Time, b.Open, b.High, b.Low, b.Close, b.TickVolume}
	}
	return json.Marshal(f)
}
