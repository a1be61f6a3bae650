// Package wire decodes and encodes the JSON files the terminal exchanges
// with the bridge.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// ErrMalformed wraps every decode failure. The terminal may be caught
// mid-write, so callers treat it as "skip this read", never as fatal.
var ErrMalformed = errors.New("malformed payload")

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
}

// OrdersSnapshot is the decoded orders file.
type OrdersSnapshot struct {
	Account broker.Account
	Orders  map[int64]broker.Order
}

type ordersFile struct {
	AccountInfo broker.Account             `json:"account_info"`
	Orders      map[string]json.RawMessage `json:"orders"`
}

// DecodeOrders parses {"account_info": {...}, "orders": {"<ticket>": {...}}}.
// A missing "orders" object means no open orders.
func DecodeOrders(raw []byte) (OrdersSnapshot, error) {
	var f ordersFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return OrdersSnapshot{}, malformed("orders", err)
	}
	snap := OrdersSnapshot{
		Account: f.AccountInfo,
		Orders:  make(map[int64]broker.Order, len(f.Orders)),
	}
	if snap.Account == nil {
		snap.Account = broker.Account{}
	}
	for key, body := range f.Orders {
		ticket, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return OrdersSnapshot{}, malformed("orders", fmt.Errorf("bad ticket %q", key))
		}
		var o broker.Order
		if err := json.Unmarshal(body, &o); err != nil {
			return OrdersSnapshot{}, malformed("order "+key, err)
		}
		o.Ticket = ticket
		snap.Orders[ticket] = o
	}
	return snap, nil
}

// DecodeMessages parses {"<millis>": {"type": ..., ...}}. Entries whose key
// is not a millisecond timestamp, and null entries, are skipped.
func DecodeMessages(raw []byte) (map[int64]broker.Message, error) {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed("messages", err)
	}
	if f == nil {
		return nil, malformed("messages", errors.New("not an object"))
	}

	out := make(map[int64]broker.Message, len(f))
	for key, body := range f {
		millis, err := strconv.ParseInt(key, 10, 64)
		if err != nil || isNull(body) {
			continue
		}
		var m broker.Message
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, malformed("message "+key, err)
		}
		m.Millis = millis
		out[millis] = m
	}
	return out, nil
}

// DecodeMarketData parses {"<symbol>": {"bid": ..., "ask": ...}}.
func DecodeMarketData(raw []byte) (map[string]market.Tick, error) {
	var f map[string]market.Tick
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed("market data", err)
	}
	if f == nil {
		return nil, malformed("market data", errors.New("not an object"))
	}
	for symbol, tk := range f {
		tk.Symbol = symbol
		f[symbol] = tk
	}
	return f, nil
}

// DecodeBarData parses {"<SYMBOL_TIMEFRAME>": {time, open, high, low, close,
// tick_volume}}. Keys that do not split into symbol and timeframe are dropped.
func DecodeBarData(raw []byte) (map[string]market.Bar, error) {
	var f map[string]market.Bar
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed("bar data", err)
	}
	if f == nil {
		return nil, malformed("bar data", errors.New("not an object"))
	}
	for key, b := range f {
		symbol, tf, ok := market.SplitKey(key)
		if !ok {
			delete(f, key)
			continue
		}
		b.Symbol, b.Timeframe = symbol, tf
		f[key] = b
	}
	return f, nil
}

// DecodeHistoricData parses {"<SYMBOL_TIMEFRAME>": <bar series>}. The series
// payload is passed through untouched.
func DecodeHistoricData(raw []byte) (map[string]json.RawMessage, error) {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed("historic data", err)
	}
	if f == nil {
		return nil, malformed("historic data", errors.New("not an object"))
	}
	return f, nil
}

// DecodeHistoricTrades checks that the file is a JSON object and returns its
// entries untouched.
func DecodeHistoricTrades(raw []byte) (map[string]json.RawMessage, error) {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed("historic trades", err)
	}
	if f == nil {
		return nil, malformed("historic trades", errors.New("not an object"))
	}
	return f, nil
}

func isNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
