// Package store holds the last raw text and last decoded state of every
// stream the terminal publishes. It has no logic beyond guarded access:
// each stream is written by its own polling loop and read by anyone.
package store

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// Stream names one file the terminal writes.
type Stream string

const (
	Orders         Stream = "orders"
	Messages       Stream = "messages"
	MarketData     Stream = "market_data"
	BarData        Stream = "bar_data"
	HistoricData   Stream = "historic_data"
	HistoricTrades Stream = "historic_trades"
)

// Streams lists every stream in polling order.
var Streams = []Stream{Orders, Messages, MarketData, BarData, HistoricData, HistoricTrades}

type Store struct {
	mu sync.RWMutex

	raw            map[Stream]string
	account        broker.Account
	orders         map[int64]broker.Order
	ticks          map[string]market.Tick
	bars           map[string]market.Bar
	historicData   map[string]json.RawMessage
	historicTrades map[string]json.RawMessage
	watermark      int64
}

func New() *Store {
	return &Store{
		raw:          make(map[Stream]string),
		account:      broker.Account{},
		orders:       make(map[int64]broker.Order),
		ticks:        make(map[string]market.Tick),
		bars:         make(map[string]market.Bar),
		historicData: make(map[string]json.RawMessage),
	}
}

// Raw returns the last text seen on a stream.
func (s *Store) Raw(stream Stream) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw[stream]
}

// SwapRaw records text as the latest content of stream and reports whether
// it differs from what was there. Blank text never counts as a change.
func (s *Store) SwapRaw(stream Stream, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw[stream] == text {
		return false
	}
	s.raw[stream] = text
	return true
}

// ResetRaw forgets the last text of a stream so identical content is seen
// as new next time.
func (s *Store) ResetRaw(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.raw, stream)
}

func (s *Store) Account() broker.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Clone()
}

// OpenOrders returns a copy of the current orders keyed by ticket.
func (s *Store) OpenOrders() map[int64]broker.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]broker.Order, len(s.orders))
	for k, v := range s.orders {
		out[k] = v
	}
	return out
}

// ReplaceOrders installs a new account and order set and returns the
// previous order set. The returned map is no longer referenced by the store.
func (s *Store) ReplaceOrders(account broker.Account, orders map[int64]broker.Order) map[int64]broker.Order {
	if account == nil {
		account = broker.Account{}
	}
	if orders == nil {
		orders = make(map[int64]broker.Order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.orders
	s.account = account
	s.orders = orders
	return prev
}

// Watermark is the timestamp of the newest message already delivered.
func (s *Store) Watermark() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark
}

// RaiseWatermark moves the watermark forward. It never moves it back.
func (s *Store) RaiseWatermark(millis int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if millis > s.watermark {
		s.watermark = millis
	}
}

func (s *Store) Ticks() map[string]market.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]market.Tick, len(s.ticks))
	for k, v := range s.ticks {
		out[k] = v
	}
	return out
}

// ReplaceTicks installs a new tick snapshot and returns the previous one.
func (s *Store) ReplaceTicks(ticks map[string]market.Tick) map[string]market.Tick {
	if ticks == nil {
		ticks = make(map[string]market.Tick)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ticks
	s.ticks = ticks
	return prev
}

func (s *Store) Bars() map[string]market.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]market.Bar, len(s.bars))
	for k, v := range s.bars {
		out[k] = v
	}
	return out
}

// ReplaceBars installs a new bar snapshot and returns the previous one.
func (s *Store) ReplaceBars(bars map[string]market.Bar) map[string]market.Bar {
	if bars == nil {
		bars = make(map[string]market.Bar)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.bars
	s.bars = bars
	return prev
}

// HistoricData returns every historic series received so far, keyed by
// SYMBOL_TIMEFRAME. A later response for the same key replaces the earlier.
func (s *Store) HistoricData() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.historicData))
	for k, v := range s.historicData {
		out[k] = v
	}
	return out
}

func (s *Store) MergeHistoricData(data map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range data {
		s.historicData[k] = v
	}
}

// HistoricTrades returns the last historic trades response, or nil.
func (s *Store) HistoricTrades() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.historicTrades == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(s.historicTrades))
	for k, v := range s.historicTrades {
		out[k] = v
	}
	return out
}

func (s *Store) SetHistoricTrades(trades map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historicTrades = trades
}
