package dwx

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// EventSink receives everything the polling loops detect. Each stream's
// events arrive in order from that stream's loop; there is no ordering
// across streams, and calls for different streams may be concurrent.
type EventSink interface {
	OnTick(symbol string, bid, ask float64)
	OnBarData(symbol, timeframe, time string, open, high, low, close float64, volume int64)
	OnHistoricData(symbol, timeframe string, data json.RawMessage)
	OnHistoricTrades()
	OnMessage(m broker.Message)
	// OnOrderEvent fires when the set of open tickets changes. Changes to
	// fields of an existing order do not fire it.
	OnOrderEvent()
}

// Kind tags an Event.
type Kind string

const (
	KindTick           Kind = "tick"
	KindBar            Kind = "bar_data"
	KindHistoricData   Kind = "historic_data"
	KindHistoricTrades Kind = "historic_trades"
	KindMessage        Kind = "message"
	KindOrder          Kind = "order_event"
)

// Event is one sink call as a value, for code that would rather consume a
// channel than implement callbacks.
type Event struct {
	Kind      Kind            `json:"kind"`
	At        time.Time       `json:"at"`
	Tick      *market.Tick    `json:"tick,omitempty"`
	Bar       *market.Bar     `json:"bar,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Timeframe string          `json:"timeframe,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   *broker.Message `json:"message,omitempty"`
}

func TickEvent(symbol string, bid, ask float64) Event {
	return Event{Kind: KindTick, At: time.Now(), Tick: &market.Tick{Symbol: symbol, Bid: bid, Ask: ask}}
}

func BarEvent(symbol, timeframe, t string, open, high, low, close float64, volume int64) Event {
	return Event{Kind: KindBar, At: time.Now(), Bar: &market.Bar{
		Symbol: symbol, Timeframe: timeframe, Time: t,
		Open: open, High: high, Low: low, Close: close, TickVolume: volume,
	}}
}

func HistoricDataEvent(symbol, timeframe string, data json.RawMessage) Event {
	return Event{Kind: KindHistoricData, At: time.Now(), Symbol: symbol, Timeframe: timeframe, Data: data}
}

func HistoricTradesEvent() Event {
	return Event{Kind: KindHistoricTrades, At: time.Now()}
}

func MessageEvent(m broker.Message) Event {
	return Event{Kind: KindMessage, At: time.Now(), Message: &m}
}

func OrderEvent() Event {
	return Event{Kind: KindOrder, At: time.Now()}
}

// Deliver replays e as the matching sink call.
func (e Event) Deliver(s EventSink) {
	switch e.Kind {
	case KindTick:
		if e.Tick != nil {
			s.OnTick(e.Tick.Symbol, e.Tick.Bid, e.Tick.Ask)
		}
	case KindBar:
		if b := e.Bar; b != nil {
			s.OnBarData(b.Symbol, b.Timeframe, b.Time, b.Open, b.High, b.Low, b.Close, b.TickVolume)
		}
	case KindHistoricData:
		s.OnHistoricData(e.Symbol, e.Timeframe, e.Data)
	case KindHistoricTrades:
		s.OnHistoricTrades()
	case KindMessage:
		if e.Message != nil {
			s.OnMessage(*e.Message)
		}
	case KindOrder:
		s.OnOrderEvent()
	}
}

// ChanSink turns sink calls into Events on C. Sends block when C is full,
// which stalls the sending stream's loop until the consumer catches up or
// the sink is stopped. Once stopped, events are dropped.
type ChanSink struct {
	C chan Event

	done chan struct{}
	once sync.Once
}

func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{C: make(chan Event, buffer), done: make(chan struct{})}
}

// Stop releases any blocked send. Client.Close calls it so a consumer that
// stopped reading cannot hold a polling loop open.
func (s *ChanSink) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *ChanSink) send(e Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.C <- e:
	case <-s.done:
	}
}

func (s *ChanSink) OnTick(symbol string, bid, ask float64) { s.send(TickEvent(symbol, bid, ask)) }
func (s *ChanSink) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	s.send(BarEvent(symbol, timeframe, t, open, high, low, close, volume))
}
func (s *ChanSink) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	s.send(HistoricDataEvent(symbol, timeframe, data))
}
func (s *ChanSink) OnHistoricTrades()          { s.send(HistoricTradesEvent()) }
func (s *ChanSink) OnMessage(m broker.Message) { s.send(MessageEvent(m)) }
func (s *ChanSink) OnOrderEvent()              { s.send(OrderEvent()) }

// Stopper is implemented by sinks that can block a loop and need releasing
// when the client closes.
type Stopper interface {
	Stop()
}

// StopSink stops s if it is a Stopper.
func StopSink(s EventSink) {
	if st, ok := s.(Stopper); ok {
		st.Stop()
	}
}

// MultiSink calls every sink in order.
type MultiSink []EventSink

func (m MultiSink) OnTick(symbol string, bid, ask float64) {
	for _, s := range m {
		s.OnTick(symbol, bid, ask)
	}
}

func (m MultiSink) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	for _, s := range m {
		s.OnBarData(symbol, timeframe, t, open, high, low, close, volume)
	}
}

func (m MultiSink) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	for _, s := range m {
		s.OnHistoricData(symbol, timeframe, data)
	}
}

func (m MultiSink) OnHistoricTrades() {
	for _, s := range m {
		s.OnHistoricTrades()
	}
}

func (m MultiSink) OnMessage(msg broker.Message) {
	for _, s := range m {
		s.OnMessage(msg)
	}
}

func (m MultiSink) OnOrderEvent() {
	for _, s := range m {
		s.OnOrderEvent()
	}
}

// Stop stops every member that is a Stopper.
func (m MultiSink) Stop() {
	for _, s := range m {
		StopSink(s)
	}
}

// FuncSink adapts plain functions. Nil fields are skipped.
type FuncSink struct {
	Tick           func(symbol string, bid, ask float64)
	Bar            func(b market.Bar)
	HistoricData   func(symbol, timeframe string, data json.RawMessage)
	HistoricTrades func()
	Message        func(m broker.Message)
	Order          func()
}

func (f FuncSink) OnTick(symbol string, bid, ask float64) {
	if f.Tick != nil {
		f.Tick(symbol, bid, ask)
	}
}

func (f FuncSink) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	if f.Bar != nil {
		f.Bar(market.Bar{
			Symbol: symbol, Timeframe: timeframe, Time: t,
			Open: open, High: high, Low: low, Close: close, TickVolume: volume,
		})
	}
}

func (f FuncSink) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	if f.HistoricData != nil {
		f.HistoricData(symbol, timeframe, data)
	}
}

func (f FuncSink) OnHistoricTrades() {
	if f.HistoricTrades != nil {
		f.HistoricTrades()
	}
}

func (f FuncSink) OnMessage(m broker.Message) {
	if f.Message != nil {
		f.Message(m)
	}
}

func (f FuncSink) OnOrderEvent() {
	if f.Order != nil {
		f.Order()
	}
}
