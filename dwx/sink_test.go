package dwx

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// recSink records every call as an Event.
type recSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recSink) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recSink) OnTick(symbol string, bid, ask float64) { r.add(TickEvent(symbol, bid, ask)) }
func (r *recSink) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	r.add(BarEvent(symbol, timeframe, t, open, high, low, close, volume))
}
func (r *recSink) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	r.add(HistoricDataEvent(symbol, timeframe, data))
}
func (r *recSink) OnHistoricTrades()          { r.add(HistoricTradesEvent()) }
func (r *recSink) OnMessage(m broker.Message) { r.add(MessageEvent(m)) }
func (r *recSink) OnOrderEvent()              { r.add(OrderEvent()) }

func (r *recSink) count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (r *recSink) of(k Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func TestEventDeliverRoundTrip(t *testing.T) {
	t.Parallel()

	events := []Event{
		TickEvent("EURUSD", 1.1, 1.2),
		BarEvent("EURUSD", "M1", "2024.03.01 10:00", 1, 2, 0.5, 1.5, 9),
		HistoricDataEvent("EURUSD", "D1", json.RawMessage(`{}`)),
		HistoricTradesEvent(),
		MessageEvent(broker.Message{Millis: 5, Type: broker.MessageInfo, Message: "hi"}),
		OrderEvent(),
	}

	rec := &recSink{}
	for _, e := range events {
		e.Deliver(rec)
	}
	require.Len(t, rec.events, len(events))
	for i, e := range rec.events {
		assert.Equal(t, events[i].Kind, e.Kind)
		assert.Equal(t, events[i].Tick, e.Tick)
		assert.Equal(t, events[i].Bar, e.Bar)
		assert.Equal(t, events[i].Message, e.Message)
	}
}

func TestChanSink(t *testing.T) {
	t.Parallel()

	s := NewChanSink(4)
	s.OnTick("EURUSD", 1, 2)
	s.OnOrderEvent()

	e := <-s.C
	assert.Equal(t, KindTick, e.Kind)
	assert.Equal(t, "EURUSD", e.Tick.Symbol)
	assert.Equal(t, KindOrder, (<-s.C).Kind)
}

func TestChanSinkStop(t *testing.T) {
	t.Parallel()

	s := NewChanSink(0)
	done := make(chan struct{})
	go func() {
		MultiSink{s}.OnOrderEvent()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("send returned without a reader")
	case <-time.After(20 * time.Millisecond):
	}

	MultiSink{s}.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send still blocked after Stop")
	}

	s.Stop()
	s.OnTick("EURUSD", 1, 2)
	assert.Empty(t, s.C)
}

func TestMultiAndFuncSink(t *testing.T) {
	t.Parallel()

	var bars []market.Bar
	var orders int
	fs := FuncSink{
		Bar:   func(b market.Bar) { bars = append(bars, b) },
		Order: func() { orders++ },
	}
	rec := &recSink{}
	m := MultiSink{fs, rec}

	m.OnBarData("GBPUSD", "H1", "2024.03.01 10:00", 1, 2, 0.5, 1.5, 3)
	m.OnOrderEvent()
	m.OnTick("GBPUSD", 1, 2) // FuncSink without Tick is a no-op
	m.OnMessage(broker.Message{})
	m.OnHistoricTrades()
	m.OnHistoricData("GBPUSD", "H1", nil)

	require.Len(t, bars, 1)
	assert.Equal(t, "H1", bars[0].Timeframe)
	assert.Equal(t, int64(3), bars[0].TickVolume)
	assert.Equal(t, 1, orders)
	assert.Len(t, rec.events, 6)
}

func TestEventJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(TickEvent("EURUSD", 1.1, 1.2))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "tick", got["kind"])
	assert.NotContains(t, got, "bar")
	assert.NotContains(t, got, "message")
}
