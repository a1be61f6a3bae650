package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/dwx"
)

// Hub fans client events out to websocket connections. It is an EventSink:
// pass it (or a MultiSink holding it) to dwx.New.
type Hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan dwx.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

var _ dwx.EventSink = (*Hub)(nil)

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:        log,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan dwx.Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.drop(c)

		case ev := <-h.broadcast:
			h.fanout(ev)
		}
	}
}

func (h *Hub) fanout(ev dwx.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			// slow consumer
			delete(h.clients, c)
			close(c.send)
			h.log.Warn("websocket client too slow, disconnected")
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Connections returns the number of attached websocket clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// publish never blocks: a poll loop must not stall on the web side.
func (h *Hub) publish(ev dwx.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.WithField("kind", ev.Kind).Debug("hub queue full, event dropped")
	}
}

func (h *Hub) OnTick(symbol string, bid, ask float64) { h.publish(dwx.TickEvent(symbol, bid, ask)) }

func (h *Hub) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	h.publish(dwx.BarEvent(symbol, timeframe, t, open, high, low, close, volume))
}

func (h *Hub) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	h.publish(dwx.HistoricDataEvent(symbol, timeframe, data))
}

func (h *Hub) OnHistoricTrades()          { h.publish(dwx.HistoricTradesEvent()) }
func (h *Hub) OnMessage(m broker.Message) { h.publish(dwx.MessageEvent(m)) }
func (h *Hub) OnOrderEvent()              { h.publish(dwx.OrderEvent()) }
