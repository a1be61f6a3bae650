package journal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/dwx"
)

// AccountSource is read on every order event to take an equity snapshot.
// *dwx.Client satisfies it.
type AccountSource interface {
	Account() broker.Account
	OpenOrders() map[int64]broker.Order
}

// Sink journals messages and equity snapshots, then forwards every event to
// the wrapped sink. Journal failures are logged and never block delivery.
type Sink struct {
	j    Journal
	next dwx.EventSink
	log  logrus.FieldLogger
	now  func() time.Time

	mu  sync.RWMutex
	src AccountSource
}

var _ dwx.EventSink = (*Sink)(nil)

func NewSink(j Journal, next dwx.EventSink, log logrus.FieldLogger) *Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if next == nil {
		next = dwx.MultiSink{}
	}
	return &Sink{j: j, next: next, log: log, now: time.Now}
}

// Attach sets where equity snapshots are read from. Until it is called,
// order events are forwarded without a snapshot.
func (s *Sink) Attach(src AccountSource) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}

// Stop releases the wrapped sink.
func (s *Sink) Stop() { dwx.StopSink(s.next) }

func (s *Sink) OnTick(symbol string, bid, ask float64) { s.next.OnTick(symbol, bid, ask) }

func (s *Sink) OnBarData(symbol, timeframe, t string, open, high, low, close float64, volume int64) {
	s.next.OnBarData(symbol, timeframe, t, open, high, low, close, volume)
}

func (s *Sink) OnHistoricData(symbol, timeframe string, data json.RawMessage) {
	s.next.OnHistoricData(symbol, timeframe, data)
}

func (s *Sink) OnHistoricTrades() { s.next.OnHistoricTrades() }

func (s *Sink) OnMessage(m broker.Message) {
	if err := s.j.RecordMessage(MessageFrom(m)); err != nil {
		s.log.WithError(err).WithField("millis", m.Millis).Warn("journal message")
	}
	s.next.OnMessage(m)
}

func (s *Sink) OnOrderEvent() {
	s.mu.RLock()
	src := s.src
	s.mu.RUnlock()

	if src != nil {
		snap := EquityFrom(s.now(), src.Account(), len(src.OpenOrders()))
		if err := s.j.RecordEquity(snap); err != nil {
			s.log.WithError(err).Warn("journal equity")
		}
	}
	s.next.OnOrderEvent()
}

// OnSend matches dispatch.Config.OnSend.
func (s *Sink) OnSend(c command.Command, r dispatch.Receipt, err error) {
	if jerr := s.j.RecordCommand(CommandFrom(c, r, err)); jerr != nil {
		s.log.WithError(jerr).WithField("command", c.Name).Warn("journal command")
	}
}
