// Package sim is a stand-in for the terminal side of the bridge. It consumes
// command slot files, keeps simulated orders and an account, and writes the
// orders, messages, market, bar and historic files in the terminal's format.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/rustyeddy/dwxconnect/wire"
)

type Config struct {
	Balance      float64
	Currency     string
	Leverage     float64
	ContractSize float64 // units per lot
	Slots        int     // command files scanned per Step
	MaxMessages  int     // messages kept in the messages file
	FirstTicket  int64
	Clock        func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Balance:      10000,
		Currency:     "USD",
		Leverage:     100,
		ContractSize: 100000,
		Slots:        50,
		MaxMessages:  50,
		FirstTicket:  100000,
		Clock:        time.Now,
	}
}

type tickAt struct {
	at       time.Time
	bid, ask float64
}

// maxHistory bounds the ticks kept per symbol for historic data requests.
const maxHistory = 100000

type Terminal struct {
	mu    sync.Mutex
	cfg   Config
	paths wire.Paths
	log   logrus.FieldLogger

	balance    float64
	prices     map[string]market.Tick
	history    map[string][]tickAt
	positions  map[int64]*position
	closed     []closedTrade
	nextTicket int64

	messages   map[int64]broker.Message
	lastMillis int64

	symbols []string
	barSubs []market.Subscription
	bars    map[string]market.Bar
}

// NewTerminal creates <metatraderDir>/DWX if needed and writes an initial
// orders file.
func NewTerminal(metatraderDir string, cfg Config, log logrus.FieldLogger) (*Terminal, error) {
	def := DefaultConfig()
	if cfg.Balance <= 0 {
		cfg.Balance = def.Balance
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = def.Leverage
	}
	if cfg.ContractSize <= 0 {
		cfg.ContractSize = def.ContractSize
	}
	if cfg.Slots <= 0 {
		cfg.Slots = def.Slots
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.FirstTicket <= 0 {
		cfg.FirstTicket = def.FirstTicket
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	paths := wire.NewPaths(metatraderDir)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create terminal dir: %w", err)
	}

	t := &Terminal{
		cfg:        cfg,
		paths:      paths,
		log:        log,
		balance:    cfg.Balance,
		prices:     make(map[string]market.Tick),
		history:    make(map[string][]tickAt),
		positions:  make(map[int64]*position),
		nextTicket: cfg.FirstTicket,
		messages:   make(map[int64]broker.Message),
		bars:       make(map[string]market.Bar),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Terminal) Paths() wire.Paths { return t.paths }

// Step consumes every command slot file present, in slot order, applies the
// commands and rewrites the output files. It returns the number of slots
// consumed.
func (t *Terminal) Step() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := 0; i < t.cfg.Slots; i++ {
		path := t.paths.CommandSlot(i)
		text := fileio.ReadFile(path)
		if text == "" {
			continue
		}
		fileio.RemoveFile(path)
		n++

		_, c, err := command.Decode(text)
		if err != nil {
			t.errorLocked("COMMAND", err.Error())
			continue
		}
		t.applyLocked(c)
	}
	if n == 0 {
		return 0, nil
	}
	return n, t.flushLocked()
}

// Run calls Step every interval until ctx is done.
func (t *Terminal) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := t.Step(); err != nil {
				t.log.WithError(err).Warn("terminal step")
			}
		}
	}
}

// Apply runs one command directly, bypassing the slot files.
func (t *Terminal) Apply(c command.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyLocked(c)
	return t.flushLocked()
}

func (t *Terminal) applyLocked(c command.Command) {
	switch c.Name {
	case command.CmdSubscribeSymbols:
		t.symbols = append([]string(nil), c.Args...)
		t.infoLocked("Successfully subscribed to: " + strings.Join(c.Args, ", "))

	case command.CmdSubscribeSymbolsBarData:
		if len(c.Args)%2 != 0 {
			t.errorLocked(c.Name, "expected symbol,timeframe pairs")
			return
		}
		subs := make([]market.Subscription, 0, len(c.Args)/2)
		keep := make(map[string]market.Bar)
		for i := 0; i < len(c.Args); i += 2 {
			s := market.Subscription{Symbol: c.Args[i], Timeframe: c.Args[i+1]}
			subs = append(subs, s)
			if b, ok := t.bars[s.Key()]; ok {
				keep[s.Key()] = b
			}
		}
		t.barSubs, t.bars = subs, keep
		t.infoLocked(fmt.Sprintf("Successfully subscribed to bar data: %d pairs", len(subs)))

	case command.CmdGetHistoricData:
		if err := t.historicDataLocked(c); err != nil {
			t.errorLocked(c.Name, err.Error())
		}

	case command.CmdGetHistoricTrades:
		if err := t.historicTradesLocked(c); err != nil {
			t.errorLocked(c.Name, err.Error())
		}

	case command.CmdOpenOrder:
		req, err := command.ParseOpenOrder(c)
		if err != nil {
			t.errorLocked(c.Name, err.Error())
			return
		}
		t.openLocked(req)

	case command.CmdModifyOrder:
		req, err := command.ParseModifyOrder(c)
		if err != nil {
			t.errorLocked(c.Name, err.Error())
			return
		}
		t.modifyLocked(req)

	case command.CmdCloseOrder:
		ticket, lots, err := command.ParseCloseOrder(c)
		if err != nil {
			t.errorLocked(c.Name, err.Error())
			return
		}
		t.closeLocked(ticket, lots, "")

	case command.CmdCloseAllOrders:
		t.closeWhereLocked(func(*position) bool { return true })

	case command.CmdCloseOrdersBySymbol:
		if len(c.Args) != 1 {
			t.errorLocked(c.Name, "expected symbol")
			return
		}
		symbol := c.Args[0]
		t.closeWhereLocked(func(p *position) bool { return p.Symbol == symbol })

	case command.CmdCloseOrdersByMagic:
		var magic int64
		if len(c.Args) != 1 {
			t.errorLocked(c.Name, "expected magic number")
			return
		}
		if _, err := fmt.Sscan(c.Args[0], &magic); err != nil {
			t.errorLocked(c.Name, "bad magic number "+c.Args[0])
			return
		}
		t.closeWhereLocked(func(p *position) bool { return p.Magic == magic })

	case command.CmdResetCommandIDs:
		t.infoLocked("Successfully reset command IDs.")

	default:
		t.errorLocked("COMMAND", "unknown command "+c.Name)
	}
}

func (t *Terminal) openLocked(req broker.OrderRequest) {
	if !req.Type.Valid() {
		t.errorLocked(command.CmdOpenOrder, fmt.Sprintf("unknown order type %q", req.Type))
		return
	}
	if req.Lots <= 0 {
		t.errorLocked(command.CmdOpenOrder, "lots must be positive")
		return
	}

	price := req.Price
	if !req.Type.Pending() {
		tk, ok := t.prices[req.Symbol]
		if !ok {
			t.errorLocked(command.CmdOpenOrder, "no price for "+req.Symbol)
			return
		}
		price = tk.Ask
		if side(req.Type) < 0 {
			price = tk.Bid
		}
	} else if price <= 0 {
		t.errorLocked(command.CmdOpenOrder, "pending order needs a price")
		return
	}

	now := t.cfg.Clock()
	ticket := t.nextTicket
	t.nextTicket++

	p := &position{
		Order: broker.Order{
			Ticket:     ticket,
			Symbol:     req.Symbol,
			Type:       req.Type,
			Lots:       req.Lots,
			OpenPrice:  price,
			OpenTime:   broker.Text(market.FormatTime(now)),
			StopLoss:   req.StopLoss,
			TakeProfit: req.TakeProfit,
			Magic:      req.Magic,
			Comment:    req.Comment,
		},
		openedAt:  now,
		expiresAt: req.Expiration,
	}
	if !req.Expiration.IsZero() {
		p.Expiration = broker.Text(market.FormatTime(req.Expiration))
	}
	t.positions[ticket] = p
	t.infoLocked(fmt.Sprintf("Successfully sent order %d: %s, %s, %v, %v", ticket, req.Symbol, req.Type, req.Lots, price))
}

func (t *Terminal) modifyLocked(req broker.ModifyRequest) {
	p, ok := t.positions[req.Ticket]
	if !ok {
		t.errorLocked(command.CmdModifyOrder, fmt.Sprintf("order %d not found", req.Ticket))
		return
	}
	if p.Type.Pending() {
		if req.Lots > 0 {
			p.Lots = req.Lots
		}
		if req.Price > 0 {
			p.OpenPrice = req.Price
		}
		p.expiresAt = req.Expiration
		p.Expiration = ""
		if !req.Expiration.IsZero() {
			p.Expiration = broker.Text(market.FormatTime(req.Expiration))
		}
	}
	p.StopLoss = req.StopLoss
	p.TakeProfit = req.TakeProfit
	t.infoLocked(fmt.Sprintf("Successfully modified order %d: %s, %v, %v, SL: %v, TP: %v",
		p.Ticket, p.Symbol, p.Lots, p.OpenPrice, p.StopLoss, p.TakeProfit))
}

// closeLocked closes lots of ticket, or all of it when lots is zero or at
// least the open size. Pending orders are deleted.
func (t *Terminal) closeLocked(ticket int64, lots float64, reason string) {
	p, ok := t.positions[ticket]
	if !ok {
		t.errorLocked(command.CmdCloseOrder, fmt.Sprintf("order %d not found", ticket))
		return
	}
	if p.Type.Pending() {
		delete(t.positions, ticket)
		t.infoLocked(fmt.Sprintf("Successfully deleted pending order %d", ticket))
		return
	}
	tk, ok := t.prices[p.Symbol]
	if !ok {
		t.errorLocked(command.CmdCloseOrder, "no price for "+p.Symbol)
		return
	}

	full := lots <= 0 || lots >= p.Lots
	if full {
		lots = p.Lots
	}
	closePrice := p.mark(tk.Bid, tk.Ask)
	portion := *p
	portion.Lots = lots
	pnl := portion.unrealizedPL(closePrice, t.cfg.ContractSize) *
		quoteToAccountRate(p.Symbol, t.cfg.Currency, t.prices)
	t.balance += pnl

	now := t.cfg.Clock()
	t.closed = append(t.closed, closedTrade{
		Ticket:     ticket,
		Magic:      p.Magic,
		Symbol:     p.Symbol,
		Lots:       lots,
		Type:       p.Type,
		OpenTime:   string(p.OpenTime),
		CloseTime:  market.FormatTime(now),
		OpenPrice:  p.OpenPrice,
		ClosePrice: closePrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		PnL:        pnl,
		Comment:    p.Comment,
		closedAt:   now,
	})

	if full {
		delete(t.positions, ticket)
	} else {
		p.Lots = math.Round((p.Lots-lots)*100) / 100
	}

	msg := fmt.Sprintf("Successfully closed order %d: %s, %v, %v", ticket, p.Symbol, lots, closePrice)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	t.infoLocked(msg)
}

func (t *Terminal) closeWhereLocked(match func(*position) bool) {
	n := 0
	for _, ticket := range t.ticketsLocked() {
		if p := t.positions[ticket]; match(p) {
			t.closeLocked(ticket, 0, "")
			n++
		}
	}
	if n == 0 {
		t.infoLocked("No orders to close.")
	}
}

func (t *Terminal) ticketsLocked() []int64 {
	tickets := make([]int64, 0, len(t.positions))
	for ticket := range t.positions {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })
	return tickets
}

// SetTick publishes a quote at the terminal clock's time.
func (t *Terminal) SetTick(symbol string, bid, ask float64) error {
	return t.SetTickAt(t.cfg.Clock(), symbol, bid, ask)
}

// SetTickAt publishes a quote stamped at, fills or expires pending orders,
// applies stop loss and take profit, and rewrites the output files.
func (t *Terminal) SetTickAt(at time.Time, symbol string, bid, ask float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tk := market.Tick{Symbol: symbol, Bid: bid, Ask: ask}
	t.prices[symbol] = tk
	h := append(t.history[symbol], tickAt{at: at, bid: bid, ask: ask})
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	t.history[symbol] = h
	t.updateBarsLocked(at, tk)

	for _, ticket := range t.ticketsLocked() {
		p := t.positions[ticket]
		if p.Symbol != symbol {
			continue
		}
		if p.Type.Pending() {
			switch {
			case !p.expiresAt.IsZero() && !at.Before(p.expiresAt):
				delete(t.positions, ticket)
				t.infoLocked(fmt.Sprintf("Pending order %d expired", ticket))
			case p.triggered(bid, ask):
				p.Type = filledType(p.Type)
				p.openedAt = at
				p.OpenTime = broker.Text(market.FormatTime(at))
				t.infoLocked(fmt.Sprintf("Pending order %d filled at %v", ticket, p.OpenPrice))
			}
			continue
		}

		mark := p.mark(bid, ask)
		switch {
		case p.hitStopLoss(mark):
			t.closeLocked(ticket, 0, "sl")
		case p.hitTakeProfit(mark):
			t.closeLocked(ticket, 0, "tp")
		}
	}
	return t.flushLocked()
}

func (t *Terminal) updateBarsLocked(at time.Time, tk market.Tick) {
	for _, s := range t.barSubs {
		if s.Symbol != tk.Symbol {
			continue
		}
		secs, err := market.TFStringToSeconds(s.Timeframe)
		if err != nil {
			continue
		}
		stamp := market.FormatTime(at.Truncate(time.Duration(secs) * time.Second))
		mid := tk.Mid()

		b, ok := t.bars[s.Key()]
		if !ok || b.Time != stamp {
			t.bars[s.Key()] = market.Bar{
				Symbol: s.Symbol, Timeframe: s.Timeframe, Time: stamp,
				Open: mid, High: mid, Low: mid, Close: mid, TickVolume: 1,
			}
			continue
		}
		b.High = math.Max(b.High, mid)
		b.Low = math.Min(b.Low, mid)
		b.Close = mid
		b.TickVolume++
		t.bars[s.Key()] = b
	}
}

func (t *Terminal) infoLocked(text string) {
	t.addMessageLocked(broker.Message{Type: broker.MessageInfo, Message: text})
}

func (t *Terminal) errorLocked(errorType, description string) {
	t.addMessageLocked(broker.Message{Type: broker.MessageError, ErrorType: errorType, Description: description})
}

func (t *Terminal) addMessageLocked(m broker.Message) {
	millis := t.cfg.Clock().UnixMilli()
	if millis <= t.lastMillis {
		millis = t.lastMillis + 1
	}
	t.lastMillis = millis
	m.Millis = millis
	t.messages[millis] = m
	t.log.WithFields(logrus.Fields{"type": m.Type, "millis": millis}).Debug(m.Text())

	for len(t.messages) > t.cfg.MaxMessages {
		oldest := int64(math.MaxInt64)
		for k := range t.messages {
			if k < oldest {
				oldest = k
			}
		}
		delete(t.messages, oldest)
	}
}

// accountLocked values open positions at the latest quotes.
func (t *Terminal) accountLocked() broker.Account {
	equity := t.balance
	var margin float64
	for _, p := range t.positions {
		tk, ok := t.prices[p.Symbol]
		if !ok || p.Type.Pending() {
			continue
		}
		rate := quoteToAccountRate(p.Symbol, t.cfg.Currency, t.prices)
		p.PnL = p.unrealizedPL(p.mark(tk.Bid, tk.Ask), t.cfg.ContractSize) * rate
		equity += p.PnL
		margin += math.Abs(p.units(t.cfg.ContractSize)) * tk.Mid() * rate / t.cfg.Leverage
	}
	return broker.Account{
		"number":      1,
		"name":        "sim",
		"currency":    t.cfg.Currency,
		"leverage":    t.cfg.Leverage,
		"balance":     round2(t.balance),
		"equity":      round2(equity),
		"free_margin": round2(equity - margin),
	}
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func (t *Terminal) flushLocked() error {
	account := t.accountLocked()
	orders := make(map[int64]broker.Order, len(t.positions))
	for ticket, p := range t.positions {
		orders[ticket] = p.Order
	}

	var errs []error
	write := func(path string, data []byte, err error) {
		if err == nil {
			err = fileio.WriteFile(path, data)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", path, err))
		}
	}

	b, err := wire.EncodeOrders(wire.OrdersSnapshot{Account: account, Orders: orders})
	write(t.paths.Orders, b, err)
	b, err = wire.EncodeMessages(t.messages)
	write(t.paths.Messages, b, err)

	if len(t.symbols) > 0 {
		ticks := make(map[string]market.Tick, len(t.symbols))
		for _, s := range t.symbols {
			if tk, ok := t.prices[s]; ok {
				ticks[s] = tk
			}
		}
		b, err = wire.EncodeMarketData(ticks)
		write(t.paths.MarketData, b, err)
	}
	if len(t.barSubs) > 0 {
		b, err = wire.EncodeBarData(t.bars)
		write(t.paths.BarData, b, err)
	}
	return errors.Join(errs...)
}

// Orders returns the open and pending orders.
func (t *Terminal) Orders() map[int64]broker.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int64]broker.Order, len(t.positions))
	for ticket, p := range t.positions {
		out[ticket] = p.Order
	}
	return out
}

// Messages returns the messages currently in the messages file, oldest first.
func (t *Terminal) Messages() []broker.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]broker.Message, 0, len(t.messages))
	for _, m := range t.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Millis < out[j].Millis })
	return out
}

func (t *Terminal) Balance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}
