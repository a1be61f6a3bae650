package dwx

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/detect"
	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/rustyeddy/dwxconnect/metrics"
	"github.com/rustyeddy/dwxconnect/store"
	"github.com/rustyeddy/dwxconnect/wire"
)

func (c *Client) handleOrders(text string) error {
	snap, err := wire.DecodeOrders([]byte(text))
	if err != nil {
		return err
	}

	prev := c.store.ReplaceOrders(snap.Account, snap.Orders)
	metrics.SetEquity(snap.Account.Equity())
	diff := detect.Orders(prev, snap.Orders)
	if c.opts.Verbose {
		for _, t := range diff.Removed {
			c.logOrder("order removed", prev[t])
		}
		for _, t := range diff.Added {
			c.logOrder("new order", snap.Orders[t])
		}
	}

	if c.opts.LoadOrdersFromFile {
		if err := fileio.WriteFile(c.paths.OrdersStored, []byte(text)); err != nil {
			c.log.WithError(err).Warn("store orders")
		}
	}

	if diff.Changed() {
		metrics.IncEvent(string(KindOrder))
		c.sink.OnOrderEvent()
	}
	return nil
}

func (c *Client) logOrder(msg string, o broker.Order) {
	c.log.WithFields(logrus.Fields{
		"ticket": o.Ticket,
		"symbol": o.Symbol,
		"type":   o.Type,
		"lots":   o.Lots,
	}).Info(msg)
}

// The stored copy is written before delivery, so a crash mid-batch can drop
// messages but never deliver one twice.
func (c *Client) handleMessages(text string) error {
	batch, err := wire.DecodeMessages([]byte(text))
	if err != nil {
		return err
	}

	fresh, wm := detect.Messages(c.store.Watermark(), batch)
	if err := fileio.WriteFile(c.paths.MessagesStored, []byte(text)); err != nil {
		c.log.WithError(err).Warn("store messages")
	}
	c.store.RaiseWatermark(wm)
	metrics.SetWatermark(wm)

	for _, m := range fresh {
		metrics.IncEvent(string(KindMessage))
		c.sink.OnMessage(m)
	}
	return nil
}

func (c *Client) handleMarketData(text string) error {
	next, err := wire.DecodeMarketData([]byte(text))
	if err != nil {
		return err
	}
	prev := c.store.ReplaceTicks(next)
	for _, tk := range detect.Ticks(prev, next) {
		metrics.IncEvent(string(KindTick))
		c.sink.OnTick(tk.Symbol, tk.Bid, tk.Ask)
	}
	return nil
}

func (c *Client) handleBarData(text string) error {
	next, err := wire.DecodeBarData([]byte(text))
	if err != nil {
		return err
	}
	prev := c.store.ReplaceBars(next)
	for _, b := range detect.Bars(prev, next) {
		metrics.IncEvent(string(KindBar))
		c.sink.OnBarData(b.Symbol, b.Timeframe, b.Time, b.Open, b.High, b.Low, b.Close, b.TickVolume)
	}
	return nil
}

// Historic files are one-shot responses: delivered, then deleted. Once the
// file is gone the raw baseline is cleared so a repeated identical response
// is delivered again.
func (c *Client) handleHistoricData(text string) error {
	data, err := wire.DecodeHistoricData([]byte(text))
	if err != nil {
		return err
	}
	c.store.MergeHistoricData(data)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		symbol, tf, ok := market.SplitKey(k)
		if !ok {
			c.log.WithField("key", k).Warn("historic data key without timeframe")
			continue
		}
		metrics.IncEvent(string(KindHistoricData))
		c.sink.OnHistoricData(symbol, tf, data[k])
	}

	c.consume(store.HistoricData, c.paths.HistoricData)
	return nil
}

func (c *Client) handleHistoricTrades(text string) error {
	trades, err := wire.DecodeHistoricTrades([]byte(text))
	if err != nil {
		return err
	}
	c.store.SetHistoricTrades(trades)
	metrics.IncEvent(string(KindHistoricTrades))
	c.sink.OnHistoricTrades()

	c.consume(store.HistoricTrades, c.paths.HistoricTrades)
	return nil
}

func (c *Client) consume(stream store.Stream, path string) {
	if fileio.RemoveFile(path) {
		c.store.ResetRaw(stream)
		return
	}
	c.log.WithField("stream", stream).Debug("could not remove consumed file")
}
