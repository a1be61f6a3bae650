package dwx

import (
	"github.com/rustyeddy/dwxconnect/detect"
	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/metrics"
	"github.com/rustyeddy/dwxconnect/store"
	"github.com/rustyeddy/dwxconnect/wire"
)

// restore seeds the store from the stored snapshots left by a previous run.
// The message watermark always comes back; orders only when
// LoadOrdersFromFile is set. A stored file that does not decode is ignored.
func (c *Client) restore() {
	c.recoverMessages()
	if c.opts.LoadOrdersFromFile {
		c.recoverOrders()
	}
}

func (c *Client) recoverMessages() {
	text := fileio.ReadFile(c.paths.MessagesStored)
	if text == "" {
		return
	}
	batch, err := wire.DecodeMessages([]byte(text))
	if err != nil {
		c.log.WithError(err).Warn("ignoring stored messages")
		return
	}
	c.store.SwapRaw(store.Messages, text)
	wm := detect.MaxMillis(c.store.Watermark(), batch)
	c.store.RaiseWatermark(wm)
	metrics.SetWatermark(wm)
	c.log.WithField("watermark", wm).Debug("restored message watermark")
}

func (c *Client) recoverOrders() {
	text := fileio.ReadFile(c.paths.OrdersStored)
	if text == "" {
		return
	}
	snap, err := wire.DecodeOrders([]byte(text))
	if err != nil {
		c.log.WithError(err).Warn("ignoring stored orders")
		return
	}
	c.store.SwapRaw(store.Orders, text)
	c.store.ReplaceOrders(snap.Account, snap.Orders)
	c.log.WithField("orders", len(snap.Orders)).Debug("restored open orders")
}
