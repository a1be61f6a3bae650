// Package dwx is the bridge client. It watches the files a DWX Connect
// terminal writes, turns changes into EventSink calls, and writes commands
// into the terminal's command slots.
package dwx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/rustyeddy/dwxconnect/poll"
	"github.com/rustyeddy/dwxconnect/store"
	"github.com/rustyeddy/dwxconnect/wire"
)

// ErrDirNotFound means the terminal's DWX directory does not exist.
var ErrDirNotFound = errors.New("DWX directory not found")

type Options struct {
	// MetatraderDir is the terminal's MQL files directory; it must contain DWX/.
	MetatraderDir string

	SleepDelay      time.Duration // polling interval (default: 5ms)
	MaxRetryCommand time.Duration // command retry window (default: 10s)
	NumCommandFiles int           // command slots (default: 50)

	// LoadOrdersFromFile persists every orders update and reloads it on
	// startup, so orders open before a restart do not fire order events.
	LoadOrdersFromFile bool

	// Verbose logs every order added or removed at info level.
	Verbose bool

	// NumberedCommands frames commands as <:ID|NAME|args:> and resets the
	// terminal's ids on Open.
	NumberedCommands bool

	// OnSend is called after every command send.
	OnSend func(c command.Command, r dispatch.Receipt, err error)
}

func DefaultOptions() Options {
	return Options{
		SleepDelay:         5 * time.Millisecond,
		MaxRetryCommand:    10 * time.Second,
		NumCommandFiles:    50,
		LoadOrdersFromFile: true,
		Verbose:            true,
	}
}

// Client owns the snapshot store, the polling loops and the dispatcher for
// one terminal.
type Client struct {
	opts     Options
	paths    wire.Paths
	sink     EventSink
	autoRun  bool
	log      logrus.FieldLogger
	store    *store.Store
	dispatch *dispatch.Dispatcher

	started atomic.Bool

	mu     sync.Mutex
	loops  []*poll.Loop
	cancel context.CancelFunc
}

var _ broker.Broker = (*Client)(nil)

// New checks that the DWX directory exists and builds a client. A nil sink
// discards events.
func New(opts Options, sink EventSink, log logrus.FieldLogger) (*Client, error) {
	def := DefaultOptions()
	if opts.SleepDelay <= 0 {
		opts.SleepDelay = def.SleepDelay
	}
	if opts.MaxRetryCommand <= 0 {
		opts.MaxRetryCommand = def.MaxRetryCommand
	}
	if opts.NumCommandFiles <= 0 {
		opts.NumCommandFiles = def.NumCommandFiles
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	paths := wire.NewPaths(opts.MetatraderDir)
	fi, err := os.Stat(paths.Root)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirNotFound, paths.Root)
	}

	c := &Client{
		opts:    opts,
		paths:   paths,
		sink:    sink,
		autoRun: sink == nil,
		log:     log,
		store:   store.New(),
	}
	if sink == nil {
		c.sink = MultiSink{}
	}
	c.dispatch = dispatch.New(paths, dispatch.Config{
		Slots:    opts.NumCommandFiles,
		Interval: opts.SleepDelay,
		MaxRetry: opts.MaxRetryCommand,
		Numbered: opts.NumberedCommands,
		OnSend:   opts.OnSend,
	}, log)
	return c, nil
}

// Open restores the stored baseline and starts one polling loop per stream.
// Loops idle until Start is called; with no sink the client starts at once.
// If the numbered-command reset fails, the loops are stopped again.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("client already open")
	}

	c.restore()

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	cfg := poll.Config{Interval: c.opts.SleepDelay, Gate: &c.started}
	c.loops = []*poll.Loop{
		c.newLoop(cfg, poll.Stream{Name: store.Orders, Path: c.paths.Orders, Handle: c.handleOrders}),
		c.newLoop(cfg, poll.Stream{Name: store.Messages, Path: c.paths.Messages, Handle: c.handleMessages}),
		c.newLoop(cfg, poll.Stream{Name: store.MarketData, Path: c.paths.MarketData, Handle: c.handleMarketData}),
		c.newLoop(cfg, poll.Stream{Name: store.BarData, Path: c.paths.BarData, Handle: c.handleBarData}),
		c.newLoop(cfg,
			poll.Stream{Name: store.HistoricData, Path: c.paths.HistoricData, Handle: c.handleHistoricData},
			poll.Stream{Name: store.HistoricTrades, Path: c.paths.HistoricTrades, Handle: c.handleHistoricTrades},
		),
	}
	for _, l := range c.loops {
		l.Start(loopCtx)
	}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"dir":      c.paths.Root,
		"interval": c.opts.SleepDelay,
		"slots":    c.opts.NumCommandFiles,
	}).Info("dwx client open")

	if c.opts.NumberedCommands {
		if _, err := c.dispatch.ResetIDs(loopCtx); err != nil {
			if cerr := c.Close(); cerr != nil {
				c.log.WithError(cerr).Warn("close after failed open")
			}
			return fmt.Errorf("reset command ids: %w", err)
		}
	}
	if c.autoRun {
		c.Start()
	}
	return nil
}

func (c *Client) newLoop(cfg poll.Config, streams ...poll.Stream) *poll.Loop {
	return poll.New(cfg, c.store, c.log, streams...)
}

// Start lets the loops deliver events.
func (c *Client) Start() {
	if !c.started.Swap(true) {
		c.log.Debug("dwx client started")
	}
}

func (c *Client) Started() bool { return c.started.Load() }

// Close stops every loop and waits for them to exit. A sink that can
// block, such as ChanSink, is stopped first and drops events afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.cancel = nil
	StopSink(c.sink)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, l := range c.loops {
		if err := l.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.loops = nil
	c.log.Info("dwx client closed")
	return errors.Join(errs...)
}

func (c *Client) Paths() wire.Paths { return c.paths }

func (c *Client) Account() broker.Account { return c.store.Account() }

func (c *Client) OpenOrders() map[int64]broker.Order { return c.store.OpenOrders() }

func (c *Client) MarketData() map[string]market.Tick { return c.store.Ticks() }

func (c *Client) BarData() map[string]market.Bar { return c.store.Bars() }

func (c *Client) HistoricData() map[string]json.RawMessage { return c.store.HistoricData() }

func (c *Client) HistoricTrades() map[string]json.RawMessage { return c.store.HistoricTrades() }

// LastMessageMillis is the timestamp of the newest delivered message.
func (c *Client) LastMessageMillis() int64 { return c.store.Watermark() }
