// Package poll runs the sleep-read-compare loops that watch the files the
// terminal writes.
package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/metrics"
	"github.com/rustyeddy/dwxconnect/store"
	"github.com/rustyeddy/dwxconnect/wire"
)

// Handler receives the new content of a stream's file. A returned error
// is logged and the loop carries on.
type Handler func(text string) error

// Stream is one file watched by a loop.
type Stream struct {
	Name   store.Stream
	Path   string
	Handle Handler
}

// RawStore remembers the last content seen per stream.
type RawStore interface {
	SwapRaw(stream store.Stream, text string) bool
}

// Config holds loop configuration.
type Config struct {
	Interval time.Duration // sleep between cycles (default: 5ms)

	// Gate, when set, must be true for a cycle to read anything. Loops are
	// started right away and idle until the gate opens.
	Gate *atomic.Bool
}

func DefaultConfig() Config {
	return Config{Interval: 5 * time.Millisecond}
}

// Loop polls one or more files in a fixed order every cycle.
type Loop struct {
	cfg     Config
	raw     RawStore
	streams []Stream
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, raw RawStore, log logrus.FieldLogger, streams ...Stream) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loop{
		cfg:     cfg,
		raw:     raw,
		streams: streams,
		log:     log,
	}
}

// Start runs the loop in its own goroutine until ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run()
}

// Stop cancels the loop and waits for it to exit, or for ctx to expire.
func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.Cycle()
		}
	}
}

// Cycle polls every stream once. It reports how many streams had new
// content, whether or not the content decoded.
func (l *Loop) Cycle() int {
	if l.cfg.Gate != nil && !l.cfg.Gate.Load() {
		return 0
	}

	changed := 0
	for _, s := range l.streams {
		text := fileio.ReadFile(s.Path)
		if !l.raw.SwapRaw(s.Name, text) {
			continue
		}
		changed++

		if err := s.Handle(text); err != nil {
			if errors.Is(err, wire.ErrMalformed) {
				metrics.IncParseError(string(s.Name))
			}
			l.log.WithField("stream", s.Name).WithError(err).Warn("skipping update")
			continue
		}
		metrics.IncPollChange(string(s.Name))
	}
	return changed
}
