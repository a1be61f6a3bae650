// Package dispatch hands commands to the terminal through a pool of
// rotating command files. The terminal consumes and deletes one slot file
// at a time; a send claims the lowest free slot, and keeps rescanning until
// one frees up or the retry window closes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/internal/id"
	"github.com/rustyeddy/dwxconnect/metrics"
	"github.com/rustyeddy/dwxconnect/wire"
)

// ErrTimeout means every slot stayed occupied for the whole retry window.
var ErrTimeout = errors.New("no free command slot")

type Config struct {
	Slots    int           // number of command files (default: 50)
	Interval time.Duration // pause between full scans (default: 5ms)
	MaxRetry time.Duration // retry window per send (default: 10s)

	// Numbered frames every command as <:ID|NAME|args:> with an id that
	// increments per send and wraps at command.MaxID.
	Numbered bool

	// OnSend is called after every send, successful or not.
	OnSend func(c command.Command, r Receipt, err error)
}

func DefaultConfig() Config {
	return Config{
		Slots:    50,
		Interval: 5 * time.Millisecond,
		MaxRetry: 10 * time.Second,
	}
}

// Receipt describes where and how a command was written.
type Receipt struct {
	ID        string        `json:"id"`
	CommandID int           `json:"command_id,omitempty"`
	Slot      int           `json:"slot"`
	Attempts  int           `json:"attempts"`
	Elapsed   time.Duration `json:"elapsed"`
}

type Dispatcher struct {
	cfg   Config
	paths wire.Paths
	log   logrus.FieldLogger

	mu     sync.Mutex
	nextID int
}

func New(paths wire.Paths, cfg Config, log logrus.FieldLogger) *Dispatcher {
	def := DefaultConfig()
	if cfg.Slots <= 0 {
		cfg.Slots = def.Slots
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = def.MaxRetry
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{cfg: cfg, paths: paths, log: log}
}

// Slots returns the size of the slot pool.
func (d *Dispatcher) Slots() int { return d.cfg.Slots }

// Send writes c into the first free slot. It blocks while every slot is
// taken, and fails with ErrTimeout once the retry window passes or with
// ctx.Err() if ctx ends first.
func (d *Dispatcher) Send(ctx context.Context, c command.Command) (Receipt, error) {
	r := Receipt{ID: id.New()}
	text := c.Encode()
	if d.cfg.Numbered {
		r.CommandID = d.takeID()
		text = c.EncodeNumbered(r.CommandID)
	}

	r, err := d.write(ctx, c, text, r)
	d.observe(c, r, err)
	return r, err
}

// ResetIDs restarts numbering and tells the terminal to do the same. It is
// meant for a bridge restart while the terminal side keeps running.
func (d *Dispatcher) ResetIDs(ctx context.Context) (Receipt, error) {
	d.mu.Lock()
	d.nextID = 0
	d.mu.Unlock()
	return d.Send(ctx, command.ResetCommandIDs())
}

func (d *Dispatcher) takeID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID = (d.nextID + 1) % command.MaxID
	return d.nextID
}

func (d *Dispatcher) write(ctx context.Context, c command.Command, text string, r Receipt) (Receipt, error) {
	start := time.Now()
	deadline := start.Add(d.cfg.MaxRetry)
	data := []byte(text)

	for {
		r.Attempts++
		for i := 0; i < d.cfg.Slots; i++ {
			path := d.paths.CommandSlot(i)
			if fileio.Exists(path) {
				continue
			}
			ok, err := fileio.CreateExclusive(path, data)
			if err != nil {
				d.log.WithFields(logrus.Fields{"command": c.Name, "slot": i}).WithError(err).Debug("slot write failed")
				continue
			}
			if ok {
				r.Slot = i
				r.Elapsed = time.Since(start)
				return r, nil
			}
		}

		if !time.Now().Before(deadline) {
			r.Slot = -1
			r.Elapsed = time.Since(start)
			return r, fmt.Errorf("send %s: %w", c.Name, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			r.Slot = -1
			r.Elapsed = time.Since(start)
			return r, fmt.Errorf("send %s: %w", c.Name, ctx.Err())
		case <-time.After(d.cfg.Interval):
		}
	}
}

// Result classifies a send error into one of the metrics result labels.
func Result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrTimeout):
		return metrics.ResultTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultError
	}
}

func (d *Dispatcher) observe(c command.Command, r Receipt, err error) {
	log := d.log.WithFields(logrus.Fields{"command": c.Name, "slot": r.Slot, "attempts": r.Attempts})

	result := Result(err)
	switch result {
	case metrics.ResultOK:
		log.Debug("command sent")
	case metrics.ResultCanceled:
		log.WithError(err).Warn("command abandoned")
	default:
		log.WithError(err).Error("command not sent")
	}
	metrics.ObserveCommand(c.Name, result, r.Elapsed, r.Attempts)

	if d.cfg.OnSend != nil {
		d.cfg.OnSend(c, r, err)
	}
}
