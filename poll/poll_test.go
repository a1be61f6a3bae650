package poll

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dwxconnect/store"
	"github.com/rustyeddy/dwxconnect/wire"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (r *recorder) handle(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, text)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestCycleIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Market_Data.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"EURUSD":{"bid":1,"ask":2}}`), 0o644))

	rec := &recorder{}
	l := New(DefaultConfig(), store.New(), nil, Stream{Name: store.MarketData, Path: path, Handle: rec.handle})

	assert.Equal(t, 1, l.Cycle())
	for i := 0; i < 20; i++ {
		assert.Equal(t, 0, l.Cycle())
	}
	assert.Equal(t, 1, rec.count())

	require.NoError(t, os.WriteFile(path, []byte(`{"EURUSD":{"bid":1,"ask":3}}`), 0o644))
	assert.Equal(t, 1, l.Cycle())
	assert.Equal(t, 2, rec.count())
}

func TestCycleMissingFile(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	l := New(DefaultConfig(), store.New(), nil,
		Stream{Name: store.Orders, Path: filepath.Join(t.TempDir(), "nope.txt"), Handle: rec.handle})

	assert.Equal(t, 0, l.Cycle())
	assert.Equal(t, 0, rec.count())
}

func TestCycleSurvivesHandlerErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Orders.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"orders":`), 0o644))

	log, hook := test.NewNullLogger()
	rec := &recorder{err: wire.ErrMalformed}
	st := store.New()
	l := New(DefaultConfig(), st, log, Stream{Name: store.Orders, Path: path, Handle: rec.handle})

	assert.Equal(t, 1, l.Cycle())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, store.Orders, hook.LastEntry().Data["stream"])

	// identical malformed content is not decoded again
	assert.Equal(t, 0, l.Cycle())

	rec.err = errors.New("boom")
	require.NoError(t, os.WriteFile(path, []byte(`{"orders":{}}`), 0o644))
	assert.Equal(t, 1, l.Cycle())
	assert.Equal(t, 2, rec.count())
}

func counterValue(t *testing.T, name, stream string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "stream" && lp.GetValue() == stream {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCycleCountsHandledChangesOnly(t *testing.T) {
	t.Parallel()

	const name = store.Stream("cycle_counts")
	path := filepath.Join(t.TempDir(), "DWX_Orders.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"orders":`), 0o644))

	log, _ := test.NewNullLogger()
	rec := &recorder{err: wire.ErrMalformed}
	l := New(DefaultConfig(), store.New(), log, Stream{Name: name, Path: path, Handle: rec.handle})

	assert.Equal(t, 1, l.Cycle())
	assert.Equal(t, 0.0, counterValue(t, "dwx_poll_changes_total", string(name)))
	assert.Equal(t, 1.0, counterValue(t, "dwx_parse_errors_total", string(name)))

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	require.NoError(t, os.WriteFile(path, []byte(`{"orders":{}}`), 0o644))
	assert.Equal(t, 1, l.Cycle())
	assert.Equal(t, 1.0, counterValue(t, "dwx_poll_changes_total", string(name)))
}

func TestCycleSkipsBlankFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "DWX_Orders.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n  \n"), 0o644))

	log, hook := test.NewNullLogger()
	rec := &recorder{}
	l := New(DefaultConfig(), store.New(), log, Stream{Name: store.Orders, Path: path, Handle: rec.handle})

	assert.Equal(t, 0, l.Cycle())
	assert.Equal(t, 0, rec.count())
	assert.Empty(t, hook.AllEntries())
}

func TestGate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Bar_Data.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	var gate atomic.Bool
	rec := &recorder{}
	l := New(Config{Interval: time.Millisecond, Gate: &gate}, store.New(), nil,
		Stream{Name: store.BarData, Path: path, Handle: rec.handle})

	assert.Equal(t, 0, l.Cycle())
	gate.Store(true)
	assert.Equal(t, 1, l.Cycle())
}

func TestStreamsPolledInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	rec := &recorder{}
	l := New(DefaultConfig(), store.New(), nil,
		Stream{Name: store.HistoricData, Path: a, Handle: rec.handle},
		Stream{Name: store.HistoricTrades, Path: b, Handle: rec.handle},
	)
	assert.Equal(t, 2, l.Cycle())
	assert.Equal(t, []string{"a", "b"}, rec.seen)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Messages.txt")

	rec := &recorder{}
	l := New(Config{Interval: time.Millisecond}, store.New(), nil,
		Stream{Name: store.Messages, Path: path, Handle: rec.handle})
	l.Start(context.Background())

	require.NoError(t, os.WriteFile(path, []byte(`{"1":{}}`), 0o644))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))

	require.NoError(t, os.WriteFile(path, []byte(`{"2":{}}`), 0o644))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestParentContextStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	l := New(Config{Interval: time.Millisecond}, store.New(), nil)
	l.Start(ctx)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, l.Stop(stopCtx))
}
