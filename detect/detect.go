// Package detect turns two consecutive snapshots of a stream into the
// changes worth reporting. Everything here is pure; callers own the state.
package detect

import (
	"sort"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
)

// OrderDiff lists tickets that appeared or disappeared between snapshots.
type OrderDiff struct {
	Added   []int64
	Removed []int64
}

// Changed is true when the ticket sets differ. Field changes on a ticket
// present in both snapshots never count.
func (d OrderDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Orders compares the ticket sets of two order snapshots. Both slices come
// back sorted.
func Orders(prev, next map[int64]broker.Order) OrderDiff {
	var d OrderDiff
	for ticket := range prev {
		if _, ok := next[ticket]; !ok {
			d.Removed = append(d.Removed, ticket)
		}
	}
	for ticket := range next {
		if _, ok := prev[ticket]; !ok {
			d.Added = append(d.Added, ticket)
		}
	}
	sortInt64(d.Added)
	sortInt64(d.Removed)
	return d
}

// Messages returns the messages newer than watermark in ascending timestamp
// order, plus the new watermark. Sorting happens before filtering so a batch
// carrying several new messages is delivered whole.
func Messages(watermark int64, batch map[int64]broker.Message) ([]broker.Message, int64) {
	keys := make([]int64, 0, len(batch))
	for millis := range batch {
		if millis > watermark {
			keys = append(keys, millis)
		}
	}
	sortInt64(keys)

	out := make([]broker.Message, 0, len(keys))
	for _, millis := range keys {
		m := batch[millis]
		m.Millis = millis
		out = append(out, m)
		watermark = millis
	}
	return out, watermark
}

// MaxMillis returns the highest timestamp in batch, or floor if batch holds
// nothing above it.
func MaxMillis(floor int64, batch map[int64]broker.Message) int64 {
	for millis := range batch {
		if millis > floor {
			floor = millis
		}
	}
	return floor
}

// Ticks returns the ticks of symbols that are new or whose bid/ask moved,
// sorted by symbol. Symbols missing from next are not reported.
func Ticks(prev, next map[string]market.Tick) []market.Tick {
	var out []market.Tick
	for symbol, tk := range next {
		old, ok := prev[symbol]
		if ok && old.SameQuote(tk) {
			continue
		}
		tk.Symbol = symbol
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Bars returns the bars whose key is new or whose fields changed, sorted by
// key. Keys that do not split into symbol and timeframe are skipped.
func Bars(prev, next map[string]market.Bar) []market.Bar {
	keys := make([]string, 0, len(next))
	for key, b := range next {
		old, ok := prev[key]
		if ok && old.SameValues(b) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]market.Bar, 0, len(keys))
	for _, key := range keys {
		symbol, tf, ok := market.SplitKey(key)
		if !ok {
			continue
		}
		b := next[key]
		b.Symbol, b.Timeframe = symbol, tf
		out = append(out, b)
	}
	return out
}

func sortInt64(s []int64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
