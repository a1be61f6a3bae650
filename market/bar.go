package market

import (
	"fmt"
	"strings"
	"time"
)

// Bar is the most recent OHLC bar for one (symbol, timeframe) subscription.
// Time is kept exactly as the terminal formats it.
type Bar struct {
	Symbol     string  `json:"symbol,omitempty"`
	Timeframe  string  `json:"timeframe,omitempty"`
	Time       string  `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume int64   `json:"tick_volume"`
}

// SameValues compares the OHLCV fields and time, ignoring the key.
func (b Bar) SameValues(o Bar) bool {
	return b.Time == o.Time &&
		b.Open == o.Open &&
		b.High == o.High &&
		b.Low == o.Low &&
		b.Close == o.Close &&
		b.TickVolume == o.TickVolume
}

// terminal time layouts, most specific first
var timeLayouts = []string{
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02",
}

// ParseTime parses a timestamp in the terminal's "YYYY.MM.DD HH:MM[:SS]" format.
// Terminal times carry no zone; they are returned as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad terminal time %q", s)
}

// FormatTime renders t the way the terminal writes bar times.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006.01.02 15:04")
}
