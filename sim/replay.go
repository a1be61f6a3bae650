package sim

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/market"
)

// ReplayOptions controls how a tick CSV is fed to a Terminal.
type ReplayOptions struct {
	// Pace sleeps between rows. Zero replays as fast as possible.
	Pace time.Duration

	// Step consumes pending command slots after every row, so a bridge
	// trading against the replay sees its orders fill at replayed prices.
	Step bool
}

// ReplayFile opens csvPath and replays it with ReplayCSV.
func ReplayFile(ctx context.Context, csvPath string, t *Terminal, opts ReplayOptions) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayCSV(ctx, f, t, opts)
}

// ReplayCSV publishes ticks read from r and applies optional scripted
// commands. It returns the number of rows replayed.
//
// Rows:
//
//	time,symbol,bid,ask
//	time,symbol,bid,ask,COMMAND,arg1,arg2,...
//
// time is RFC3339 or the terminal's "YYYY.MM.DD HH:MM[:SS]" (UTC). A first row starting with "time" is a header. The tick
// is published before the row's command runs, so OPEN_ORDER fills at that
// row's prices.
func ReplayCSV(ctx context.Context, r io.Reader, t *Terminal, opts ReplayOptions) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows := 0
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		if err := replayRow(t, row); err != nil {
			return rows, fmt.Errorf("line %d: %w", line, err)
		}
		rows++

		if opts.Step {
			if _, err := t.Step(); err != nil {
				return rows, err
			}
		}
		if opts.Pace > 0 {
			select {
			case <-ctx.Done():
				return rows, ctx.Err()
			case <-time.After(opts.Pace):
			}
		} else if err := ctx.Err(); err != nil {
			return rows, err
		}
	}
}

func replayRow(t *Terminal, row []string) error {
	if len(row) < 4 {
		return fmt.Errorf("bad row (need at least 4 cols time,symbol,bid,ask): %v", row)
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	at, err := parseReplayTime(row[0])
	if err != nil {
		return err
	}
	symbol := row[1]
	if symbol == "" {
		return fmt.Errorf("symbol is empty")
	}
	bid, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	ask, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return fmt.Errorf("bad ask %q: %w", row[3], err)
	}

	if err := t.SetTickAt(at, symbol, bid, ask); err != nil {
		return err
	}
	if len(row) >= 5 && row[4] != "" {
		return t.Apply(command.New(strings.ToUpper(row[4]), row[5:]...))
	}
	return nil
}

func parseReplayTime(s string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, s); err == nil {
		return at, nil
	}
	at, err := market.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: want RFC3339 or terminal format", s)
	}
	return at, nil
}
