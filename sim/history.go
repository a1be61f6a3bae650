package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/fileio"
	"github.com/rustyeddy/dwxconnect/market"
)

type ohlc struct {
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume int64   `json:"tick_volume"`
}

// historicDataLocked answers GET_HISTORIC_DATA|symbol,timeframe,start,end by
// bucketing the recorded ticks of symbol into bars.
func (t *Terminal) historicDataLocked(c command.Command) error {
	args := c.Args
	if len(args) != 4 {
		return fmt.Errorf("expected symbol,timeframe,start,end, got %d args", len(args))
	}
	symbol, tf := args[0], args[1]
	secs, err := market.TFStringToSeconds(tf)
	if err != nil {
		return err
	}
	start, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("bad start %q", args[2])
	}
	end, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("bad end %q", args[3])
	}
	from, to := time.Unix(start, 0), time.Unix(end, 0)
	width := time.Duration(secs) * time.Second

	bars := make(map[string]ohlc)
	for _, tk := range t.history[symbol] {
		if tk.at.Before(from) || tk.at.After(to) {
			continue
		}
		stamp := market.FormatTime(tk.at.Truncate(width))
		mid := (tk.bid + tk.ask) / 2
		b, ok := bars[stamp]
		if !ok {
			bars[stamp] = ohlc{Open: mid, High: mid, Low: mid, Close: mid, TickVolume: 1}
			continue
		}
		b.High = math.Max(b.High, mid)
		b.Low = math.Min(b.Low, mid)
		b.Close = mid
		b.TickVolume++
		bars[stamp] = b
	}

	data, err := json.Marshal(map[string]map[string]ohlc{market.Key(symbol, tf): bars})
	if err != nil {
		return err
	}
	if err := fileio.WriteFile(t.paths.HistoricData, data); err != nil {
		return err
	}
	t.infoLocked(fmt.Sprintf("Successfully read historic data for %s_%s: %d bars", symbol, tf, len(bars)))
	return nil
}

// historicTradesLocked answers GET_HISTORIC_TRADES|days with the trades
// closed within the lookback window.
func (t *Terminal) historicTradesLocked(c command.Command) error {
	args := c.Args
	if len(args) != 1 {
		return fmt.Errorf("expected lookback days, got %d args", len(args))
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		return fmt.Errorf("bad lookback days %q", args[0])
	}
	cutoff := t.cfg.Clock().AddDate(0, 0, -days)

	trades := make(map[string]closedTrade)
	for _, ct := range t.closed {
		if ct.closedAt.Before(cutoff) {
			continue
		}
		key := strconv.FormatInt(ct.Ticket, 10)
		if prev, ok := trades[key]; ok {
			// partial closes of one ticket are reported as one trade
			ct.Lots += prev.Lots
			ct.PnL += prev.PnL
		}
		trades[key] = ct
	}

	data, err := json.Marshal(trades)
	if err != nil {
		return err
	}
	if err := fileio.WriteFile(t.paths.HistoricTrades, data); err != nil {
		return err
	}
	t.infoLocked(fmt.Sprintf("Successfully read historic trades: %d", len(trades)))
	return nil
}
