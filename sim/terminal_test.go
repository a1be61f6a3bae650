package sim

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/rustyeddy/dwxconnect/wire"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTerminal(t *testing.T) *Terminal {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.Clock = c.Now
	term, err := NewTerminal(t.TempDir(), cfg, nil)
	require.NoError(t, err)
	return term
}

func readOrders(t *testing.T, term *Terminal) wire.OrdersSnapshot {
	t.Helper()
	b, err := os.ReadFile(term.Paths().Orders)
	require.NoError(t, err)
	snap, err := wire.DecodeOrders(b)
	require.NoError(t, err)
	return snap
}

func lastMessage(t *testing.T, term *Terminal) broker.Message {
	t.Helper()
	msgs := term.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func TestNewTerminalWritesOrders(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	snap := readOrders(t, term)
	assert.Empty(t, snap.Orders)
	assert.Equal(t, 10000.0, snap.Account.Balance())
	assert.Equal(t, "USD", snap.Account.Currency())
}

func TestStepConsumesSlots(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	require.NoError(t, term.SetTick("EURUSD", 1.1000, 1.1002))

	p := term.Paths()
	require.NoError(t, os.WriteFile(p.CommandSlot(0),
		[]byte(command.OpenOrder(broker.OrderRequest{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.1, Magic: 7}).Encode()), 0o644))
	require.NoError(t, os.WriteFile(p.CommandSlot(3),
		[]byte(command.SubscribeSymbols("EURUSD").EncodeNumbered(4)), 0o644))

	n, err := term.Step()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, i := range []int{0, 3} {
		_, err := os.Stat(p.CommandSlot(i))
		assert.True(t, os.IsNotExist(err))
	}

	snap := readOrders(t, term)
	require.Len(t, snap.Orders, 1)
	o := snap.Orders[100000]
	assert.Equal(t, "EURUSD", o.Symbol)
	assert.Equal(t, 1.1002, o.OpenPrice)
	assert.Equal(t, int64(7), o.Magic)

	n, err = term.Step()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenWithoutPrice(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	require.NoError(t, term.Apply(command.OpenOrder(broker.OrderRequest{Symbol: "GBPUSD", Type: broker.Sell, Lots: 1})))
	assert.Empty(t, term.Orders())
	m := lastMessage(t, term)
	assert.True(t, m.IsError())
	assert.Equal(t, command.CmdOpenOrder, m.ErrorType)
}

func TestModifyAndClose(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	require.NoError(t, term.SetTick("EURUSD", 1.1000, 1.1002))
	require.NoError(t, term.Apply(command.OpenOrder(broker.OrderRequest{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.5})))

	require.NoError(t, term.Apply(command.ModifyOrder(broker.ModifyRequest{Ticket: 100000, StopLoss: 1.09, TakeProfit: 1.12})))
	o := term.Orders()[100000]
	assert.Equal(t, 1.09, o.StopLoss)
	assert.Equal(t, 1.12, o.TakeProfit)

	require.NoError(t, term.SetTick("EURUSD", 1.1010, 1.1012))
	require.NoError(t, term.Apply(command.CloseOrder(100000, 0.2)))
	assert.InDelta(t, 0.3, term.Orders()[100000].Lots, 1e-9)
	assert.InDelta(t, 10000+0.2*100000*(1.1010-1.1002), term.Balance(), 1e-6)

	require.NoError(t, term.Apply(command.CloseOrder(100000, 0)))
	assert.Empty(t, term.Orders())

	require.NoError(t, term.Apply(command.CloseOrder(42, 0)))
	assert.True(t, lastMessage(t, term).IsError())
}

func TestCloseFilters(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	require.NoError(t, term.SetTick("EURUSD", 1.1, 1.1))
	require.NoError(t, term.SetTick("GBPUSD", 1.3, 1.3))

	for _, req := range []broker.OrderRequest{
		{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.1, Magic: 1},
		{Symbol: "EURUSD", Type: broker.Sell, Lots: 0.1, Magic: 2},
		{Symbol: "GBPUSD", Type: broker.Buy, Lots: 0.1, Magic: 2},
		{Symbol: "GBPUSD", Type: broker.BuyLimit, Lots: 0.1, Price: 1.2, Magic: 3},
	} {
		require.NoError(t, term.Apply(command.OpenOrder(req)))
	}
	require.Len(t, term.Orders(), 4)

	require.NoError(t, term.Apply(command.CloseOrdersByMagic(2)))
	assert.Len(t, term.Orders(), 2)

	require.NoError(t, term.Apply(command.CloseOrdersBySymbol("EURUSD")))
	assert.Len(t, term.Orders(), 1)

	require.NoError(t, term.Apply(command.CloseAllOrders()))
	assert.Empty(t, term.Orders())
}

func TestStopLossAndPendingFill(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	require.NoError(t, term.SetTick("EURUSD", 1.1000, 1.1002))

	require.NoError(t, term.Apply(command.OpenOrder(broker.OrderRequest{
		Symbol: "EURUSD", Type: broker.Buy, Lots: 0.1, StopLoss: 1.0950,
	})))
	require.NoError(t, term.Apply(command.OpenOrder(broker.OrderRequest{
		Symbol: "EURUSD", Type: broker.BuyLimit, Lots: 0.1, Price: 1.0940,
	})))
	require.Len(t, term.Orders(), 2)

	require.NoError(t, term.SetTick("EURUSD", 1.0945, 1.0947))
	orders := term.Orders()
	assert.NotContains(t, orders, int64(100000))
	assert.Equal(t, broker.BuyLimit, orders[100001].Type)

	require.NoError(t, term.SetTick("EURUSD", 1.0938, 1.0940))
	assert.Equal(t, broker.Buy, term.Orders()[100001].Type)
}

func TestMarketAndBarFiles(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	p := term.Paths()

	require.NoError(t, term.Apply(command.SubscribeSymbols("EURUSD")))
	require.NoError(t, term.Apply(command.SubscribeSymbolsBarData(market.Subscription{Symbol: "EURUSD", Timeframe: "M1"})))

	at := time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)
	require.NoError(t, term.SetTickAt(at, "EURUSD", 1.1, 1.1002))
	require.NoError(t, term.SetTickAt(at.Add(10*time.Second), "EURUSD", 1.2, 1.2002))
	require.NoError(t, term.SetTickAt(at, "GBPUSD", 1.3, 1.3002))

	b, err := os.ReadFile(p.MarketData)
	require.NoError(t, err)
	ticks, err := wire.DecodeMarketData(b)
	require.NoError(t, err)
	assert.Len(t, ticks, 1)
	assert.Equal(t, 1.2, ticks["EURUSD"].Bid)

	b, err = os.ReadFile(p.BarData)
	require.NoError(t, err)
	bars, err := wire.DecodeBarData(b)
	require.NoError(t, err)
	bar := bars["EURUSD_M1"]
	assert.Equal(t, "2024.03.01 10:00", bar.Time)
	assert.Equal(t, int64(2), bar.TickVolume)
	assert.InDelta(t, 1.1001, bar.Open, 1e-9)
	assert.InDelta(t, 1.2001, bar.High, 1e-9)
}

func TestHistoricFiles(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)
	p := term.Paths()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		require.NoError(t, term.SetTickAt(base.Add(time.Duration(i)*time.Hour), "EURUSD", 1.1, 1.1002))
	}
	require.NoError(t, term.Apply(command.GetHistoricData("EURUSD", "D1", base, base.Add(72*time.Hour))))

	b, err := os.ReadFile(p.HistoricData)
	require.NoError(t, err)
	var hist map[string]map[string]ohlc
	require.NoError(t, json.Unmarshal(b, &hist))
	require.Contains(t, hist, "EURUSD_D1")
	assert.Len(t, hist["EURUSD_D1"], 2)
	assert.Equal(t, int64(24), hist["EURUSD_D1"]["2024.03.01 00:00"].TickVolume)

	require.NoError(t, term.Apply(command.OpenOrder(broker.OrderRequest{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.1})))
	require.NoError(t, term.Apply(command.CloseAllOrders()))
	require.NoError(t, term.Apply(command.GetHistoricTrades(30)))

	b, err = os.ReadFile(p.HistoricTrades)
	require.NoError(t, err)
	trades, err := wire.DecodeHistoricTrades(b)
	require.NoError(t, err)
	assert.Contains(t, trades, "100000")
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	require.NoError(t, os.WriteFile(term.Paths().CommandSlot(0), []byte("garbage"), 0o644))
	n, err := term.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, lastMessage(t, term).IsError())

	require.NoError(t, term.Apply(command.New("FLY_TO_MOON")))
	assert.Contains(t, lastMessage(t, term).Description, "FLY_TO_MOON")
}

func TestMessagesCapped(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	for i := 0; i < 80; i++ {
		require.NoError(t, term.Apply(command.ResetCommandIDs()))
	}
	msgs := term.Messages()
	assert.Len(t, msgs, 50)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].Millis, msgs[i-1].Millis)
	}
}

func TestReplayCSV(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	csv := strings.Join([]string{
		"time,symbol,bid,ask,event,arg1,arg2,arg3",
		"2024-03-01T10:00:00Z,EURUSD,1.1000,1.1002",
		"2024-03-01T10:00:01Z,EURUSD,1.1001,1.1003,OPEN_ORDER,EURUSD,buy,0.1,0,0,0,0,,0",
		"2024-03-01T10:00:02Z,EURUSD,1.1005,1.1007",
	}, "\n")

	n, err := ReplayCSV(context.Background(), strings.NewReader(csv), term, ReplayOptions{Step: true})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, term.Orders(), 1)
	assert.Equal(t, 1.1003, term.Orders()[100000].OpenPrice)
}

func TestReplayCSVTerminalTimes(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	csv := strings.Join([]string{
		"2024.03.01 10:00,EURUSD,1.1000,1.1002",
		"2024.03.01 10:00:30,EURUSD,1.1001,1.1003",
	}, "\n")

	n, err := ReplayCSV(context.Background(), strings.NewReader(csv), term, ReplayOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h := term.history["EURUSD"]
	require.Len(t, h, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), h[0].at)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 30, 0, time.UTC), h[1].at)

	_, err = ReplayCSV(context.Background(), strings.NewReader("yesterday,EURUSD,1,2\n"), term, ReplayOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad time")
}

func TestReplayCSVBadRow(t *testing.T) {
	t.Parallel()
	term := newTerminal(t)

	_, err := ReplayCSV(context.Background(), strings.NewReader("2024-03-01T10:00:00Z,EURUSD,abc,1\n"), term, ReplayOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
