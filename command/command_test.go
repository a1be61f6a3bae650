package command

import (
	"testing"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"subscribe", SubscribeSymbols("EURUSD", "GBPUSD"), "<:SUBSCRIBE_SYMBOLS|EURUSD,GBPUSD:>"},
		{"bar data", SubscribeSymbolsBarData(
			market.Subscription{Symbol: "EURUSD", Timeframe: "M15"},
			market.Subscription{Symbol: "GBPJPY", Timeframe: "M5"},
		), "<:SUBSCRIBE_SYMBOLS_BAR_DATA|EURUSD,M15,GBPJPY,M5:>"},
		{"historic data", GetHistoricData("EURUSD", "D1", time.Unix(1600000000, 0), time.Unix(1602592000, 0)),
			"<:GET_HISTORIC_DATA|EURUSD,D1,1600000000,1602592000:>"},
		{"historic trades", GetHistoricTrades(30), "<:GET_HISTORIC_TRADES|30:>"},
		{"open order", OpenOrder(broker.OrderRequest{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.01}),
			"<:OPEN_ORDER|EURUSD,buy,0.01,0,0,0,0,,0:>"},
		{"open pending", OpenOrder(broker.OrderRequest{
			Symbol: "EURUSD", Type: broker.BuyLimit, Lots: 0.1, Price: 1.0849,
			StopLoss: 1.08, TakeProfit: 1.09, Magic: 42, Comment: "grid",
			Expiration: time.Unix(1700000000, 0),
		}), "<:OPEN_ORDER|EURUSD,buylimit,0.1,1.0849,1.08,1.09,42,grid,1700000000:>"},
		{"modify", ModifyOrder(broker.ModifyRequest{Ticket: 1001, Lots: 0.02, StopLoss: 1.1}),
			"<:MODIFY_ORDER|1001,0.02,0,1.1,0,0:>"},
		{"close", CloseOrder(1001, 0), "<:CLOSE_ORDER|1001,0:>"},
		{"close partial", CloseOrder(1001, 0.01), "<:CLOSE_ORDER|1001,0.01:>"},
		{"close all", CloseAllOrders(), "<:CLOSE_ALL_ORDERS|:>"},
		{"by symbol", CloseOrdersBySymbol("GBPUSD"), "<:CLOSE_ORDERS_BY_SYMBOL|GBPUSD:>"},
		{"by magic", CloseOrdersByMagic(7), "<:CLOSE_ORDERS_BY_MAGIC|7:>"},
		{"reset ids", ResetCommandIDs(), "<:RESET_COMMAND_IDS|:>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Encode())
			assert.True(t, Known(tt.cmd.Name))
		})
	}
}

func TestEncodeNumbered(t *testing.T) {
	t.Parallel()

	c := CloseOrdersByMagic(7)
	assert.Equal(t, "<:12|CLOSE_ORDERS_BY_MAGIC|7:>", c.EncodeNumbered(12))

	id, back, err := Decode(c.EncodeNumbered(12))
	require.NoError(t, err)
	assert.Equal(t, 12, id)
	assert.Equal(t, c, back)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cmds := []Command{
		SubscribeSymbols("EURUSD"),
		OpenOrder(broker.OrderRequest{Symbol: "USDJPY", Type: broker.SellStop, Lots: 1.5, Price: 148.25, Magic: -1}),
		ModifyOrder(broker.ModifyRequest{Ticket: 9, TakeProfit: 2}),
		CloseAllOrders(),
		New("CUSTOM", "a", "", "c"),
	}

	for _, c := range cmds {
		t.Run(c.Name, func(t *testing.T) {
			id, back, err := Decode(c.Encode())
			require.NoError(t, err)
			assert.Zero(t, id)
			assert.Equal(t, c, back)
		})
	}
}

// Commas inside one argument are not escaped: the payload text survives the
// trip, the argument boundaries do not.
func TestRoundTripEmbeddedComma(t *testing.T) {
	t.Parallel()

	c := OpenOrder(broker.OrderRequest{Symbol: "EURUSD", Type: broker.Buy, Lots: 0.01, Comment: "scalp,fast"})

	_, back, err := Decode(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c.Name, back.Name)
	assert.Equal(t, c.Payload(), back.Payload())
	assert.Len(t, back.Args, len(c.Args)+1)

	_, err = ParseOpenOrder(back)
	assert.Error(t, err, "terminal side sees ten fields")
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"",
		"OPEN_ORDER|x",
		"<:OPEN_ORDER:>",
		"<:|x:>",
		"<:12|:>",
		"<:>",
		"<:12|OPEN_ORDER:>",
	} {
		t.Run(text, func(t *testing.T) {
			_, _, err := Decode(text)
			assert.ErrorIs(t, err, ErrFraming)
		})
	}
}

func TestParseOpenOrder(t *testing.T) {
	t.Parallel()

	want := broker.OrderRequest{
		Symbol: "EURUSD", Type: broker.SellLimit, Lots: 0.3, Price: 1.1,
		StopLoss: 1.2, TakeProfit: 1.0, Magic: 5, Comment: "c",
		Expiration: time.Unix(1700000000, 0).UTC(),
	}
	got, err := ParseOpenOrder(OpenOrder(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseOpenOrder(New(CmdOpenOrder, "EURUSD", "hold", "1", "0", "0", "0", "0", "", "0"))
	assert.Error(t, err)
	_, err = ParseOpenOrder(New(CmdOpenOrder, "EURUSD", "buy", "x", "0", "0", "0", "0", "", "0"))
	assert.Error(t, err)
}

func TestParseModifyAndClose(t *testing.T) {
	t.Parallel()

	mod := broker.ModifyRequest{Ticket: 77, Lots: 0.5, Price: 1.5, StopLoss: 1.4, TakeProfit: 1.6}
	got, err := ParseModifyOrder(ModifyOrder(mod))
	require.NoError(t, err)
	assert.Equal(t, mod, got)

	ticket, lots, err := ParseCloseOrder(CloseOrder(77, 0.25))
	require.NoError(t, err)
	assert.Equal(t, int64(77), ticket)
	assert.Equal(t, 0.25, lots)

	_, _, err = ParseCloseOrder(New(CmdCloseOrder, "77"))
	assert.Error(t, err)
}
