package wire

import (
	"path/filepath"
	"testing"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Parallel()

	p := NewPaths("/mt4/Files")
	assert.Equal(t, filepath.Join("/mt4/Files", "DWX"), p.Root)
	assert.Equal(t, filepath.Join("/mt4/Files", "DWX", "DWX_Orders.txt"), p.Orders)
	assert.Equal(t, filepath.Join("/mt4/Files", "DWX", "DWX_Messages_Stored.txt"), p.MessagesStored)
	assert.Equal(t, filepath.Join("/mt4/Files", "DWX", "DWX_Commands_49.txt"), p.CommandSlot(49))
}

func TestDecodeOrders(t *testing.T) {
	t.Parallel()

	raw := `{"account_info": {"balance": 1000, "equity": 990, "currency": "USD"},
		"orders": {"1001": {"symbol": "EURUSD", "type": "buy", "lots": 0.01, "open_price": 1.2,
		"SL": 0, "TP": 0, "magic": 0, "comment": ""}}}`

	snap, err := DecodeOrders([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.Account.Balance())
	require.Contains(t, snap.Orders, int64(1001))
	assert.Equal(t, int64(1001), snap.Orders[1001].Ticket)
	assert.Equal(t, broker.Buy, snap.Orders[1001].Type)
}

func TestDecodeOrdersMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"account_info": {}, "orders": {"1001": {"symbol": "EUR`},
		{"bad ticket", `{"orders": {"abc": {}}}`},
		{"bad order body", `{"orders": {"1": {"lots": "many"}}}`},
		{"not an object", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrders([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeOrdersEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"orders": {}}`, `{}`, `{"account_info": {"balance": 1}}`} {
		snap, err := DecodeOrders([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, snap.Orders, raw)
		assert.NotNil(t, snap.Orders, raw)
		assert.NotNil(t, snap.Account, raw)
	}
}

func TestDecodeMessages(t *testing.T) {
	t.Parallel()

	raw := `{"1700000000123": {"type": "INFO", "message": "hello"},
		"1700000000456": {"type": "ERROR", "error_type": "OPEN_ORDER", "description": "requote"},
		"junk": {"type": "INFO"},
		"1700000000789": null}`

	msgs, err := DecodeMessages([]byte(raw))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	info := msgs[1700000000123]
	assert.Equal(t, int64(1700000000123), info.Millis)
	assert.False(t, info.IsError())
	assert.Equal(t, "hello", info.Text())

	e := msgs[1700000000456]
	assert.True(t, e.IsError())
	assert.Equal(t, "OPEN_ORDER", e.ErrorType)
	assert.Equal(t, "requote", e.Text())

	_, err = DecodeMessages([]byte(`{"1":`))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = DecodeMessages([]byte(`null`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMarketAndBars(t *testing.T) {
	t.Parallel()

	ticks, err := DecodeMarketData([]byte(`{"EURUSD": {"bid": 1.1, "ask": 1.2}}`))
	require.NoError(t, err)
	assert.Equal(t, market.Tick{Symbol: "EURUSD", Bid: 1.1, Ask: 1.2}, ticks["EURUSD"])

	bars, err := DecodeBarData([]byte(`{"EURUSD_M1": {"time": "2021.01.14 08:47", "open": 1, "high": 2,
		"low": 0.5, "close": 1.5, "tick_volume": 42}, "NOSEP": {"time": "x"}}`))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	b := bars["EURUSD_M1"]
	assert.Equal(t, "EURUSD", b.Symbol)
	assert.Equal(t, "M1", b.Timeframe)
	assert.Equal(t, int64(42), b.TickVolume)

	_, err = DecodeBarData([]byte(`{"EURUSD_M1": {"open": "x"}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeHistoric(t *testing.T) {
	t.Parallel()

	data, err := DecodeHistoricData([]byte(`{"EURUSD_D1": {"2021.01.01": {"open": 1}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"2021.01.01": {"open": 1}}`, string(data["EURUSD_D1"]))

	trades, err := DecodeHistoricTrades([]byte(`{"1": {"symbol": "EURUSD"}, "2": {"symbol": "GBPUSD"}}`))
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	_, err = DecodeHistoricTrades([]byte(`"text"`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeDecodeFiles(t *testing.T) {
	t.Parallel()

	snap := OrdersSnapshot{
		Account: broker.Account{"balance": 10.0},
		Orders: map[int64]broker.Order{
			7: {Symbol: "EURUSD", Type: broker.Sell, Lots: 0.1, Magic: 3},
		},
	}
	raw, err := EncodeOrders(snap)
	require.NoError(t, err)
	back, err := DecodeOrders(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), back.Orders[7].Ticket)
	assert.Equal(t, broker.Sell, back.Orders[7].Type)
	assert.Equal(t, 10.0, back.Account.Balance())

	raw, err = EncodeBarData(map[string]market.Bar{"EURUSD_M5": {Time: "t", Close: 2}})
	require.NoError(t, err)
	bars, err := DecodeBarData(raw)
	require.NoError(t, err)
	assert.Equal(t, "M5", bars["EURUSD_M5"].Timeframe)
	assert.Equal(t, 2.0, bars["EURUSD_M5"].Close)
}
