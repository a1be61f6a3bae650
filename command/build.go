package command

import (
	"strconv"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/market"
	"github.com/shopspring/decimal"
)

// num renders a price or lot size as its shortest exact decimal text, so
// 0.1 goes out as "0.1" and not "0.1000000000000000055511151231257827".
func num(f float64) string {
	return decimal.NewFromFloat(f).String()
}

func integer(i int64) string {
	return strconv.FormatInt(i, 10)
}

func SubscribeSymbols(symbols ...string) Command {
	return New(CmdSubscribeSymbols, symbols...)
}

// SubscribeSymbolsBarData flattens the subscriptions to symbol,timeframe,symbol,timeframe,...
func SubscribeSymbolsBarData(subs ...market.Subscription) Command {
	args := make([]string, 0, 2*len(subs))
	for _, s := range subs {
		args = append(args, s.Symbol, s.Timeframe)
	}
	return New(CmdSubscribeSymbolsBarData, args...)
}

// GetHistoricData requests bars between start and end, sent as unix seconds.
func GetHistoricData(symbol, timeframe string, start, end time.Time) Command {
	return New(CmdGetHistoricData, symbol, timeframe, integer(start.Unix()), integer(end.Unix()))
}

func GetHistoricTrades(lookbackDays int) Command {
	return New(CmdGetHistoricTrades, strconv.Itoa(lookbackDays))
}

// OpenOrder args: symbol,type,lots,price,stop_loss,take_profit,magic,comment,expiration.
func OpenOrder(req broker.OrderRequest) Command {
	return New(CmdOpenOrder,
		req.Symbol,
		string(req.Type),
		num(req.Lots),
		num(req.Price),
		num(req.StopLoss),
		num(req.TakeProfit),
		integer(req.Magic),
		req.Comment,
		integer(broker.UnixOrZero(req.Expiration)),
	)
}

// ModifyOrder args: ticket,lots,price,stop_loss,take_profit,expiration.
func ModifyOrder(req broker.ModifyRequest) Command {
	return New(CmdModifyOrder,
		integer(req.Ticket),
		num(req.Lots),
		num(req.Price),
		num(req.StopLoss),
		num(req.TakeProfit),
		integer(broker.UnixOrZero(req.Expiration)),
	)
}

// CloseOrder closes lots of an order; lots 0 closes all of it.
func CloseOrder(ticket int64, lots float64) Command {
	return New(CmdCloseOrder, integer(ticket), num(lots))
}

func CloseAllOrders() Command {
	return New(CmdCloseAllOrders)
}

func CloseOrdersBySymbol(symbol string) Command {
	return New(CmdCloseOrdersBySymbol, symbol)
}

func CloseOrdersByMagic(magic int64) Command {
	return New(CmdCloseOrdersByMagic, integer(magic))
}

// ResetCommandIDs tells the terminal to forget the ids it has seen; used
// with numbered framing when the bridge restarts but the terminal does not.
func ResetCommandIDs() Command {
	return New(CmdResetCommandIDs)
}
