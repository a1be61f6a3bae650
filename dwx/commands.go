package dwx

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/market"
)

// Send writes any command to a free slot. It fails with
// dispatch.ErrTimeout when no slot frees up in time.
func (c *Client) Send(ctx context.Context, cmd command.Command) (dispatch.Receipt, error) {
	return c.dispatch.Send(ctx, cmd)
}

func (c *Client) send(ctx context.Context, cmd command.Command) error {
	_, err := c.dispatch.Send(ctx, cmd)
	return err
}

// SubscribeSymbols asks for ticks on symbols. Each call replaces the
// terminal's previous subscription.
func (c *Client) SubscribeSymbols(ctx context.Context, symbols ...string) error {
	return c.send(ctx, command.SubscribeSymbols(symbols...))
}

// SubscribeSymbolsBarData asks for bar updates. Each call replaces the
// terminal's previous subscription.
func (c *Client) SubscribeSymbolsBarData(ctx context.Context, subs ...market.Subscription) error {
	return c.send(ctx, command.SubscribeSymbolsBarData(subs...))
}

// GetHistoricData requests bars between start and end. The answer arrives
// through OnHistoricData.
func (c *Client) GetHistoricData(ctx context.Context, symbol, timeframe string, start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("get historic data: end %s not after start %s", end, start)
	}
	return c.send(ctx, command.GetHistoricData(symbol, timeframe, start, end))
}

// GetHistoricTrades requests the trade history of the last lookbackDays.
func (c *Client) GetHistoricTrades(ctx context.Context, lookbackDays int) error {
	if lookbackDays <= 0 {
		return fmt.Errorf("get historic trades: lookback must be positive, got %d", lookbackDays)
	}
	return c.send(ctx, command.GetHistoricTrades(lookbackDays))
}

func (c *Client) OpenOrder(ctx context.Context, req broker.OrderRequest) error {
	if !req.Type.Valid() {
		return fmt.Errorf("open order: unknown order type %q", req.Type)
	}
	if req.Symbol == "" {
		return fmt.Errorf("open order: symbol is required")
	}
	if req.Lots <= 0 {
		return fmt.Errorf("open order: lots must be positive, got %v", req.Lots)
	}
	return c.send(ctx, command.OpenOrder(req))
}

func (c *Client) ModifyOrder(ctx context.Context, req broker.ModifyRequest) error {
	return c.send(ctx, command.ModifyOrder(req))
}

// CloseOrder closes lots of ticket; lots 0 closes the whole position.
func (c *Client) CloseOrder(ctx context.Context, ticket int64, lots float64) error {
	if lots < 0 {
		return fmt.Errorf("close order: negative lots %v", lots)
	}
	return c.send(ctx, command.CloseOrder(ticket, lots))
}

func (c *Client) CloseAllOrders(ctx context.Context) error {
	return c.send(ctx, command.CloseAllOrders())
}

func (c *Client) CloseOrdersBySymbol(ctx context.Context, symbol string) error {
	return c.send(ctx, command.CloseOrdersBySymbol(symbol))
}

func (c *Client) CloseOrdersByMagic(ctx context.Context, magic int64) error {
	return c.send(ctx, command.CloseOrdersByMagic(magic))
}

// ResetCommandIDs restarts command numbering on both sides.
func (c *Client) ResetCommandIDs(ctx context.Context) error {
	_, err := c.dispatch.ResetIDs(ctx)
	return err
}
