package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
)

// The parsers below read commands back the way the terminal does. The
// simulator uses them; they also pin down the positional layout.

func argc(c Command, want int) error {
	if len(c.Args) != want {
		return fmt.Errorf("%s: need %d args, got %d", c.Name, want, len(c.Args))
	}
	return nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, s, err)
	}
	return f, nil
}

func parseInt(name, s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, s, err)
	}
	return i, nil
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func ParseOpenOrder(c Command) (req broker.OrderRequest, err error) {
	if err := argc(c, 9); err != nil {
		return req, err
	}
	a := c.Args
	req.Symbol = a[0]
	if req.Type, err = broker.ParseOrderType(a[1]); err != nil {
		return req, err
	}
	if req.Lots, err = parseFloat("lots", a[2]); err != nil {
		return req, err
	}
	if req.Price, err = parseFloat("price", a[3]); err != nil {
		return req, err
	}
	if req.StopLoss, err = parseFloat("stopLoss", a[4]); err != nil {
		return req, err
	}
	if req.TakeProfit, err = parseFloat("takeProfit", a[5]); err != nil {
		return req, err
	}
	if req.Magic, err = parseInt("magic", a[6]); err != nil {
		return req, err
	}
	req.Comment = a[7]
	exp, err := parseInt("expiration", a[8])
	if err != nil {
		return req, err
	}
	req.Expiration = unixOrZero(exp)
	return req, nil
}

func ParseModifyOrder(c Command) (req broker.ModifyRequest, err error) {
	if err := argc(c, 6); err != nil {
		return req, err
	}
	a := c.Args
	if req.Ticket, err = parseInt("ticket", a[0]); err != nil {
		return req, err
	}
	if req.Lots, err = parseFloat("lots", a[1]); err != nil {
		return req, err
	}
	if req.Price, err = parseFloat("price", a[2]); err != nil {
		return req, err
	}
	if req.StopLoss, err = parseFloat("stopLoss", a[3]); err != nil {
		return req, err
	}
	if req.TakeProfit, err = parseFloat("takeProfit", a[4]); err != nil {
		return req, err
	}
	exp, err := parseInt("expiration", a[5])
	if err != nil {
		return req, err
	}
	req.Expiration = unixOrZero(exp)
	return req, nil
}

func ParseCloseOrder(c Command) (ticket int64, lots float64, err error) {
	if err := argc(c, 2); err != nil {
		return 0, 0, err
	}
	if ticket, err = parseInt("ticket", c.Args[0]); err != nil {
		return 0, 0, err
	}
	if lots, err = parseFloat("lots", c.Args[1]); err != nil {
		return 0, 0, err
	}
	return ticket, lots, nil
}
