package server

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/dwx"
)

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"started":             s.bridge.Started(),
		"connections":         s.hub.Connections(),
		"last_message_millis": s.bridge.LastMessageMillis(),
	})
}

func (s *Server) getAccount(c *gin.Context) {
	acct := s.bridge.Account()
	if acct == nil {
		acct = broker.Account{}
	}
	c.JSON(http.StatusOK, acct)
}

type orderView struct {
	Ticket int64 `json:"ticket"`
	broker.Order
}

// getOrders lists open orders by ticket.
func (s *Server) getOrders(c *gin.Context) {
	orders := s.bridge.OpenOrders()
	tickets := make([]int64, 0, len(orders))
	for t := range orders {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })

	out := make([]orderView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, orderView{Ticket: t, Order: orders[t]})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getMarket(c *gin.Context) {
	c.JSON(http.StatusOK, s.bridge.MarketData())
}

func (s *Server) getBars(c *gin.Context) {
	c.JSON(http.StatusOK, s.bridge.BarData())
}

type commandRequest struct {
	Name string   `json:"name" binding:"required"`
	Args []string `json:"args"`
}

// postCommand writes one command. 202 means it reached a slot, not that
// the terminal executed it.
func (s *Server) postCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !command.Known(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command " + req.Name})
		return
	}

	cmd := command.New(req.Name, req.Args...)
	if err := validate(cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := s.bridge.Send(c.Request.Context(), cmd)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, r)
	case errors.Is(err, dispatch.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// validate checks argument shape for the order commands.
func validate(c command.Command) error {
	var err error
	switch c.Name {
	case command.CmdOpenOrder:
		_, err = command.ParseOpenOrder(c)
	case command.CmdModifyOrder:
		_, err = command.ParseModifyOrder(c)
	case command.CmdCloseOrder:
		_, _, err = command.ParseCloseOrder(c)
	}
	return err
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}

	cl := &client{hub: s.hub, conn: conn, send: make(chan dwx.Event, 256)}
	select {
	case s.hub.register <- cl:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}
