// Package server exposes a running bridge over HTTP: read views of the
// terminal state, command submission, a websocket event stream and the
// Prometheus metrics endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/market"
)

// Bridge is the part of *dwx.Client the server reads and drives.
type Bridge interface {
	Started() bool
	Account() broker.Account
	OpenOrders() map[int64]broker.Order
	MarketData() map[string]market.Tick
	BarData() map[string]market.Bar
	LastMessageMillis() int64
	Send(ctx context.Context, c command.Command) (dispatch.Receipt, error)
}

type Server struct {
	bridge Bridge
	hub    *Hub
	log    logrus.FieldLogger
	engine *gin.Engine
}

func New(bridge Bridge, hub *Hub, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if hub == nil {
		hub = NewHub(log)
	}

	s := &Server{
		bridge: bridge,
		hub:    hub,
		log:    log,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLog())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/account", s.getAccount)
	api.GET("/orders", s.getOrders)
	api.GET("/market", s.getMarket)
	api.GET("/bars", s.getBars)
	api.POST("/commands", s.postCommand)

	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("http request")
	}
}

// Handler returns the routed engine, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe runs the hub and the HTTP server until ctx is done, then
// shuts both down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	srv := &http.Server{Addr: addr, Handler: s.engine}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
