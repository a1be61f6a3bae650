package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/dwx"
	"github.com/rustyeddy/dwxconnect/journal"
	"github.com/rustyeddy/dwxconnect/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the terminal and stream its events",
	Long: `Open the DWX directory, restore stored orders and messages, subscribe
to the configured symbols and poll until interrupted. Messages, equity and
sent commands go to the configured journal; with server.enabled the HTTP
bridge serves REST views, /ws and /metrics.

Example:
  dwxbridge run -c bridge.yaml`,
	RunE: runRun,
}

var runDir string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "MetaTrader MQL Files directory, overrides metatrader_dir")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runDir != "" {
		cfg.MetatraderDir = runDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	hub := server.NewHub(log)
	sinks := dwx.MultiSink{logSink(log)}
	if cfg.Server.Enabled {
		sinks = append(sinks, hub)
	}
	jsink := journal.NewSink(j, sinks, log)

	opts := cfg.Options()
	opts.OnSend = jsink.OnSend
	client, err := dwx.New(opts, jsink, log)
	if err != nil {
		return err
	}
	jsink.Attach(client)

	if err := client.Open(ctx); err != nil {
		return fmt.Errorf("open client: %w", err)
	}
	defer client.Close()
	client.Start()

	if len(cfg.Symbols) > 0 {
		if err := client.SubscribeSymbols(ctx, cfg.Symbols...); err != nil {
			return fmt.Errorf("subscribe symbols: %w", err)
		}
	}
	if len(cfg.BarSubscriptions) > 0 {
		if err := client.SubscribeSymbolsBarData(ctx, cfg.BarSubscriptions...); err != nil {
			return fmt.Errorf("subscribe bar data: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"dir":     cfg.MetatraderDir,
		"journal": cfg.Journal.Type,
		"server":  cfg.Server.Enabled,
	}).Info("bridge running")

	if cfg.Server.Enabled {
		srv := server.New(client, hub, log)
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// logSink reports terminal messages and order set changes on the log.
func logSink(log logrus.FieldLogger) dwx.EventSink {
	return dwx.FuncSink{
		Message: func(m broker.Message) {
			entry := log.WithField("millis", m.Millis)
			if m.IsError() {
				entry.WithField("error_type", m.ErrorType).Warn(m.Description)
				return
			}
			entry.Info(m.Message)
		},
		Order: func() {
			log.Debug("open orders changed")
		},
	}
}
