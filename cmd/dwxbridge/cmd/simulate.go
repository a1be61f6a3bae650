package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/dwxconnect/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated terminal on a directory",
	Long: `Stand in for MetaTrader: consume command files from <dir>/DWX, keep
orders and an account, and write the orders, messages and market data files
the EA would write. With --ticks, replay a CSV of time,symbol,bid,ask rows
(optionally followed by a command and its arguments) before idling.

Example:
  dwxbridge simulate -d /tmp/mt --ticks eurusd.csv --pace 100ms`,
	RunE: runSimulate,
}

var (
	simDir      string
	simTicks    string
	simPace     time.Duration
	simInterval time.Duration
	simBalance  float64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simDir, "dir", "d", "", "directory to create DWX/ in (required)")
	simulateCmd.Flags().StringVar(&simTicks, "ticks", "", "tick CSV to replay")
	simulateCmd.Flags().DurationVar(&simPace, "pace", 0, "pause between replayed rows")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 5*time.Millisecond, "command slot scan interval")
	simulateCmd.Flags().Float64Var(&simBalance, "balance", 10000, "starting balance")
	simulateCmd.MarkFlagRequired("dir")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scfg := sim.DefaultConfig()
	scfg.Balance = simBalance
	scfg.Slots = cfg.NumCommandFiles

	term, err := sim.NewTerminal(simDir, scfg, log)
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	log.WithField("dir", term.Paths().Root).Info("simulated terminal running")

	if simTicks != "" {
		n, err := sim.ReplayFile(ctx, simTicks, term, sim.ReplayOptions{Pace: simPace, Step: true})
		if err != nil {
			return fmt.Errorf("replay %s: %w", simTicks, err)
		}
		log.WithField("rows", n).Info("replay finished")
	}

	return term.Run(ctx, simInterval)
}
