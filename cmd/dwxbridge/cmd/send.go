package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/wire"
)

var sendCmd = &cobra.Command{
	Use:   "send <COMMAND> [args...]",
	Short: "Write one command into a free command slot",
	Long: `Write a single command without starting the pollers. Arguments are
passed through as the comma separated payload.

Examples:
  dwxbridge send -d ~/MT4/MQL4/Files SUBSCRIBE_SYMBOLS EURUSD GBPUSD
  dwxbridge send -d ~/MT4/MQL4/Files OPEN_ORDER EURUSD buy 0.1 0 0 0 0 "" 0
  dwxbridge send -d ~/MT4/MQL4/Files CLOSE_ALL_ORDERS`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var sendDir string

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendDir, "dir", "d", "", "MetaTrader MQL Files directory, overrides metatrader_dir")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sendDir != "" {
		cfg.MetatraderDir = sendDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	if !command.Known(args[0]) {
		return fmt.Errorf("unknown command %q", args[0])
	}
	c := command.New(args[0], args[1:]...)

	paths := wire.NewPaths(cfg.MetatraderDir)
	if _, err := os.Stat(paths.Root); err != nil {
		return fmt.Errorf("%s: %w", paths.Root, err)
	}

	opts := cfg.Options()
	d := dispatch.New(paths, dispatch.Config{
		Slots:    opts.NumCommandFiles,
		Interval: opts.SleepDelay,
		MaxRetry: opts.MaxRetryCommand,
	}, log)

	r, err := d.Send(cmd.Context(), c)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
