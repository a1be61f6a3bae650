package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/dwxconnect/config"
)

var rootCmd = &cobra.Command{
	Use:   "dwxbridge",
	Short: "File-based bridge to a MetaTrader terminal running the DWX server EA",
	Long: `dwxbridge talks to a MetaTrader terminal through the DWX files in its
MQL Files directory: it polls the files the EA writes (orders, messages,
market data, bars, historic data) and writes commands into rotating
command files.

Commands:
  run       - poll the terminal, journal events and optionally serve HTTP
  send      - write a single command
  config    - generate or validate configuration files
  journal   - query the SQLite journal
  simulate  - run a simulated terminal on a directory`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// loadConfig reads --config, or returns defaults when no file is given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the config, with flag overrides.
func newLogger(lc config.LogConfig) (*logrus.Logger, error) {
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)

	if lc.Level != "" {
		lvl, err := logrus.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		log.SetLevel(lvl)
	}

	switch lc.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.New("log format must be text or json")
	}
	return log, nil
}
