package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/dwxconnect/dwx"
	"github.com/rustyeddy/dwxconnect/journal"
	"github.com/rustyeddy/dwxconnect/market"
)

// Config is the complete bridge configuration.
type Config struct {
	MetatraderDir      string `json:"metatrader_dir" yaml:"metatrader_dir"`
	SleepDelay         string `json:"sleep_delay" yaml:"sleep_delay"`             // e.g. "5ms"
	MaxRetryCommand    string `json:"max_retry_command" yaml:"max_retry_command"` // e.g. "10s"
	NumCommandFiles    int    `json:"num_command_files" yaml:"num_command_files"`
	LoadOrdersFromFile bool   `json:"load_orders_from_file" yaml:"load_orders_from_file"`
	Verbose            bool   `json:"verbose" yaml:"verbose"`
	NumberedCommands   bool   `json:"numbered_commands" yaml:"numbered_commands"`

	Symbols          []string              `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	BarSubscriptions []market.Subscription `json:"bar_subscriptions,omitempty" yaml:"bar_subscriptions,omitempty"`

	Journal journal.Config `json:"journal" yaml:"journal"`
	Server  ServerConfig   `json:"server" yaml:"server"`
	Log     LogConfig      `json:"log" yaml:"log"`
}

// ServerConfig controls the optional HTTP bridge.
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // logrus level name
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file, trying YAML first and then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MetatraderDir == "" {
		return fmt.Errorf("metatrader_dir is required")
	}
	if d, err := parsePositive("sleep_delay", c.SleepDelay); err != nil {
		return err
	} else if d > time.Second {
		return fmt.Errorf("sleep_delay must be at most 1s")
	}
	if _, err := parsePositive("max_retry_command", c.MaxRetryCommand); err != nil {
		return err
	}
	if c.NumCommandFiles <= 0 {
		return fmt.Errorf("num_command_files must be positive")
	}
	for i, s := range c.BarSubscriptions {
		if s.Symbol == "" || s.Timeframe == "" {
			return fmt.Errorf("bar_subscriptions[%d]: symbol and timeframe are required", i)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.MessagesFile == "" || c.Journal.EquityFile == "" || c.Journal.CommandsFile == "" {
			return fmt.Errorf("journal messages_file, equity_file and commands_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

func parsePositive(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}

// Options converts the configuration into client options. Call Validate
// first; unparsable durations fall back to the defaults.
func (c *Config) Options() dwx.Options {
	opts := dwx.DefaultOptions()
	opts.MetatraderDir = c.MetatraderDir
	if d, err := time.ParseDuration(c.SleepDelay); err == nil {
		opts.SleepDelay = d
	}
	if d, err := time.ParseDuration(c.MaxRetryCommand); err == nil {
		opts.MaxRetryCommand = d
	}
	opts.NumCommandFiles = c.NumCommandFiles
	opts.LoadOrdersFromFile = c.LoadOrdersFromFile
	opts.Verbose = c.Verbose
	opts.NumberedCommands = c.NumberedCommands
	return opts
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		MetatraderDir:      ".",
		SleepDelay:         "5ms",
		MaxRetryCommand:    "10s",
		NumCommandFiles:    50,
		LoadOrdersFromFile: true,
		Verbose:            true,
		Journal: journal.Config{
			Type: "none",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
