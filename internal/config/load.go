package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file and validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. Supports zero-config use where
// the connection comes entirely from a descriptor URI.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolved is the effective configuration after the override chain:
// defaults -> config file -> environment -> CLI flags. Duration strings
// are parsed; the duration defaults here are guaranteed valid by Validate.
type Resolved struct {
	LogLevel        string
	Connection      string // connection name or descriptor URI
	PollInterval    time.Duration
	Timeout         time.Duration
	PollRetries     int
	HistoryPath     string
	HistoryDisabled bool

	cfg *Config
}

// Resolve loads configuration and applies the override chain. CLI flags
// always win over environment, which wins over the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	connection := cfg.Defaults.Connection
	if env.Connection != "" {
		connection = env.Connection
	}

	if cli.Connection != "" {
		connection = cli.Connection
	}

	pollInterval, err := time.ParseDuration(cfg.Defaults.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("parsing defaults.poll_interval: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Defaults.Timeout)
	if err != nil {
		return nil, fmt.Errorf("parsing defaults.timeout: %w", err)
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = DefaultHistoryPath()
	}

	return &Resolved{
		LogLevel:        cfg.Logging.LogLevel,
		Connection:      connection,
		PollInterval:    pollInterval,
		Timeout:         timeout,
		PollRetries:     cfg.Defaults.PollRetries,
		HistoryPath:     historyPath,
		HistoryDisabled: cfg.History.Disabled,
		cfg:             cfg,
	}, nil
}
