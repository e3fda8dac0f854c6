// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for tabrefresh. It supports an
// override chain (defaults -> config file -> environment -> CLI flags)
// and resolves named connections to decoded connection descriptors.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Logging     LoggingConfig               `toml:"logging"`
	Defaults    DefaultsConfig              `toml:"defaults"`
	History     HistoryConfig               `toml:"history"`
	Connections map[string]ConnectionConfig `toml:"connections"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"` // debug, info, warn, error
}

// DefaultsConfig holds refresh parameters applied when the corresponding
// CLI flag is not given. Durations are strings ("30s", "1h") parsed during
// validation.
type DefaultsConfig struct {
	Connection   string `toml:"connection"` // name of the default connection
	PollInterval string `toml:"poll_interval"`
	Timeout      string `toml:"timeout"`
	PollRetries  int    `toml:"poll_retries"`
}

// HistoryConfig controls the local run-history database.
type HistoryConfig struct {
	Path     string `toml:"path"` // empty = platform default
	Disabled bool   `toml:"disabled"`
}

// ConnectionConfig is a named connection in the config file. Exactly one
// of token_secret and token_secret_env must be set; the env variant keeps
// secrets out of the file for shared machines and CI.
type ConnectionConfig struct {
	ServerURL      string `toml:"server_url"`
	Site           string `toml:"site"`
	TokenName      string `toml:"token_name"`
	TokenSecret    string `toml:"token_secret"`
	TokenSecretEnv string `toml:"token_secret_env"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	Connection string // --conn flag: connection name or raw descriptor URI
}
