package config

// Default refresh parameters. These match the wait defaults in
// internal/tableau and exist here as the config-file layer's baseline.
const (
	defaultLogLevel     = "info"
	defaultPollInterval = "30s"
	defaultTimeout      = "1h"
	defaultPollRetries  = 3
)

// DefaultConfig returns a Config populated with all default values.
// Loading a config file overlays onto this, so absent keys keep defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Defaults: DefaultsConfig{
			PollInterval: defaultPollInterval,
			Timeout:      defaultTimeout,
			PollRetries:  defaultPollRetries,
		},
	}
}
