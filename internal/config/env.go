package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig     = "TABREFRESH_CONFIG"
	EnvConnection = "TABREFRESH_CONNECTION"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // TABREFRESH_CONFIG: override config file path
	Connection string // TABREFRESH_CONNECTION: connection name or descriptor URI
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Connection: os.Getenv(EnvConnection),
	}
}
