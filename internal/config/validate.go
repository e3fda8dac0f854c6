package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation bounds. A sub-second poll interval hammers the jobs endpoint
// for no benefit; the server updates job progress far less often.
const (
	minPollInterval = 1 * time.Second
	maxPollRetries  = 10
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateDefaults(&cfg.Defaults)...)

	for name, conn := range cfg.Connections {
		errs = append(errs, validateConnection(name, conn)...)
	}

	return errors.Join(errs...)
}

func validateLogging(logging *LoggingConfig) []error {
	switch logging.LogLevel {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return []error{fmt.Errorf("logging.log_level: unknown level %q", logging.LogLevel)}
	}
}

func validateDefaults(defaults *DefaultsConfig) []error {
	var errs []error

	if defaults.PollInterval != "" {
		d, err := time.ParseDuration(defaults.PollInterval)
		if err != nil {
			errs = append(errs, fmt.Errorf("defaults.poll_interval: %w", err))
		} else if d < minPollInterval {
			errs = append(errs, fmt.Errorf("defaults.poll_interval: %s is below the %s minimum", d, minPollInterval))
		}
	}

	if defaults.Timeout != "" {
		if _, err := time.ParseDuration(defaults.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("defaults.timeout: %w", err))
		}
	}

	if defaults.PollRetries < 0 || defaults.PollRetries > maxPollRetries {
		errs = append(errs, fmt.Errorf("defaults.poll_retries: %d is outside 0-%d", defaults.PollRetries, maxPollRetries))
	}

	return errs
}

func validateConnection(name string, conn ConnectionConfig) []error {
	var errs []error

	prefix := fmt.Sprintf("connections.%s", name)

	if conn.ServerURL == "" {
		errs = append(errs, fmt.Errorf("%s: server_url is required", prefix))
	} else if !strings.HasPrefix(conn.ServerURL, "http://") && !strings.HasPrefix(conn.ServerURL, "https://") {
		errs = append(errs, fmt.Errorf("%s: server_url must start with http:// or https://", prefix))
	}

	if conn.TokenName == "" {
		errs = append(errs, fmt.Errorf("%s: token_name is required", prefix))
	}

	if conn.TokenSecret == "" && conn.TokenSecretEnv == "" {
		errs = append(errs, fmt.Errorf("%s: one of token_secret or token_secret_env is required", prefix))
	}

	if conn.TokenSecret != "" && conn.TokenSecretEnv != "" {
		errs = append(errs, fmt.Errorf("%s: token_secret and token_secret_env are mutually exclusive", prefix))
	}

	return errs
}
