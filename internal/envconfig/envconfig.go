// Package envconfig loads manager configuration from a .env file and the
// process environment, the way a small deployable client (a CLI, a sidecar)
// picks up its settings without a dedicated flags package.
package envconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the given .env files into the process environment. Callers
// typically ignore a missing-file error and fall back to whatever is
// already set in the environment.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the environment variable named by key, or fallback if
// unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the integer value of key, or fallback if unset, empty,
// or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value of key (parsed with
// time.ParseDuration, e.g. "3s"), or fallback if unset or invalid.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of key, or fallback if unset or
// invalid.
func GetEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// ManagerConfig is the set of manager knobs a deployment typically wants to
// override without recompiling.
type ManagerConfig struct {
	LogLevel  string
	LogFormat string

	// ReconnectEnabled opts into automatic reconnection on connection loss.
	ReconnectEnabled bool
	// ReconnectMinInterval bounds how often a reconnect attempt may fire.
	ReconnectMinInterval time.Duration
	// ReconnectMaxAttempts caps total attempts before giving up; 0 means
	// unbounded.
	ReconnectMaxAttempts int

	// MetricsAddr, if non-empty, is the address the Prometheus handler
	// listens on (e.g. ":9090").
	MetricsAddr string
}

// LoadManagerConfig reads ManagerConfig from the environment, applying the
// package defaults for anything unset.
func LoadManagerConfig() ManagerConfig {
	return ManagerConfig{
		LogLevel:              GetEnv("MOQ_LOG_LEVEL", "info"),
		LogFormat:             GetEnv("MOQ_LOG_FORMAT", "json"),
		ReconnectEnabled:      GetEnvBool("MOQ_RECONNECT_ENABLED", false),
		ReconnectMinInterval:  GetEnvDuration("MOQ_RECONNECT_MIN_INTERVAL", 3*time.Second),
		ReconnectMaxAttempts:  GetEnvInt("MOQ_RECONNECT_MAX_ATTEMPTS", 0),
		MetricsAddr:           GetEnv("MOQ_METRICS_ADDR", ""),
	}
}
