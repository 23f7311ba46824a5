// Package logging builds the structured slog.Logger used across the client:
// sessions, the manager, and its workers all log through a logger built
// here rather than reaching for log.Printf.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a structured logger at the given level and format.
// level: "trace", "debug", "info", "warn", "error" (default "info"); trace
// maps onto slog's debug level offset by one step, since slog has no
// dedicated trace level.
// format: "json" or "text" (default "json").
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name onto an slog.Level, defaulting to Info for
// an unrecognized or empty name.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return slog.LevelDebug - 4
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
