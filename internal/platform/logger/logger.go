// Package logger builds the structured logger shared across the gateway.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON-structured logger writing to stdout at the given level.
// level is one of "debug", "info", "warn", "error"; unrecognized values fall
// back to "info".
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
