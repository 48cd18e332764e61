// Package logging builds the diagnostic logger. Logs go to stderr so they
// never mix with rendered replies on stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog level. Unknown names fall back to
// warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New returns a text logger writing to w. debug forces the debug level, as
// does a non-empty DEBUG environment variable.
func New(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := ParseLevel(level)
	if debug || os.Getenv("DEBUG") != "" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Setup installs the logger as the slog default and returns it.
func Setup(level string, debug bool) *slog.Logger {
	logger := New(os.Stderr, level, debug)
	slog.SetDefault(logger)
	return logger
}
