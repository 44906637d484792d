package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// #region logger
// NewLogger builds a structured logger. Level is debug, info, warn or error;
// format is "json" or "text". Output defaults to stderr.
func NewLogger(level, format string, out io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Component tags a logger with the subsystem emitting the line.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

// #endregion logger
