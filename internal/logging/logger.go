package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugLogPath is where log output goes while the dashboard owns the
// terminal.
const DebugLogPath = "foosmic-debug.log"

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger returns a text logger writing to w, or a JSON logger when
// GO_ENV is "production".
func NewLogger(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup builds the process logger and installs it as the slog default.
// With tui set, output goes to DebugLogPath so it doesn't tear the
// dashboard; otherwise to stderr. The returned func closes the log file.
func Setup(level string, tui bool) (*slog.Logger, func() error, error) {
	var (
		w       io.Writer = os.Stderr
		closeFn           = func() error { return nil }
	)
	if tui {
		f, err := os.Create(DebugLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create debug log: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	logger := NewLogger(w, level)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
