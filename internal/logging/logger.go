// Package logging builds the leveled slog.Logger used across the simulator.
// Three verbosities: info for normal operation, debug for build/run
// summaries, trace for per-step detail.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and gates per-step diagnostics,
// which are far too chatty for debug output.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name ("info", "debug", "trace"; any case) to its
// slog.Level. Anything unrecognized falls back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text-format logger writing to w at the named level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTraceLevel,
	})
	return slog.New(handler)
}

// labelTraceLevel renames the custom trace level in output; slog would
// otherwise print it as "DEBUG-4".
func labelTraceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
