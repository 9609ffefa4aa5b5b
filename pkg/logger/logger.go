package logger

import (
	"io"
	"log/slog"
)

// Component scopes base to a named component. A nil base yields a logger
// that discards everything, so adapters can be built without logging.
func Component(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return base.With("component", component)
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log
}
