// Package logging builds the structured logger shared by the API and the
// notification worker.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a slog.Logger writing to stdout.  Format "text" selects the
// human-readable handler; anything else, or an empty format in production,
// selects JSON.  Every record carries the service name and environment.
func New(service, env, level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, env, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service, env, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if format == "" {
		format = "json"
		if !strings.HasPrefix(strings.ToLower(env), "prod") {
			format = "text"
		}
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("env", env),
	}))
}

// parseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
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
