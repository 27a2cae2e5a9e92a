// Package logging configures log/slog for the console and carries per-request
// fields (chi request id, console session) through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// sessionIDLen is how much of a session id is logged. The full id is the
// cookie value and stays out of the logs.
const sessionIDLen = 8

type sessionKey struct{}

// Setup installs the default logger writing to stdout and returns it.
//
// level is debug, info, warn or error (default info). format is text or json
// (default text).
func Setup(level, format string) *slog.Logger {
	return SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup writing to w.
func SetupWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler).With("service", "catalog-console")
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithSession returns ctx tagged with a console session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// FromContext returns the default logger with request_id and session added
// when ctx carries them.
//
//	logging.FromContext(r.Context()).Info("opening detail", "product_id", id)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		logger = logger.With("session", shortID(id))
	}
	return logger
}

// WithFields is FromContext plus args, for loggers that follow one operation.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

func shortID(id string) string {
	if len(id) > sessionIDLen {
		return id[:sessionIDLen]
	}
	return id
}
