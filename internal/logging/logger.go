// Package logging configures log/slog and carries request-scoped loggers.
//
// Loggers returned by FromContext include the chi request id when the
// context came through middleware.RequestID, plus any fields attached
// earlier with NewContext.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger, writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "warning":
		return slog.LevelWarn
	case "debug", "info", "warn", "error":
		// slog parses its level names case-insensitively
		_ = l.UnmarshalText([]byte(level))
		return l
	default:
		return slog.LevelInfo
	}
}

type loggerKey struct{}

// NewContext returns a child of ctx whose FromContext logger carries args.
func NewContext(ctx context.Context, args ...any) context.Context {
	return context.WithValue(ctx, loggerKey{}, FromContext(ctx).With(args...))
}

// FromContext returns the logger for ctx: one stored by NewContext, or the
// default logger tagged with the chi request id.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("listing entries", "owner", owner)
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns the context logger with additional fields, for
// multi-step operations:
//
//	logger := logging.WithFields(ctx, "import_id", id, "owner", owner)
//	logger.Info("import started", "sheet", sheet)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
