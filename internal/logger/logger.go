// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and carries a
// per-cycle ID through context.Context so every line of one run can be
// correlated.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey string

const cycleIDKey ctxKey = "cycle_id"

// New builds a JSON logger writing to w with the service name embedded.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(
		slog.String("service", service),
	)
}

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout and becomes the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	logger := New(os.Stdout, service, level)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// WithCycleID stores a cycle ID in the context for downstream propagation.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleID extracts the cycle ID from context. Returns "" if not set.
func CycleID(ctx context.Context) string {
	if v, ok := ctx.Value(cycleIDKey).(string); ok {
		return v
	}
	return ""
}

// NewCycleID creates a cycle ID from the run start time.
// Format: "cycle-{yyyymmdd}-{unixNano}".
func NewCycleID(ts time.Time) string {
	return fmt.Sprintf("cycle-%s-%d", ts.UTC().Format("20060102"), ts.UnixNano())
}

// Attrs returns slog attributes including the cycle ID from context.
// Usage: slog.Info("msg", logger.Attrs(ctx)...)
func Attrs(ctx context.Context) []any {
	id := CycleID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("cycle_id", id)}
}
