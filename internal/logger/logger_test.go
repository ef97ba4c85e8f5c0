package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, "signalbot", slog.LevelInfo)

	lg.Debug("hidden")
	lg.Info("cycle complete", slog.Int("symbols", 5))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "signalbot" || line["msg"] != "cycle complete" || line["symbols"] != float64(5) {
		t.Errorf("line = %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestCycleID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No cycle ID set
	if id := CycleID(ctx); id != "" {
		t.Errorf("expected empty cycle id, got %q", id)
	}

	ctx = WithCycleID(ctx, "cycle-123")
	if id := CycleID(ctx); id != "cycle-123" {
		t.Errorf("expected 'cycle-123', got %q", id)
	}
}

func TestNewCycleID(t *testing.T) {
	ts := time.Date(2026, 10, 19, 14, 30, 0, 123456789, time.UTC)
	id := NewCycleID(ts)

	if !strings.HasPrefix(id, "cycle-20261019-") {
		t.Errorf("expected date prefix, got %s", id)
	}
	if !strings.Contains(id, "123456789") {
		t.Errorf("expected cycle id to contain nanoseconds, got %s", id)
	}
}

func TestAttrs(t *testing.T) {
	ctx := context.Background()

	if attrs := Attrs(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no cycle id, got %v", attrs)
	}

	ctx = WithCycleID(ctx, "abc-123")
	if attrs := Attrs(ctx); len(attrs) != 1 {
		t.Fatalf("expected one attr, got %v", attrs)
	}
}
