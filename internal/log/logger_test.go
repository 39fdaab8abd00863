package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentReport, Output: &buf})

	logger.Info("hello", FieldReportKind, "monthly")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry[FieldComponent] != ComponentReport || entry[FieldReportKind] != "monthly" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports?kind=monthly", nil)
	sl.LogHTTPEnd(context.Background(), req, http.StatusBadRequest, 3, "127.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("source down"), ComponentStorage, OpLoad, nil)

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"level":"ERROR"`) {
		t.Fatalf("expected warn and error entries: %s", out)
	}
	if !strings.Contains(out, `"error":"source down"`) {
		t.Fatalf("error field missing: %s", out)
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
	custom := New(DefaultConfig()).WithComponent(ComponentHTTP)
	if l := FromContext(WithLogger(context.Background(), custom)); l.Component() != ComponentHTTP {
		t.Fatalf("expected stored logger, got %q", l.Component())
	}
}
