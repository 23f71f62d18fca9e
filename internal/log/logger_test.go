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
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}).WithComponent(ComponentLoader)

	logger.Info("Posts loaded", FieldPostCount, 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentLoader {
		t.Fatalf("expected component %q, got %v", ComponentLoader, entry[FieldComponent])
	}
	if entry[FieldPostCount] != float64(3) {
		t.Fatalf("expected post_count 3, got %v", entry[FieldPostCount])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Component() != ComponentApp {
		t.Fatalf("expected default app logger, got %+v", logger)
	}
}

func TestMiddlewareInjectsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Output: &buf})

	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_test" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}),
	))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req_test") {
		t.Fatalf("expected request id in log line, got %q", buf.String())
	}
}

func TestStructuredLoggerLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}))

	sl.LogError(context.Background(), "Load failed", errors.New("boom"), ComponentLoader, OpLoad, nil)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry[FieldError] != "boom" || entry[FieldOperation] != OpLoad || entry[FieldComponent] != ComponentLoader {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestStructuredLoggerLogHTTPEnd(t *testing.T) {
	tests := []struct {
		status  int
		level   string
		success bool
	}{
		{status: http.StatusOK, level: "INFO", success: true},
		{status: http.StatusUnprocessableEntity, level: "WARN", success: false},
		{status: http.StatusInternalServerError, level: "ERROR", success: false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}))

		sl.LogHTTPEnd(context.Background(), httptest.NewRequest(http.MethodGet, "/api/comparison", nil), tt.status, 12, "192.0.2.1")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if entry["level"] != tt.level || entry[FieldSuccess] != tt.success {
			t.Fatalf("status %d: unexpected entry %v", tt.status, entry)
		}
		if entry[FieldStatusCode] != float64(tt.status) || entry[FieldDuration] != float64(12) {
			t.Fatalf("status %d: unexpected response fields %v", tt.status, entry)
		}
	}
}
