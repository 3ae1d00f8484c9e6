package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})

	logger.WithComponent(ComponentSession).Info("Session created", FieldEmail, "a@b.co")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec[FieldComponent] != ComponentSession || rec[FieldEmail] != "a@b.co" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	if logger.Component() != ComponentApp {
		t.Fatalf("component = %q", logger.Component())
	}
	logger.With(FieldRequestID, "req_1").Warn("careful")
	out := buf.String()
	if !strings.Contains(out, "component=app") || !strings.Contains(out, "request_id=req_1") {
		t.Fatalf("text record = %q", out)
	}
}
