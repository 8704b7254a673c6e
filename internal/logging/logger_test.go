package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"renderport/internal/services"
)

func TestPrettyHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	NewComponentLogger(logger, "intake").Info("scan complete", Int("recorded", 2))

	line := buf.String()
	if !strings.Contains(line, "intake: scan complete") {
		t.Errorf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "recorded=2") {
		t.Errorf("attribute missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be a prefix, not an attribute: %q", line)
	}
}

func TestPrettyHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Info("copied", String("destination", "Scene One.mp4"))
	if !strings.Contains(buf.String(), `destination="Scene One.mp4"`) {
		t.Errorf("value with spaces should be quoted: %q", buf.String())
	}
}

func TestJSONHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar, false))

	logger.Warn("manifest corrupt", String("backup", "manifest.json.corrupt-x"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["level"] != "warn" {
		t.Errorf("level = %v, want warn", record["level"])
	}
	if record["msg"] != "manifest corrupt" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["backup"] != "manifest.json.corrupt-x" {
		t.Errorf("backup = %v", record["backup"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithBatchID(context.Background(), "batch-7")
	ctx = services.WithSource(ctx, "/renders/a.mp4")
	ctx = services.WithStage(ctx, "hashed")

	fields := ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}
	if fields[0].Key != FieldBatchID || fields[0].Value.String() != "batch-7" {
		t.Errorf("batch field = %v", fields[0])
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger should never be enabled")
	}
}
