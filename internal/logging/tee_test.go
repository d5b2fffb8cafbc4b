package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapsesMissingSides(t *testing.T) {
	var buf bytes.Buffer
	only := slog.NewJSONHandler(&buf, nil)

	if h := newTeeHandler(only, nil); h != only {
		t.Fatalf("expected console handler unwrapped, got %T", h)
	}
	if h := newTeeHandler(nil, only); h != only {
		t.Fatalf("expected file handler unwrapped, got %T", h)
	}
	if h := newTeeHandler(nil, nil); h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected discard handler when both sides are nil")
	}
}

func TestTeeHandlerAppliesLevelsPerSide(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		newConsoleHandler(&console, slog.LevelWarn, false),
		newJSONHandler(&file, slog.LevelInfo, false),
	)
	logger := slog.New(h)

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info enabled through the file side")
	}
	logger.Info("parsed dataset")
	logger.Warn("discrepancies found")

	if strings.Contains(console.String(), "parsed dataset") {
		t.Fatalf("console should drop info records: %q", console.String())
	}
	if !strings.Contains(console.String(), "discrepancies found") {
		t.Fatalf("console missing warn record: %q", console.String())
	}
	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Fatalf("expected two file records, got %d: %q", got, file.String())
	}
}

func TestTeeHandlerWithAttrsReachesBothSides(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		newConsoleHandler(&console, slog.LevelInfo, false),
		newJSONHandler(&file, slog.LevelInfo, false),
	)
	slog.New(h).With(slog.String(FieldComponent, "audit")).WithGroup("db").Info("opened", slog.String("path", "audit.db"))

	if !strings.Contains(console.String(), "[audit]") || !strings.Contains(console.String(), "db.path: audit.db") {
		t.Fatalf("unexpected console output: %q", console.String())
	}
	if !strings.Contains(file.String(), `"component":"audit"`) || !strings.Contains(file.String(), `"db":{"path":"audit.db"}`) {
		t.Fatalf("unexpected file output: %q", file.String())
	}
}
