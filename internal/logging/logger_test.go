package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"loadcheck/internal/config"
	"loadcheck/internal/logging"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("routine progress")
	logger.Warn("something odd", logging.String("key", "value"))

	content, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected info and warn records in log file, got %q", content)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, lines[1])
	}
	if entry["msg"] != "something odd" || entry["key"] != "value" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerHeaderAndFieldLimit(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithDataset(logging.WithRunID(context.Background(), "0123456789abcdef"), 7)
	component := logging.NewComponentLogger(logger, "parser")
	attrs := make([]logging.Attr, 0, 10)
	for i := range 10 {
		attrs = append(attrs, logging.Int("f"+string(rune('a'+i)), i))
	}
	logging.WithContext(ctx, component).Info("parsed", logging.Args(attrs...)...)

	out := buf.String()
	if !strings.Contains(out, "INFO [parser] Run 01234567 · DS7 - parsed") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - fa: 0") {
		t.Fatalf("expected first field line: %q", out)
	}
	if !strings.Contains(out, "+ 2 more fields hidden") {
		t.Fatalf("expected hidden field summary: %q", out)
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	var console, jsonOut bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Output: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("request", logging.String("apikey", "super-secret"))
	if strings.Contains(console.String(), "super-secret") {
		t.Fatalf("console leaked secret: %q", console.String())
	}

	jsonLogger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &jsonOut})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	jsonLogger.Info("request", logging.String("service_key", "super-secret"))
	if strings.Contains(jsonOut.String(), "super-secret") || !strings.Contains(jsonOut.String(), "[redacted]") {
		t.Fatalf("json leaked secret: %q", jsonOut.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logger, err := logging.New(logging.Options{Level: "invalid", Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be disabled")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.WithRunID(context.Background(), "run-xyz")
	ctx = logging.WithDataset(ctx, 3)
	logging.WithContext(ctx, logger).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldRunID] != "run-xyz" {
		t.Fatalf("run_id = %v", entry[logging.FieldRunID])
	}
	if entry[logging.FieldDataset] != float64(3) {
		t.Fatalf("dataset = %v", entry[logging.FieldDataset])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "dataset skipped", "dataset_skipped", logging.String(logging.FieldImpact, "dataset not verified"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "dataset_skipped" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if entry[logging.FieldImpact] != "dataset not verified" {
		t.Fatalf("impact overwritten: %v", entry[logging.FieldImpact])
	}
}
