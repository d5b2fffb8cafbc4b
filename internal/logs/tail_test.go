package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loadcheck/internal/logs"
)

const sampleLog = `{"ts":"2026-01-02T03:04:05Z","level":"info","msg":"run started","component":"cli","run_id":"aaaa1111"}
{"ts":"2026-01-02T03:04:06Z","level":"info","msg":"dataset parsed","component":"dataset","run_id":"aaaa1111","dataset":"1","pages":3}
{"ts":"2026-01-02T03:04:07Z","level":"warn","msg":"discrepancies found","component":"crossval","run_id":"aaaa1111","dataset":2,"count":4}
not json at all
{"ts":"2026-01-03T03:04:05Z","level":"error","msg":"update aborted","component":"reconcile","run_id":"bbbb2222","dataset":"1"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loadcheck.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset 6, got %d", result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %#v", result)
	}
}

func TestTailFiltersBeforeLimit(t *testing.T) {
	path := writeLog(t, sampleLog)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1,
		Limit:  10,
		Filter: logs.Filter{RunID: "aaaa"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 3 {
		t.Fatalf("expected 3 lines for run aaaa, got %d: %#v", len(result.Lines), result.Lines)
	}

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1,
		Limit:  1,
		Filter: logs.Filter{Dataset: 1},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || !strings.Contains(result.Lines[0], "update aborted") {
		t.Fatalf("expected newest dataset 1 line, got %#v", result.Lines)
	}
}

func TestFilterMinLevel(t *testing.T) {
	path := writeLog(t, sampleLog)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: 0,
		Filter: logs.Filter{MinLevel: "warn"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected warn and error lines, got %#v", result.Lines)
	}
}

func TestReadFromOffsetSkipsPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "one" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 4 {
		t.Fatalf("expected offset 4, got %d", result.Offset)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestParseEntryAndFormat(t *testing.T) {
	line := `{"ts":"2026-01-02T03:04:07Z","level":"warn","msg":"discrepancies found","component":"crossval","run_id":"aaaa1111","dataset":2,"count":4}`
	entry, ok := logs.ParseEntry(line)
	if !ok {
		t.Fatal("expected entry to parse")
	}
	if entry.Dataset != 2 || entry.RunID != "aaaa1111" || entry.Component != "crossval" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Fields["count"] != "4" {
		t.Fatalf("expected count field, got %#v", entry.Fields)
	}

	formatted := logs.Format(entry)
	for _, want := range []string{"WARN", "[crossval]", "discrepancies found", "count=4"} {
		if !strings.Contains(formatted, want) {
			t.Fatalf("formatted line %q missing %q", formatted, want)
		}
	}

	if _, ok := logs.ParseEntry("not json"); ok {
		t.Fatal("expected non-JSON line to be rejected")
	}
}
