package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/filestate"
	"github.com/securityopsai/logwatcher/internal/metrics"
)

func newTestTailer(t *testing.T, onLine LineHandler) (*Tailer, *filestate.Table) {
	t.Helper()
	table := filestate.NewTable()
	settings := config.Settings{ReadChunkSize: 4096, MaxFileSize: 0}
	return New(settings, table, nil, onLine, nil), table
}

// A stat failure must land in both the per-file state (drives health
// degradation) and the aggregate errors_encountered counter.
func TestReadPassCountsStatErrorInMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.log")

	table := filestate.NewTable()
	m := metrics.New(table)
	settings := config.Settings{ReadChunkSize: 4096}
	tl := New(settings, table, m, func(_, _ string) {}, nil)

	tl.readPass(path)

	if got := table.Get(path).ErrorCount; got != 1 {
		t.Fatalf("expected per-file ErrorCount 1, got %d", got)
	}
	if got := m.Snapshot().ErrorsByCategory["stat"]; got != 1 {
		t.Fatalf("expected errors_encountered[stat] = 1, got %d", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append: %v", err)
	}
}

// S4: a write with no trailing newline produces zero events; once the
// terminator arrives, exactly one event with the full line.
func TestPartialLineDeferral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "")

	var lines []string
	tl, _ := newTestTailer(t, func(_, line string) { lines = append(lines, line) })

	if err := tl.Seed(path); err != nil {
		t.Fatalf("seed: %v", err)
	}

	appendFile(t, path, "ERR")
	tl.readPass(path)
	if len(lines) != 0 {
		t.Fatalf("expected 0 events before the newline arrives, got %v", lines)
	}

	appendFile(t, path, "OR\n")
	tl.readPass(path)
	if len(lines) != 1 || lines[0] != "ERROR" {
		t.Fatalf("expected exactly one line %q, got %v", "ERROR", lines)
	}
}

// No-loss-on-rotation: appends before and after a rotation are all
// observed exactly once.
func TestRotationResetsOffsetAndPreservesAllLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "")

	var lines []string
	tl, _ := newTestTailer(t, func(_, line string) { lines = append(lines, line) })

	if err := tl.Seed(path); err != nil {
		t.Fatalf("seed: %v", err)
	}

	appendFile(t, path, "a\nb\nc\nd\ne\n")
	tl.readPass(path)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines pre-rotation, got %v", lines)
	}

	// simulate rotation: remove and recreate at the same path
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	writeFile(t, path, "f\ng\n")
	tl.readPass(path)

	if len(lines) != 7 {
		t.Fatalf("expected 7 total lines after rotation, got %v", lines)
	}
	want := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d: got %q, want %q", i, lines[i], w)
		}
	}
}

// Tailing begins at current end-of-file: Seed must be called before
// any FileChanged delivery, or the first pass will backfill.
func TestSeedStartsAtCurrentEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "pre-existing line\n")

	var lines []string
	tl, _ := newTestTailer(t, func(_, line string) { lines = append(lines, line) })

	if err := tl.Seed(path); err != nil {
		t.Fatalf("seed: %v", err)
	}

	appendFile(t, path, "new line\n")
	tl.readPass(path)

	if len(lines) != 1 || lines[0] != "new line" {
		t.Fatalf("expected only the post-seed line, got %v", lines)
	}
}

// Truncation (new size < offset) is treated as rotation.
func TestTruncationIsTreatedAsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "")

	var lines []string
	tl, _ := newTestTailer(t, func(_, line string) { lines = append(lines, line) })

	if err := tl.Seed(path); err != nil {
		t.Fatalf("seed: %v", err)
	}

	appendFile(t, path, "aaaaaaaaaa\n")
	tl.readPass(path)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %v", lines)
	}

	writeFile(t, path, "x\n") // truncate to something shorter than offset
	tl.readPass(path)

	if len(lines) != 2 || lines[1] != "x" {
		t.Fatalf("expected truncation to be read from offset 0, got %v", lines)
	}
}

func TestNotifyCoalescesBurstsIntoOnePendingRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "")

	tl, _ := newTestTailer(t, func(_, line string) {})
	if err := tl.Seed(path); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tl.Notify(ctx, path)
	tl.Notify(ctx, path) // should not block: mailbox already has a pending signal

	time.Sleep(50 * time.Millisecond) // give the worker goroutine a chance to drain
}
