package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/securityopsai/logwatcher/internal/filestate"
	"github.com/securityopsai/logwatcher/internal/metrics"
)

type fakeChecker struct {
	name string
	err  error
}

func (f *fakeChecker) Name() string                  { return f.name }
func (f *fakeChecker) Check(ctx context.Context) error { return f.err }

func TestEvaluateHealthyWithNoReasons(t *testing.T) {
	table := filestate.NewTable()
	table.Update("/var/log/app.log", func(s *filestate.State) { s.LastReadTime = time.Now() })
	m := metrics.New(table)

	mon := New(m, nil, 0)
	status := mon.Snapshot()

	if status.Status != "healthy" {
		t.Fatalf("expected healthy, got %q with reasons %v", status.Status, status.Reasons)
	}
}

func TestEvaluateDegradedOnFileErrors(t *testing.T) {
	table := filestate.NewTable()
	table.RecordError("/var/log/app.log", errors.New("permission denied"))
	m := metrics.New(table)

	mon := New(m, nil, 0)
	status := mon.Snapshot()

	if status.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", status.Status)
	}
	if len(status.Reasons) != 1 {
		t.Fatalf("expected 1 reason, got %v", status.Reasons)
	}
}

func TestEvaluateDegradedOnStaleFile(t *testing.T) {
	table := filestate.NewTable()
	table.Update("/var/log/app.log", func(s *filestate.State) {
		s.LastReadTime = time.Now().Add(-10 * time.Minute)
	})
	m := metrics.New(table)

	mon := New(m, nil, 0)
	status := mon.Snapshot()

	if status.Status != "degraded" {
		t.Fatalf("expected degraded for a stale file, got %q", status.Status)
	}
}

func TestEvaluateDegradedOnFailingChecker(t *testing.T) {
	table := filestate.NewTable()
	m := metrics.New(table)
	checker := &fakeChecker{name: "syslog", err: errors.New("connection refused")}

	mon := New(m, []Checker{checker}, 0)
	status := mon.Snapshot()

	if status.Status != "degraded" {
		t.Fatalf("expected degraded when a checker fails, got %q", status.Status)
	}
	if status.Sinks["syslog"] != "connection refused" {
		t.Fatalf("expected the checker's error recorded under its name, got %v", status.Sinks)
	}
}

func TestEvaluateHealthyCheckerReportsOK(t *testing.T) {
	table := filestate.NewTable()
	m := metrics.New(table)
	checker := &fakeChecker{name: "email"}

	mon := New(m, []Checker{checker}, 0)
	status := mon.Snapshot()

	if status.Sinks["email"] != "ok" {
		t.Fatalf("expected ok for a passing checker, got %v", status.Sinks)
	}
}

func TestRunUpdatesSnapshotOnInterval(t *testing.T) {
	table := filestate.NewTable()
	m := metrics.New(table)
	mon := New(m, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	before := mon.Snapshot().Timestamp
	mon.Run(ctx)
	after := mon.Snapshot().Timestamp

	if !after.After(before) {
		t.Fatalf("expected Run to refresh the snapshot timestamp: before=%v after=%v", before, after)
	}
}
