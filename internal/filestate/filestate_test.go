package filestate

import (
	"errors"
	"testing"
)

func TestGetCreatesZeroValueOnFirstSeen(t *testing.T) {
	table := NewTable()
	s := table.Get("/var/log/app.log")
	if s.Offset != 0 || s.Inode != 0 {
		t.Fatalf("expected zero-valued state for a new path, got %+v", s)
	}
}

func TestUpdateMutatesUnderLock(t *testing.T) {
	table := NewTable()
	table.Update("/f", func(s *State) {
		s.Offset = 42
		s.Inode = 7
	})

	got := table.Get("/f")
	if got.Offset != 42 || got.Inode != 7 {
		t.Fatalf("expected updated state, got %+v", got)
	}
}

func TestGetReturnsACopyNotALivePointer(t *testing.T) {
	table := NewTable()
	table.Update("/f", func(s *State) { s.Offset = 10 })

	copy1 := table.Get("/f")
	copy1.Offset = 999

	copy2 := table.Get("/f")
	if copy2.Offset != 10 {
		t.Fatalf("mutating a Get() copy leaked into the table: %+v", copy2)
	}
}

func TestRecordErrorIncrementsCounter(t *testing.T) {
	table := NewTable()
	table.RecordError("/f", errors.New("boom"))
	table.RecordError("/f", errors.New("boom again"))

	got := table.Get("/f")
	if got.ErrorCount != 2 {
		t.Fatalf("expected ErrorCount 2, got %d", got.ErrorCount)
	}
	if got.LastError != "boom again" {
		t.Fatalf("expected LastError to be the most recent error, got %q", got.LastError)
	}
}

func TestSnapshotCoversAllFiles(t *testing.T) {
	table := NewTable()
	table.Update("/a", func(s *State) {})
	table.Update("/b", func(s *State) {})

	snap := table.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
}
