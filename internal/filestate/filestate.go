// Package filestate owns the File State Table: per-file offset,
// inode, size, error counters, and last-read timestamp. It is
// mutated exclusively by the Tailer; all other readers take a
// snapshot under a mutex.
package filestate

import (
	"sync"
	"time"

	"github.com/securityopsai/logwatcher/pkg/models"
)

// State is the per-file bookkeeping the Tailer needs across reads.
type State struct {
	Path         string
	Inode        uint64
	Offset       int64
	Size         int64
	LastReadTime time.Time
	LastError    string
	ErrorCount   int64
}

// Table is the concurrency-safe collection of per-file State.
type Table struct {
	mu    sync.RWMutex
	files map[string]*State
}

// NewTable creates an empty File State Table.
func NewTable() *Table {
	return &Table{files: make(map[string]*State)}
}

// Get returns a copy of path's current state, creating a zero-valued
// entry the first time path is seen. Returning a copy (rather than
// the live pointer) keeps every mutation funneled through Update, so
// the table's mutex is the sole guard on State fields, not just on
// map membership.
func (t *Table) Get(path string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.files[path]
	if !ok {
		s = &State{Path: path}
		t.files[path] = s
	}
	return *s
}

// Update applies fn to path's state under the table lock. The Tailer
// is the only caller that should mutate offset/inode/size this way.
func (t *Table) Update(path string, fn func(*State)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.files[path]
	if !ok {
		s = &State{Path: path}
		t.files[path] = s
	}
	fn(s)
}

// RecordError increments path's error counter and records the error
// text, without mutating offset or size.
func (t *Table) RecordError(path string, err error) {
	t.Update(path, func(s *State) {
		s.ErrorCount++
		s.LastError = err.Error()
	})
}

// Snapshot returns a read-only copy of every file's status, safe for
// the health monitor and dashboard to consume concurrently with
// tailer writes.
func (t *Table) Snapshot() []models.FileStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.FileStatus, 0, len(t.files))
	for _, s := range t.files {
		out = append(out, models.FileStatus{
			Path:         s.Path,
			LastReadTime: s.LastReadTime,
			ErrorCount:   s.ErrorCount,
			LastError:    s.LastError,
		})
	}
	return out
}
