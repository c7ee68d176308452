// Package metrics accumulates the process-wide counters the original
// project's stats dict tracked, as atomics and a pair of mutex-guarded
// maps, and renders them into a point-in-time models.MetricsSnapshot
// for the health monitor, dashboard, and CLI.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/securityopsai/logwatcher/internal/filestate"
	"github.com/securityopsai/logwatcher/pkg/models"
)

// Metrics is safe for concurrent use from the match engine, the
// dispatcher workers, and any reader (dashboard, health monitor, CLI).
type Metrics struct {
	startTime time.Time

	matchesFound            int64
	notificationsEnqueued   int64
	notificationsSent       int64
	notificationsSuppressed int64
	notificationsDropped    int64

	mu               sync.Mutex
	lastMatchTime    time.Time
	errorsByCategory map[string]int64
	patternMatches   map[string]int64

	table *filestate.Table
}

// New creates a Metrics tied to table for the per-file Files slice in
// every snapshot.
func New(table *filestate.Table) *Metrics {
	return &Metrics{
		startTime:        time.Now(),
		errorsByCategory: make(map[string]int64),
		patternMatches:   make(map[string]int64),
		table:            table,
	}
}

// IncMatch records a pattern match at at, unconditionally. This
// happens before the rate limiter is consulted: matches_found counts
// every hit, admitted or suppressed. last_match_time keeps the latest
// at seen, even if calls arrive out of order.
func (m *Metrics) IncMatch(pattern string, at time.Time) {
	atomic.AddInt64(&m.matchesFound, 1)
	m.mu.Lock()
	m.patternMatches[pattern]++
	if at.After(m.lastMatchTime) {
		m.lastMatchTime = at
	}
	m.mu.Unlock()
}

// IncEnqueued records a job successfully handed to the queue.
func (m *Metrics) IncEnqueued() {
	atomic.AddInt64(&m.notificationsEnqueued, 1)
}

// IncSent records a job whose delivery terminally succeeded. It is
// deliberately distinct from IncEnqueued: sent only increments on
// confirmed delivery, not on admission into the queue.
func (m *Metrics) IncSent() {
	atomic.AddInt64(&m.notificationsSent, 1)
}

// IncSuppressed records a match the rate limiter rejected.
func (m *Metrics) IncSuppressed() {
	atomic.AddInt64(&m.notificationsSuppressed, 1)
}

// IncDropped records a job the queue discarded for capacity.
func (m *Metrics) IncDropped() {
	atomic.AddInt64(&m.notificationsDropped, 1)
}

// IncError records an error in category (e.g. "read", "stat",
// "pattern_evaluation", "sink:email").
func (m *Metrics) IncError(category string) {
	m.mu.Lock()
	m.errorsByCategory[category]++
	m.mu.Unlock()
}

// Snapshot renders the current state for the dashboard, health
// monitor, and CLI.
func (m *Metrics) Snapshot() models.MetricsSnapshot {
	m.mu.Lock()
	errs := make(map[string]int64, len(m.errorsByCategory))
	for k, v := range m.errorsByCategory {
		errs[k] = v
	}
	patterns := make(map[string]int64, len(m.patternMatches))
	for k, v := range m.patternMatches {
		patterns[k] = v
	}
	lastMatch := m.lastMatchTime
	m.mu.Unlock()

	var files []models.FileStatus
	if m.table != nil {
		files = m.table.Snapshot()
	}

	return models.MetricsSnapshot{
		StartTime:               m.startTime,
		LastMatchTime:           lastMatch,
		MatchesFound:            atomic.LoadInt64(&m.matchesFound),
		NotificationsEnqueued:   atomic.LoadInt64(&m.notificationsEnqueued),
		NotificationsSent:       atomic.LoadInt64(&m.notificationsSent),
		NotificationsSuppressed: atomic.LoadInt64(&m.notificationsSuppressed),
		NotificationsDropped:    atomic.LoadInt64(&m.notificationsDropped),
		ErrorsByCategory:        errs,
		PatternMatches:          patterns,
		Files:                   files,
	}
}
