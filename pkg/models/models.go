// Package models holds the data types that cross package boundaries:
// the rendered output of a match, per-file health, and the metrics
// snapshot exposed to the health collaborator and the dashboard.
package models

import "time"

// MatchRecord is the logical rendered alert payload described in the
// data model: it lives only inside a notification job and in the
// dashboard's recent-matches feed, never persisted.
type MatchRecord struct {
	Timestamp time.Time `json:"timestamp"`
	File      string    `json:"file"`
	Pattern   string    `json:"pattern"`
	Line      string    `json:"line"`
	Context   []string  `json:"context"`
	Message   string    `json:"message"`
}

// FileStatus is the per-file slice of the File State Table exposed
// read-only to the health monitor and dashboard.
type FileStatus struct {
	Path         string    `json:"path"`
	LastReadTime time.Time `json:"last_read_time"`
	ErrorCount   int64     `json:"error_count"`
	LastError    string    `json:"last_error,omitempty"`
}

// MetricsSnapshot is a point-in-time, read-only copy of the counters
// and timestamps described in the Metrics/Health Hooks component.
type MetricsSnapshot struct {
	StartTime               time.Time        `json:"start_time"`
	LastMatchTime           time.Time        `json:"last_match_time,omitempty"`
	MatchesFound            int64            `json:"matches_found"`
	NotificationsEnqueued   int64            `json:"notifications_enqueued"`
	NotificationsSent       int64            `json:"notifications_sent"`
	NotificationsSuppressed int64            `json:"notifications_suppressed"`
	NotificationsDropped    int64            `json:"notifications_dropped"`
	ErrorsByCategory        map[string]int64 `json:"errors_by_category"`
	PatternMatches          map[string]int64 `json:"pattern_matches"`
	Files                   []FileStatus     `json:"files"`
}

// HealthStatus is the output of one health-collaborator poll.
type HealthStatus struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    string            `json:"status"` // "healthy" or "degraded"
	Uptime    time.Duration     `json:"uptime"`
	Reasons   []string          `json:"reasons,omitempty"`
	Sinks     map[string]string `json:"sinks"`
	Files     []FileStatus      `json:"files"`
}
