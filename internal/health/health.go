// Package health implements the periodic health collaborator: it
// polls the metrics snapshot and a set of sink self-checks, and
// renders a healthy/degraded verdict with the reasons behind it.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/securityopsai/logwatcher/internal/metrics"
	"github.com/securityopsai/logwatcher/pkg/models"
)

// staleAfter is how long a monitored file can go without a read
// before it counts as a degraded-health reason.
const staleAfter = 5 * time.Minute

// Checker is a self-check a registered sink exposes; it returns a
// non-nil error describing why the sink is currently unhealthy.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Monitor polls Snapshot on an interval and caches the latest result.
type Monitor struct {
	metrics  *metrics.Metrics
	checkers []Checker
	interval time.Duration
	start    time.Time

	mu     sync.RWMutex
	latest models.HealthStatus
}

// New creates a Monitor and computes its first status. interval <= 0
// disables the background poll loop; Snapshot then keeps returning
// that first status.
func New(m *metrics.Metrics, checkers []Checker, interval time.Duration) *Monitor {
	mon := &Monitor{
		metrics:  m,
		checkers: checkers,
		interval: interval,
		start:    time.Now(),
	}
	mon.latest = mon.evaluate(context.Background())
	return mon
}

// Run polls on Monitor's interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := m.evaluate(ctx)
			m.mu.Lock()
			m.latest = status
			m.mu.Unlock()
		}
	}
}

// Snapshot returns the most recently computed health status.
func (m *Monitor) Snapshot() models.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) evaluate(ctx context.Context) models.HealthStatus {
	snap := m.metrics.Snapshot()
	now := time.Now()

	var reasons []string
	for _, f := range snap.Files {
		if f.ErrorCount > 0 {
			reasons = append(reasons, fmt.Sprintf("file %s has %d read error(s): %s", f.Path, f.ErrorCount, f.LastError))
		}
		if !f.LastReadTime.IsZero() && now.Sub(f.LastReadTime) > staleAfter {
			reasons = append(reasons, fmt.Sprintf("file %s has not been read in over %s", f.Path, staleAfter))
		}
	}

	sinks := make(map[string]string, len(m.checkers))
	for _, c := range m.checkers {
		if err := c.Check(ctx); err != nil {
			sinks[c.Name()] = err.Error()
			reasons = append(reasons, fmt.Sprintf("sink %s: %v", c.Name(), err))
		} else {
			sinks[c.Name()] = "ok"
		}
	}

	status := "healthy"
	if len(reasons) > 0 {
		status = "degraded"
	}

	return models.HealthStatus{
		Timestamp: now,
		Status:    status,
		Uptime:    now.Sub(m.start),
		Reasons:   reasons,
		Sinks:     sinks,
		Files:     snap.Files,
	}
}
