// Package ratelimit implements the duplicate-suppression gate: at
// most one admitted notification per (file, pattern) key within a
// configured window.
//
// A token-bucket limiter (golang.org/x/time/rate, the idiom used
// elsewhere in the retrieved corpus for rate limiting) was considered
// and rejected here: a bucket with burst 1 approximates this policy
// but does not give the exact "admitted iff now-last >= window"
// boundary this package's admission rule requires bit-for-bit, so the
// policy is implemented directly against a timestamp map instead.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter gates admission per key using the host's monotonic clock.
type Limiter struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// New creates a Limiter with the given global window.
func New(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Admit reports whether a notification for key is allowed at now. If
// key has never been seen, or the window has elapsed since the last
// admission, it records now and returns true; otherwise it returns
// false without mutating state.
func (l *Limiter) Admit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[key]
	if !ok || now.Sub(last) >= l.window {
		l.last[key] = now
		return true
	}
	return false
}

// Prune discards entries whose last admission is older than the
// window, bounding memory for long-running processes with many
// distinct keys. It is safe to call concurrently with Admit.
func (l *Limiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, last := range l.last {
		if now.Sub(last) >= l.window {
			delete(l.last, key)
		}
	}
}
