// Package contextbuf implements the fixed-size rolling window of
// recent lines kept per monitored file, attached to a match for
// operator diagnosis.
package contextbuf

import "sync"

// Buffers holds one ring of the most recent N lines per path.
type Buffers struct {
	size int

	mu     sync.Mutex
	byPath map[string][]string
}

// New creates a Buffers holding up to size lines per path. size must
// be >= 1; callers validate this via config.Settings.BufferSize.
func New(size int) *Buffers {
	return &Buffers{
		size:   size,
		byPath: make(map[string][]string),
	}
}

// Add appends line to path's buffer, evicting the oldest line if the
// buffer is already at capacity. Insertion order is preserved.
func (b *Buffers) Add(path, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.byPath[path]
	lines = append(lines, line)
	if len(lines) > b.size {
		lines = lines[len(lines)-b.size:]
	}
	b.byPath[path] = lines
}

// Snapshot returns a copy of path's current buffer, oldest first.
func (b *Buffers) Snapshot(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.byPath[path]
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
