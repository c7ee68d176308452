// Package detect provides the platform-aware Change Detector: it
// emits a file path on its output channel at least once after any
// observable size change, and is never responsible for coalescing;
// that is the Tailer's job.
package detect

import "context"

// Detector is the capability every backend implements: start watching
// paths and deliver FileChanged(path) events on out until ctx is
// done or Close is called.
type Detector interface {
	Start(ctx context.Context, paths []string, out chan<- string) error
	Close() error
}
