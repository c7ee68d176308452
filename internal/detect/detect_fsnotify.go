//go:build !windows

package detect

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/securityopsai/logwatcher/internal/metrics"
)

// fsnotifyDetector is the inotify-backed Change Detector on Linux (and,
// portably, the kqueue or other backend fsnotify provides on other
// non-Windows kernels). It watches one
// directory per distinct parent of the monitored paths and filters
// events down to the files actually being tailed, split out as its
// own component behind the Detector interface.
type fsnotifyDetector struct {
	watcher *fsnotify.Watcher
	logger  *log.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	watched map[string]bool // full paths we forward events for
}

// NewOSDetector returns the Change Detector backend for this platform.
// m may be nil (errors are then only logged, not counted).
func NewOSDetector(logger *log.Logger, m *metrics.Metrics) (Detector, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsnotifyDetector{watcher: w, logger: logger, metrics: m, watched: make(map[string]bool)}, nil
}

func (d *fsnotifyDetector) Start(ctx context.Context, paths []string, out chan<- string) error {
	dirs := make(map[string]bool)
	d.mu.Lock()
	for _, p := range paths {
		d.watched[p] = true
		dirs[filepath.Dir(p)] = true
	}
	d.mu.Unlock()

	for dir := range dirs {
		if err := d.watcher.Add(dir); err != nil {
			return err
		}
	}

	go d.loop(ctx, out)
	return nil
}

func (d *fsnotifyDetector) loop(ctx context.Context, out chan<- string) {
	// A short timeout keeps shutdown responsive even if no fsnotify
	// event ever arrives again.
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			d.mu.Lock()
			watched := d.watched[event.Name]
			d.mu.Unlock()
			if !watched {
				continue
			}
			select {
			case out <- event.Name:
			case <-ctx.Done():
				return
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			if d.logger != nil {
				d.logger.Printf("detector error: %v", err)
			}
			if d.metrics != nil {
				d.metrics.IncError("linux_watch")
			}
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}

		case <-ticker.C:
			// no-op tick keeps the select responsive to ctx.Done()
		}
	}
}

func (d *fsnotifyDetector) Close() error {
	return d.watcher.Close()
}
