// Package tailer implements incremental tailing with rotation
// handling: triggered by a FileChanged event, it reads new bytes,
// splits them into complete lines, and hands each line to the match
// callback in on-disk order.
//
// Concurrency: each monitored path gets its own buffered mailbox
// channel and a single goroutine draining it (internal/detect's
// events may coalesce or repeat; the mailbox itself coalesces bursts
// into one pending read). Per-path mailbox instead of a global lock,
// so one slow file never stalls reads on the others.
package tailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/filestate"
	"github.com/securityopsai/logwatcher/internal/metrics"
)

// LineHandler is invoked once per complete line read from path, in
// on-disk order. Implemented by the match engine.
type LineHandler func(path, line string)

// Tailer reads new bytes for a monitored path and splits them into
// complete lines, deferring any trailing partial line to the next
// pass.
type Tailer struct {
	settings config.Settings
	table    *filestate.Table
	metrics  *metrics.Metrics
	onLine   LineHandler
	logger   *log.Logger

	mu        sync.Mutex
	mailboxes map[string]chan struct{}
}

// New creates a Tailer. onLine is called for every complete line
// observed on any monitored path.
func New(settings config.Settings, table *filestate.Table, m *metrics.Metrics, onLine LineHandler, logger *log.Logger) *Tailer {
	return &Tailer{
		settings:  settings,
		table:     table,
		metrics:   m,
		onLine:    onLine,
		logger:    logger,
		mailboxes: make(map[string]chan struct{}),
	}
}

// recordError records a file-access failure both on the per-file
// state (drives health degradation) and the aggregate errors_encountered
// counter (drives the Metrics/Health Hooks category breakdown).
func (t *Tailer) recordError(path, category string, err error) {
	t.table.RecordError(path, err)
	if t.metrics != nil {
		t.metrics.IncError(category)
	}
}

// Seed establishes a path's starting offset at the current
// end-of-file: tailing begins from now, never backfilling history
// from before startup. It is a no-op (not an error) if the file does
// not yet exist; the first FileChanged pass will then start it from
// offset 0 once it appears.
func (t *Tailer) Seed(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	inode, err := filestate.Inode(f)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}

	t.table.Update(path, func(s *filestate.State) {
		s.Inode = inode
		s.Offset = stat.Size()
		s.Size = stat.Size()
		s.LastReadTime = time.Now()
	})
	return nil
}

// Notify is called for every FileChanged(path) event. It is safe to
// call concurrently and from multiple paths; per-path delivery is
// serialized by the path's own mailbox.
func (t *Tailer) Notify(ctx context.Context, path string) {
	mailbox := t.mailboxFor(ctx, path)
	select {
	case mailbox <- struct{}{}:
	default:
		// A read is already pending for this path; the coming pass
		// will pick up everything written so far, so this signal is
		// redundant.
	}
}

func (t *Tailer) mailboxFor(ctx context.Context, path string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	mailbox, ok := t.mailboxes[path]
	if ok {
		return mailbox
	}

	mailbox = make(chan struct{}, 1)
	t.mailboxes[path] = mailbox
	go t.worker(ctx, path, mailbox)
	return mailbox
}

func (t *Tailer) worker(ctx context.Context, path string, mailbox <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-mailbox:
			t.readPass(path)
		}
	}
}

// readPass performs one tail pass over path: stat, rotation check,
// open+seek+read, split into complete lines, dispatch each line, and
// update the file's state. Files are opened only for the duration of
// the pass; they are not held open across idle periods.
func (t *Tailer) readPass(path string) {
	stat, err := os.Stat(path)
	if err != nil {
		t.recordError(path, "stat", fmt.Errorf("stat: %w", err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.recordError(path, "open", fmt.Errorf("open: %w", err))
		return
	}
	defer f.Close()

	inode, err := filestate.Inode(f)
	if err != nil {
		t.recordError(path, "inode", fmt.Errorf("inode: %w", err))
		return
	}

	prior := t.table.Get(path)
	offset := prior.Offset
	rotated := prior.Inode != 0 && prior.Inode != inode
	truncated := stat.Size() < offset
	if rotated || truncated {
		offset = 0
	}

	if _, err := f.Seek(offset, os.SEEK_SET); err != nil {
		t.recordError(path, "seek", fmt.Errorf("seek: %w", err))
		return
	}

	data, readErr := readAvailable(f, t.settings.ReadChunkSize, t.settings.MaxFileSize, stat.Size()-offset)
	if readErr != nil {
		t.recordError(path, "read", fmt.Errorf("read: %w", readErr))
		return
	}

	consumed := t.dispatchLines(path, data)

	t.table.Update(path, func(s *filestate.State) {
		s.Inode = inode
		s.Offset = offset + int64(consumed)
		s.Size = stat.Size()
		s.LastReadTime = time.Now()
	})
}

// readAvailable reads up to remaining bytes (or until EOF if
// remaining <= 0) from f in read_chunk_size increments, and returns
// any read error other than EOF. A
// configured max_file_size bounds how much of a large backlog is
// pulled into memory in one pass; the remainder is picked up on the
// next event since offset only advances past what was actually
// consumed.
func readAvailable(f *os.File, chunkSize int, maxFileSize int64, remaining int64) ([]byte, error) {
	if chunkSize < 1024 {
		chunkSize = 4096
	}

	limit := remaining
	if maxFileSize > 0 && (limit <= 0 || limit > maxFileSize) {
		limit = maxFileSize
	}

	var out []byte
	buf := make([]byte, chunkSize)
	for limit <= 0 || int64(len(out)) < limit {
		n, err := f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// dispatchLines splits data on newline boundaries and invokes onLine
// for each complete line. It returns the number of bytes consumed by
// complete lines (including their terminators); any trailing partial
// line is left unconsumed so the next pass re-reads it in full,
// satisfying the partial-line-deferral invariant.
func (t *Tailer) dispatchLines(path string, data []byte) int {
	consumed := 0
	for {
		idx := bytes.IndexByte(data[consumed:], '\n')
		if idx < 0 {
			break
		}
		end := consumed + idx
		line := string(bytes.TrimSuffix(data[consumed:end], []byte("\r")))
		consumed = end + 1
		t.onLine(path, line)
	}
	return consumed
}
