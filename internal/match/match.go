// Package match implements the Match Engine: for each line observed
// on a monitored file, it applies the file's bound patterns, renders
// the alert message on a hit, and gates delivery through the rate
// limiter before handing two jobs, fan-out and syslog, to the
// notification queue.
package match

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/securityopsai/logwatcher/internal/binding"
	"github.com/securityopsai/logwatcher/internal/contextbuf"
	"github.com/securityopsai/logwatcher/internal/metrics"
	"github.com/securityopsai/logwatcher/internal/patterns"
	"github.com/securityopsai/logwatcher/internal/queue"
	"github.com/securityopsai/logwatcher/internal/ratelimit"
	"github.com/securityopsai/logwatcher/pkg/models"
)

// FanoutSelector and SyslogSelector name the two sinks the Match
// Engine always enqueues to on an admitted match.
const (
	FanoutSelector = "fanout"
	SyslogSelector = "syslog"
)

// RecentHandler is notified of every rendered match, admitted or not,
// for surfaces like the dashboard's recent-matches feed.
type RecentHandler func(models.MatchRecord)

// Engine evaluates lines against the pattern set and drives admission
// and enqueueing.
type Engine struct {
	patterns *patterns.Set
	bindings *binding.Binding
	buffers  *contextbuf.Buffers
	limiter  *ratelimit.Limiter
	queue    *queue.Queue
	metrics  *metrics.Metrics
	logger   *log.Logger

	testMode bool
	onRecent RecentHandler
}

// New creates a Match Engine. When testMode is true, matches are
// logged and metered but never enqueued to a sink, per the CLI's
// --test contract.
func New(
	patterns *patterns.Set,
	bindings *binding.Binding,
	buffers *contextbuf.Buffers,
	limiter *ratelimit.Limiter,
	q *queue.Queue,
	m *metrics.Metrics,
	logger *log.Logger,
	testMode bool,
	onRecent RecentHandler,
) *Engine {
	return &Engine{
		patterns: patterns,
		bindings: bindings,
		buffers:  buffers,
		limiter:  limiter,
		queue:    q,
		metrics:  m,
		logger:   logger,
		testMode: testMode,
		onRecent: onRecent,
	}
}

// OnLine is the tailer.LineHandler entry point: append line to the
// path's context buffer, then evaluate every pattern bound to path.
func (e *Engine) OnLine(path, line string) {
	e.buffers.Add(path, line)

	for _, name := range e.bindings.PatternsFor(path) {
		e.evaluate(path, name, line)
	}
}

// evaluate applies one pattern to one line. A panicking pattern
// (never expected from Go's RE2 engine, but guarded per spec's
// pattern-evaluation-error category) is recorded as a category error
// and the line is skipped for that pattern only.
func (e *Engine) evaluate(path, name, line string) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.IncError("pattern_evaluation")
			if e.logger != nil {
				e.logger.Printf("pattern %q panicked on %s: %v", name, path, r)
			}
		}
	}()

	matched, ok := e.patterns.MatchString(name, line)
	if !ok || !matched {
		return
	}

	now := time.Now()
	context := e.buffers.Snapshot(path)
	message := render(path, name, line, context, now)

	e.metrics.IncMatch(name, now)

	record := models.MatchRecord{
		Timestamp: now,
		File:      path,
		Pattern:   name,
		Line:      line,
		Context:   context,
		Message:   message,
	}
	if e.onRecent != nil {
		e.onRecent(record)
	}
	if e.logger != nil {
		e.logger.Printf("match: %s", message)
	}

	if e.testMode {
		return
	}

	key := path + ":" + name
	if !e.limiter.Admit(key, now) {
		e.metrics.IncSuppressed()
		return
	}

	e.enqueue(FanoutSelector, message, name, now)
	e.enqueue(SyslogSelector, message, name, now)
}

func (e *Engine) enqueue(selector, message, pattern string, now time.Time) {
	job := &queue.Job{
		SinkSelector: selector,
		Message:      message,
		PatternName:  pattern,
		EnqueueTime:  now,
	}
	if e.queue.Enqueue(job) {
		e.metrics.IncEnqueued()
	} else {
		e.metrics.IncDropped()
	}
}

// render composes the fixed, observable alert message format.
func render(path, pattern, line string, context []string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== LogWatcher Match ===\n")
	fmt.Fprintf(&b, "Time: %s\n", at.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "File: %s\n", path)
	fmt.Fprintf(&b, "Pattern: %s\n", pattern)
	fmt.Fprintf(&b, "Match: %s\n", line)
	fmt.Fprintf(&b, "Recent context:\n%s\n", strings.Join(context, "\n"))
	fmt.Fprintf(&b, "=======================")
	return b.String()
}
