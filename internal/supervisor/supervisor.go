// Package supervisor owns the wiring and lifecycle of the full
// pipeline: Change Detector, Tailer, Match Engine, notification
// Queue, Sinks, Metrics, Health Monitor, and the optional dashboard.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/securityopsai/logwatcher/internal/binding"
	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/contextbuf"
	"github.com/securityopsai/logwatcher/internal/dashboard"
	"github.com/securityopsai/logwatcher/internal/detect"
	"github.com/securityopsai/logwatcher/internal/filestate"
	"github.com/securityopsai/logwatcher/internal/health"
	"github.com/securityopsai/logwatcher/internal/match"
	"github.com/securityopsai/logwatcher/internal/metrics"
	"github.com/securityopsai/logwatcher/internal/patterns"
	"github.com/securityopsai/logwatcher/internal/queue"
	"github.com/securityopsai/logwatcher/internal/ratelimit"
	"github.com/securityopsai/logwatcher/internal/sink"
	"github.com/securityopsai/logwatcher/internal/tailer"
	"github.com/securityopsai/logwatcher/pkg/models"
)

// drainDeadline bounds how long Stop waits for in-flight
// notifications before abandoning them.
const drainDeadline = 5 * time.Second

// queueCapacity and dispatchWorkers are the Notification Queue's
// documented reference defaults (capacity 1024, 2 dispatcher
// workers); unlike buffer_size and max_retries, these are not exposed
// as configuration keys.
const (
	queueCapacity   = 1024
	dispatchWorkers = 2
)

// Supervisor owns every long-running component and its shutdown order.
type Supervisor struct {
	cfg      *config.Config
	logger   *log.Logger
	testMode bool

	table   *filestate.Table
	metrics *metrics.Metrics
	detector detect.Detector
	tailer  *tailer.Tailer
	queue   *queue.Queue
	health  *health.Monitor
	dash    *dashboard.Server
	syslog  *sink.SyslogSink
}

// New builds every component from cfg but does not yet start anything.
func New(cfg *config.Config, logger *log.Logger, testMode bool) (*Supervisor, error) {
	patternSet, err := patterns.Compile(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}
	bindings := binding.New(cfg.FilePatterns)
	buffers := contextbuf.New(cfg.Settings.BufferSize)
	limiter := ratelimit.New(cfg.Settings.RateLimitWindow())

	table := filestate.NewTable()
	m := metrics.New(table)

	q := queue.New(queueCapacity, cfg.Settings.MaxRetries, time.Second, logger)

	fanout := sink.NewFanoutSink(cfg.Notifications, cfg.NotificationRules, logger)
	q.Register(match.FanoutSelector, fanout)

	var syslogSink *sink.SyslogSink
	if cfg.Notifications.Syslog.Enabled {
		syslogSink = sink.NewSyslogSink(cfg.Notifications.Syslog, logger)
		q.Register(match.SyslogSelector, syslogSink)
	}
	q.OnSent(func(job *queue.Job) { m.IncSent() })
	q.OnFailed(func(job *queue.Job, sinkName string) { m.IncError("sink:" + sinkName) })

	detector, err := detect.NewOSDetector(logger, m)
	if err != nil {
		return nil, fmt.Errorf("create change detector: %w", err)
	}

	var checkers []health.Checker
	if cfg.Notifications.Email.Enabled {
		checkers = append(checkers, sink.NewEmailSender(cfg.Notifications.Email))
	}
	if syslogSink != nil {
		checkers = append(checkers, syslogSink)
	}
	h := health.New(m, checkers, cfg.Health.CheckIntervalDuration())

	var dash *dashboard.Server
	if cfg.Health.Enabled {
		dash = dashboard.New(cfg.Health, m, h, logger)
	}

	onRecent := func(record models.MatchRecord) {
		if dash != nil {
			dash.Push(record)
		}
	}
	engine := match.New(patternSet, bindings, buffers, limiter, q, m, logger, testMode, onRecent)
	t := tailer.New(cfg.Settings, table, m, engine.OnLine, logger)

	s := &Supervisor{
		cfg:      cfg,
		logger:   logger,
		testMode: testMode,
		table:    table,
		metrics:  m,
		detector: detector,
		tailer:   t,
		queue:    q,
		health:   h,
		dash:     dash,
		syslog:   syslogSink,
	}
	return s, nil
}

// Start seeds every monitored path at its current end-of-file, then
// starts the dispatcher pool, change detector, health poller, and (if
// enabled) the dashboard. Seeding must complete before the
// detector begins delivering events, or an early event could trigger
// a read pass against an unseeded (zero-offset) file and backfill its
// full history.
func (s *Supervisor) Start(ctx context.Context) error {
	paths := s.cfg.MonitoredPaths()
	for _, p := range paths {
		if err := s.tailer.Seed(p); err != nil {
			return fmt.Errorf("seed %s: %w", p, err)
		}
	}

	s.queue.Start(ctx, dispatchWorkers)

	events := make(chan string, 256)
	if err := s.detector.Start(ctx, paths, events); err != nil {
		return fmt.Errorf("start change detector: %w", err)
	}
	go s.pump(ctx, events)

	go s.health.Run(ctx)
	if s.dash != nil {
		go s.dash.Start(ctx)
	}

	return nil
}

func (s *Supervisor) pump(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			s.tailer.Notify(ctx, path)
		}
	}
}

// Stop drains the notification queue to deadline, then closes the
// detector and any open sink connections.
func (s *Supervisor) Stop() error {
	var firstErr error
	if err := s.queue.Stop(drainDeadline); err != nil {
		firstErr = err
	}
	if err := s.detector.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.syslog != nil {
		if err := s.syslog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
