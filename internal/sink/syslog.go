package sink

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/queue"
)

// facilities maps the configured facility name to its RFC 3164
// numeric code. An unknown name falls back to local0 with a logged
// warning rather than a hard error, since a misconfigured facility
// should not stop a deployment from notifying at all.
var facilities = map[string]int{
	"kern": 0, "user": 1, "mail": 2, "daemon": 3,
	"auth": 4, "syslog": 5, "lpr": 6, "news": 7,
	"local0": 16, "local1": 17, "local2": 18, "local3": 19,
	"local4": 20, "local5": 21, "local6": 22, "local7": 23,
}

const severityInfo = 6 // RFC 3164 severity: informational

// SyslogSink forwards admitted matches to a remote syslog collector
// over UDP or TCP, framed as a minimal RFC 3164 message. The
// connection is opened lazily and kept across deliveries; a failed
// write drops the connection so the next attempt reconnects.
type SyslogSink struct {
	addr     string
	protocol string
	priority int
	tag      string
	logger   *log.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewSyslogSink builds a SyslogSink from cfg.
func NewSyslogSink(cfg config.SyslogConfig, logger *log.Logger) *SyslogSink {
	facility, ok := facilities[strings.ToLower(cfg.Facility)]
	if !ok {
		if logger != nil {
			logger.Printf("syslog: unknown facility %q, defaulting to local0", cfg.Facility)
		}
		facility = facilities["local0"]
	}

	protocol := strings.ToLower(cfg.Protocol)
	if protocol != "tcp" {
		protocol = "udp"
	}

	tag := cfg.Tag
	if tag == "" {
		tag = "logwatcher"
	}

	return &SyslogSink{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		protocol: protocol,
		priority: facility*8 + severityInfo,
		tag:      tag,
		logger:   logger,
	}
}

func (s *SyslogSink) Name() string { return "syslog" }

// Check confirms the syslog collector is reachable. Satisfies
// health.Checker.
func (s *SyslogSink) Check(ctx context.Context) error {
	_, err := s.connection(ctx)
	return err
}

func (s *SyslogSink) Deliver(ctx context.Context, job *queue.Job) error {
	conn, err := s.connection(ctx)
	if err != nil {
		return fmt.Errorf("syslog connect: %w", err)
	}

	frame := s.frame(job.Message)
	if _, err := conn.Write(frame); err != nil {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
		return fmt.Errorf("syslog write: %w", err)
	}
	return nil
}

func (s *SyslogSink) connection(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, s.protocol, s.addr)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// frame renders a single RFC 3164 datagram: <priority>timestamp host
// tag[pid]: message. The flattened one-line form strips the
// multi-line alert rendering's newlines, since most collectors treat
// each datagram as one log line.
func (s *SyslogSink) frame(message string) []byte {
	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}
	flat := strings.ReplaceAll(message, "\n", " | ")
	line := fmt.Sprintf("<%d>%s %s %s[%d]: %s\n",
		s.priority, time.Now().Format(time.Stamp), host, s.tag, os.Getpid(), flat)
	return []byte(line)
}

// Close releases the sink's connection, if any. Explicit rather than
// finalizer-based, so shutdown can be ordered deterministically.
func (s *SyslogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
