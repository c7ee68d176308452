// Package dashboard exposes the process's metrics and health over a
// small HTTP/WebSocket surface: a JSON metrics/health endpoint plus a
// push feed of live match and metrics updates over /ws.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/health"
	"github.com/securityopsai/logwatcher/internal/metrics"
)

// Server serves the live dashboard when config.Health.Enabled is set.
type Server struct {
	cfg     config.Health
	metrics *metrics.Metrics
	health  *health.Monitor
	logger  *log.Logger

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan interface{}
}

// New creates a Server bound to cfg, metrics, and health.
func New(cfg config.Health, m *metrics.Metrics, h *health.Monitor, logger *log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		metrics: m,
		health:  h,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}, 100),
	}
}

// Push sends data to every connected WebSocket client, used by the
// match engine to stream live hits alongside periodic metrics ticks.
func (s *Server) Push(data interface{}) {
	select {
	case s.broadcast <- data:
	default:
		// a slow or absent audience should never block the pipeline
	}
}

// Start runs the HTTP server, the broadcaster, and a periodic metrics
// tick until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.broadcastLoop(ctx)
	go s.tickMetrics(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if s.logger != nil {
			s.logger.Printf("dashboard listening on %s", addr)
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Printf("dashboard server error: %v", err)
			}
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func (s *Server) tickMetrics(ctx context.Context) {
	interval := s.cfg.CheckIntervalDuration()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Push(s.metrics.Snapshot())
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.clientsMu.RLock()
			for client := range s.clients {
				if err := client.WriteJSON(message); err != nil {
					if s.logger != nil {
						s.logger.Printf("websocket write error: %v", err)
					}
					client.Close()
					s.removeClient(client)
				}
			}
			s.clientsMu.RUnlock()
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("websocket upgrade error: %v", err)
		}
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			s.removeClient(conn)
			break
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, conn)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <title>LogWatcher</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background: #1a1a1a; color: #fff; }
    .container { max-width: 1200px; margin: 0 auto; }
    h1 { color: #4CAF50; }
    .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 16px; margin: 20px 0; }
    .card { background: #2a2a2a; padding: 16px; border-radius: 8px; border-left: 4px solid #4CAF50; }
    .value { font-size: 1.8em; font-weight: bold; color: #4CAF50; }
    .label { color: #999; font-size: 0.85em; }
    .feed { background: #2a2a2a; padding: 16px; border-radius: 8px; max-height: 420px; overflow-y: auto; font-family: monospace; font-size: 0.85em; white-space: pre-wrap; }
    .status { font-size: 0.9em; }
  </style>
</head>
<body>
  <div class="container">
    <h1>LogWatcher</h1>
    <div class="status" id="status">connecting...</div>
    <div class="grid" id="metrics"></div>
    <h2>Recent matches</h2>
    <div class="feed" id="feed"></div>
  </div>
  <script>
    const ws = new WebSocket('ws://' + window.location.host + '/ws');
    const statusEl = document.getElementById('status');
    const metricsEl = document.getElementById('metrics');
    const feedEl = document.getElementById('feed');

    ws.onopen = () => { statusEl.textContent = 'connected'; };
    ws.onclose = () => { statusEl.textContent = 'disconnected'; };

    ws.onmessage = (event) => {
      const data = JSON.parse(event.data);
      if (data.matches_found !== undefined) {
        metricsEl.innerHTML =
          '<div class="card"><div class="label">Matches found</div><div class="value">' + data.matches_found + '</div></div>' +
          '<div class="card"><div class="label">Notifications sent</div><div class="value">' + data.notifications_sent + '</div></div>' +
          '<div class="card"><div class="label">Suppressed</div><div class="value">' + data.notifications_suppressed + '</div></div>' +
          '<div class="card"><div class="label">Dropped</div><div class="value">' + data.notifications_dropped + '</div></div>';
      } else if (data.message) {
        const div = document.createElement('div');
        div.textContent = data.message;
        feedEl.insertBefore(div, feedEl.firstChild);
        while (feedEl.children.length > 50) feedEl.removeChild(feedEl.lastChild);
      }
    };
  </script>
</body>
</html>`
