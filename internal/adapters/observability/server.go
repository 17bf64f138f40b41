package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the engine's prometheus registry plus a basic health
// endpoint. It is optional; embedding callers that already run an HTTP
// surface can mount promhttp themselves.
type Server struct {
	port      int
	server    *http.Server
	logger    *slog.Logger
	registry  *prometheus.Registry
	startTime time.Time
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Uptime     string    `json:"uptime"`
	Goroutines int       `json:"goroutines"`
}

func NewServer(port int, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		port:     port,
		logger:   logger.With("component", "observability-server"),
		registry: registry,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.startTime = time.Now()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		s.logger.Info("observability server starting", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Debug("stopping observability server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now(),
		Uptime:     time.Since(s.startTime).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}
