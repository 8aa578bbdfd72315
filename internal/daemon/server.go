package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"go.uber.org/zap"

	"github.com/polyroute/polyroute/internal/config"
	"github.com/polyroute/polyroute/internal/executor"
	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/llm/configbuilder"
	"github.com/polyroute/polyroute/internal/observability"
	"github.com/polyroute/polyroute/internal/orchestrator"
	"github.com/polyroute/polyroute/internal/route"
	"github.com/polyroute/polyroute/internal/rpc/orchestrate"
	"github.com/polyroute/polyroute/internal/rpc/schemas"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server hosts the orchestrator daemon: health/metrics plus the generate RPC
// and introspection endpoints.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *orchestrator.Service
	metrics *observability.Metrics
}

// NewServer constructs a daemon instance.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	registry, err := configbuilder.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	metrics := observability.NewMetrics()
	router := route.New(registry)
	exec := executor.New(llm.NewRegistryCaller(registry), logger)
	telemetry := orchestrator.NewTelemetryBuffer(cfg.Orchestrator.TelemetryCapacity, cfg.Orchestrator.TelemetryRetain)
	service := orchestrator.New(registry, router, exec, logger, metrics, telemetry)

	return &Server{cfg: cfg, logger: logger, service: service, metrics: metrics}, nil
}

// Service exposes the orchestration service, mainly for tests.
func (s *Server) Service() *orchestrator.Service {
	return s.service
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// error.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting polyroute daemon", zap.String("addr", s.cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down polyroute daemon")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Handler assembles the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/v1/stats", s.statsHandler)
	mux.HandleFunc("/v1/telemetry", s.telemetryHandler)
	mux.HandleFunc("/v1/models", s.modelsHandler)
	mux.Handle("/v1/schemas", schemas.Handler{})

	switch strings.ToLower(strings.TrimSpace(s.cfg.Server.Transport)) {
	case "ndjson":
		mux.Handle("/v1/generate", orchestrate.NewHandler(s.service, s.metrics))
	default:
		path, handler := orchestrate.NewConnectHandler(s.service, s.metrics)
		mux.Handle(path, handler)
		// keep the NDJSON path available for plain HTTP clients
		mux.Handle("/v1/generate", orchestrate.NewHandler(s.service, s.metrics))
	}

	handler := http.Handler(mux)
	if strings.ToLower(strings.TrimSpace(s.cfg.Server.Transport)) != "ndjson" {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return handler
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.MetricsEnabled {
		http.NotFound(w, r)
		return
	}

	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.service.GetStats())
}

// telemetryHandler drains the buffered per-request records. Reading clears
// the buffer, matching the flush semantics callers rely on.
func (s *Server) telemetryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records := s.service.GetAndClearTelemetry()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.service.Registry().List())
}
