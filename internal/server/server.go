// Package server hosts the webhook endpoint, health probes and the metrics
// endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default listen address for the webhook server.
	DefaultAddr = ":3000"

	// DefaultWebhookPath is where the platform posts deliveries.
	DefaultWebhookPath = "/webhook"

	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPRecorder receives one call per served request.
// *instrumentation.Metrics satisfies it.
type HTTPRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// Config holds the webhook server settings.
type Config struct {
	Addr        string
	WebhookPath string
}

// Server is the public HTTP server: webhook plus health probes.
type Server struct {
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger
}

// New creates the server. recorder may be nil.
func New(cfg Config, webhook http.Handler, health *HealthChecker, recorder HTTPRecorder, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = DefaultWebhookPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.WebhookPath, instrument(cfg.WebhookPath, webhook, recorder))
	health.RegisterHealthEndpoints(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
		health: health,
		logger: logger,
	}
}

// Handler returns the root handler (for testing).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting webhook server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and waits for in-flight deliveries.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down webhook server")
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under a fixed path label.
func instrument(path string, next http.Handler, recorder HTTPRecorder) http.Handler {
	if recorder == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		recorder.RecordHTTPRequest(r.Context(), r.Method, path, sr.status, time.Since(start))
	})
}
