// Package server exposes the HTTP surface of the gateway: session
// bootstrap, the chat endpoint driving the reasoning loop, and the map
// search typeahead.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haasonsaas/mapgate/internal/agent"
	"github.com/haasonsaas/mapgate/internal/config"
	"github.com/haasonsaas/mapgate/internal/history"
	"github.com/haasonsaas/mapgate/internal/observability"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/internal/session"
	"github.com/haasonsaas/mapgate/internal/tools/googlemaps"
)

// Server wires the HTTP handlers to the gateway's components.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	history  *history.Manager
	loop     *agent.Loop
	registry *registry.Registry
	maps     *googlemaps.Client // nil when no Google Maps key configured
	metrics  *observability.Metrics
	logger   *slog.Logger

	httpServer *http.Server
}

// Options carries the dependencies for New.
type Options struct {
	Config   *config.Config
	Sessions *session.Manager
	History  *history.Manager
	Loop     *agent.Loop
	Registry *registry.Registry
	Maps     *googlemaps.Client
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      opts.Config,
		sessions: opts.Sessions,
		history:  opts.History,
		loop:     opts.Loop,
		registry: opts.Registry,
		maps:     opts.Maps,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Handler builds the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/bootstrap", s.handleBootstrap)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /search/places", s.handleSearchPlaces)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = loggingMiddleware(s.logger)(h)
	h = corsMiddleware(s.cfg.Server.FrontendOrigin)(h)
	return h
}

// ListenAndServe runs the HTTP server until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
