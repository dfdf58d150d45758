// Package server exposes the job's health and metrics endpoints over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const stopWaitTime = 5 * time.Second

// Config holds the HTTP listener settings.
type Config struct {
	Host string `env:"HOST" envDefault:""`
	Port string `env:"PORT" envDefault:"7070"`
}

// Server serves /health and /metrics until its context is cancelled.
type Server struct {
	server  *http.Server
	svcName string
	logger  *slog.Logger
}

// New builds the server for the given service name, serving metrics from
// the run's own registry.
func New(cfg Config, svcName string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := chi.NewRouter()
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/health+json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "pass",
			"service": svcName,
		})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Handler: mux,
		},
		svcName: svcName,
		logger:  logger,
	}
}

// Start runs the listener and shuts it down gracefully once ctx is done.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(fmt.Sprintf("%s HTTP server listening at %s", s.svcName, s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err

			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopWaitTime)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info(fmt.Sprintf("%s HTTP server stopped", s.svcName))

		return nil
	case err := <-errCh:
		return err
	}
}
