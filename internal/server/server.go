// Package server implements the webhook gateway's HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/revware/pr-sentinel/internal/config"
)

const shutdownGrace = 30 * time.Second

// Server runs the webhook gateway with graceful shutdown. The generous
// write timeout covers signature validation on large event payloads; the
// handler itself never blocks on review work.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the gateway server serving the given router.
func NewServer(cfg *config.Config, router *chi.Mux, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}
}

// Start listens for webhook deliveries and blocks until Stop is called
// or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("webhook gateway listening", "address", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook gateway failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests before closing the listener.
func (s *Server) Stop() error {
	s.logger.Info("stopping webhook gateway", "grace", shutdownGrace)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
