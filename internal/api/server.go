package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/audience-sizer/internal/config"
)

// Server is the HTTP front of the audience sizer.
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
}

// NewServer creates a server serving h with the configured CORS origins.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		config:   cfg,
		handler:  SetupRoutes(h, cfg.CORSOrigins),
		handlers: h,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Covers the catalog fetch, up to three LLM attempts and backoff.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
