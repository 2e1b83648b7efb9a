// Package server provides HTTP server setup, middleware, routes and graceful
// shutdown for the drug registry API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/giygas/drugregistry/config"
	"github.com/giygas/drugregistry/handlers"
	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	httpHandler *handlers.HTTPHandlerImpl
	limiter     *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance with injected dependencies
func NewServer(cfg *config.Config, cache interfaces.CacheService, validator interfaces.DataValidator, health interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              net.JoinHostPort(cfg.Address, cfg.Port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		router:      router,
		httpHandler: handlers.NewHTTPHandler(cache, validator, health),
		limiter:     NewRateLimiter(bucketRate, bucketCapacity),
		config:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(RequestSizeMiddleware(s.config.MaxRequestBody))
	s.router.Use(s.limiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.httpHandler

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/drugs", h.ListDrugs)
		r.Get("/drugs/{id}", h.GetDrug)
		r.Get("/classifications", h.ListClassifications)
		r.Get("/cache/status", h.CacheStatus)
		r.Post("/cache/{dataset}/reload", h.ReloadDataset)
	})

	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.limiter.StartCleanup(30 * time.Minute)

	logging.Info("Starting server", "address", s.server.Addr, "env", s.config.Env.String())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
