// Package httpserver exposes the engine's HTTP API: price quotes, buy
// intent submission, buyer polling, the settlement event stream, and the
// operational endpoints.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/events"
	"github.com/mselser95/auction-engine/internal/intent"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/healthprobe"
)

// Server provides the engine's HTTP endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Store         storage.Store
	Listings      *listings.Service
	Nonces        *nonce.Store
	Validator     *intent.Validator
	Limiter       *ratelimit.Limiter
	Hub           *events.Hub
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Operational routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Engine API
	h := NewEngineHandler(cfg.Store, cfg.Listings, cfg.Nonces, cfg.Validator, cfg.Limiter, cfg.Logger)
	r.Get("/listings/{id}/price", h.HandleQuote)
	r.Post("/listings/{id}/buy_intents", h.HandleSubmitIntent)
	r.Get("/buy_intents/{id}", h.HandleGetIntent)

	// Demo operator triggers
	r.Post("/admin/listings", h.HandleSeedListing)
	r.Post("/admin/listings/{id}/reset", h.HandleResetAuction)
	r.Post("/admin/listings/{id}/force-breach", h.HandleForceBreach)
	r.Post("/admin/listings/{id}/time-warp", h.HandleTimeWarp)

	// Event stream
	if cfg.Hub != nil {
		r.Get("/ws/events", cfg.Hub.HandleWS)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Router returns the configured handler, for tests.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
