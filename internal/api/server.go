// Package api provides the HTTP API server and handlers for the review
// dashboard.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hipnotiq/revisor/internal/health"
	"github.com/hipnotiq/revisor/internal/observe"
	"github.com/hipnotiq/revisor/internal/review"
	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/internal/suggest"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	manager   *review.Manager
	suggester *suggest.Pipeline
	store     store.Store
	metrics   *observe.Metrics
	health    *health.Handler
	router    *chi.Mux
	logger    *slog.Logger
}

// ServerConfig holds all dependencies for a [Server].
type ServerConfig struct {
	Manager   *review.Manager
	Suggester *suggest.Pipeline
	Store     store.Store
	Metrics   *observe.Metrics
	Health    *health.Handler
	Logger    *slog.Logger

	// CORSOrigins lists allowed origins for the dashboard frontend.
	// Empty means no CORS headers are emitted.
	CORSOrigins []string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	healthHandler := cfg.Health
	if healthHandler == nil {
		healthHandler = health.New()
	}

	s := &Server{
		manager:   cfg.Manager,
		suggester: cfg.Suggester,
		store:     cfg.Store,
		metrics:   metrics,
		health:    healthHandler,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes()

	// The active-sessions gauge reads the manager directly so idle expiry is
	// reflected without an explicit decrement anywhere.
	if s.manager != nil {
		if _, err := metrics.ObserveActiveSessions(func() int64 {
			return int64(s.manager.Count())
		}); err != nil {
			logger.Warn("failed to register active-sessions gauge", "error", err)
		}
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(corsOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(observe.Middleware(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if len(corsOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Correlation-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Probes and metrics.
	s.router.Get("/healthz", s.health.Healthz)
	s.router.Get("/readyz", s.health.Readyz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/requests/{id}", func(r chi.Router) {
			r.Post("/sessions", s.handleOpenSession)
			r.Get("/submissions", s.handleListSubmissions)
		})

		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)

			r.Get("/diff/{audioNumber}", s.handleDiff)

			r.Route("/corrections/{audioNumber}", func(r chi.Router) {
				r.Put("/", s.handlePutCorrection)
				r.Delete("/", s.handleDeleteCorrection)
				r.Post("/regen", s.handleToggleRegen)
				r.Post("/confirm", s.handleToggleConfirm)
			})

			r.Post("/sections/{sectionIndex}/remake", s.handleToggleRemake)
			r.Post("/suggest/{audioNumber}", s.handleSuggest)
			r.Post("/submit", s.handleSubmit)
		})
	})
}
