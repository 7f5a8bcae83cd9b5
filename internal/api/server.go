package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quayside/airdropd/internal/analytics"
	"github.com/quayside/airdropd/internal/config"
	"github.com/quayside/airdropd/internal/engine"
	"github.com/quayside/airdropd/internal/metrics"
	"github.com/quayside/airdropd/internal/repository"
)

// Server is the control-plane HTTP API: campaign CRUD, engine commands,
// listings, analytics. It only reads and commands; all execution state is
// owned by the engine.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	engine     *engine.Engine
	metrics    *metrics.Metrics
	logger     *slog.Logger

	campaigns    *repository.CampaignRepository
	recipients   *repository.RecipientRepository
	transactions *repository.TransactionRepository
	logs         *repository.LogRepository
	analytics    *analytics.Aggregator
}

// NewServer creates the API server
func NewServer(cfg *config.Config, db *sql.DB, eng *engine.Engine, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		cfg:          cfg,
		engine:       eng,
		metrics:      m,
		logger:       logger.With("component", "api"),
		campaigns:    repository.NewCampaignRepository(db),
		recipients:   repository.NewRecipientRepository(db),
		transactions: repository.NewTransactionRepository(db),
		logs:         repository.NewLogRepository(db),
		analytics:    analytics.New(db),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health and metrics (no auth required)
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/campaigns", s.handleCampaignCreate)
		r.Get("/campaigns", s.handleCampaignList)
		r.Get("/campaigns/{id}", s.handleCampaignGet)
		r.Delete("/campaigns/{id}", s.handleCampaignDelete)

		r.Post("/campaigns/{id}/start", s.handleCampaignStart)
		r.Post("/campaigns/{id}/pause", s.handleCampaignPause)
		r.Post("/campaigns/{id}/resume", s.handleCampaignResume)
		r.Post("/campaigns/{id}/stop", s.handleCampaignStop)

		r.Get("/campaigns/{id}/recipients", s.handleRecipientList)
		r.Get("/campaigns/{id}/transactions", s.handleTransactionList)
		r.Get("/campaigns/{id}/logs", s.handleLogList)
		r.Get("/campaigns/{id}/analytics", s.handleAnalytics)

		r.Post("/recipients/parse", s.handleRecipientsParse)
		r.Post("/estimate", s.handleFeeEstimate)
	})
}

// Handler returns the configured router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", s.cfg.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
