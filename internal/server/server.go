// Package server provides the HTTP server and routing for Cryptofolio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/clients/coingecko"
	"github.com/aristath/cryptofolio/internal/config"
	"github.com/aristath/cryptofolio/internal/database"
	"github.com/aristath/cryptofolio/internal/modules/allocation"
	allocationhandlers "github.com/aristath/cryptofolio/internal/modules/allocation/handlers"
	"github.com/aristath/cryptofolio/internal/modules/indicators"
	indicatorshandlers "github.com/aristath/cryptofolio/internal/modules/indicators/handlers"
	"github.com/aristath/cryptofolio/internal/modules/opportunities"
	opportunitieshandlers "github.com/aristath/cryptofolio/internal/modules/opportunities/handlers"
	"github.com/aristath/cryptofolio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/cryptofolio/internal/modules/portfolio/handlers"
	"github.com/aristath/cryptofolio/internal/modules/rebalancing"
	rebalancinghandlers "github.com/aristath/cryptofolio/internal/modules/rebalancing/handlers"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
	sentimenthandlers "github.com/aristath/cryptofolio/internal/modules/sentiment/handlers"
	"github.com/aristath/cryptofolio/internal/modules/settings"
	settingshandlers "github.com/aristath/cryptofolio/internal/modules/settings/handlers"
	"github.com/aristath/cryptofolio/internal/modules/stoploss"
	stoplosshandlers "github.com/aristath/cryptofolio/internal/modules/stoploss/handlers"
	"github.com/aristath/cryptofolio/internal/reliability"
	"github.com/aristath/cryptofolio/internal/scheduler"
)

// Config holds server configuration.
type Config struct {
	Log         zerolog.Logger
	Cfg         *config.Config
	PortfolioDB *database.DB
	CacheDB     *database.DB

	Markets    *coingecko.Client
	Settings   *settings.Repository
	Portfolios *portfolio.Service
	Indicators *indicators.Service
	Scorer     *sentiment.Scorer
	Engine     *allocation.Engine
	Rebalancer *rebalancing.Analyzer
	StopLoss   *stoploss.Analyzer
	Scanner    *opportunities.Scanner

	Stream  *SentimentStream
	Backups *reliability.BackupService // nil when backups are disabled
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	deps           Config
	stream         *SentimentStream
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Cfg,
		deps:   cfg,
		stream: cfg.Stream,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Cfg.DataDir,
		cfg.PortfolioDB,
		cfg.CacheDB,
		cfg.Backups,
		cfg.Stream,
	)

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(refresh, backup, maintenance scheduler.Job) {
	s.systemHandlers.SetJobs(refresh, backup, maintenance)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// WebSocket sentiment stream, fed by the scheduled refresh.
		r.Get("/sentiment/stream", s.stream.ServeHTTP)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/health", s.systemHandlers.HandleHealthCheck)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Get("/backups", s.systemHandlers.HandleListBackups)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/refresh", s.systemHandlers.HandleTriggerRefresh)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
				r.Post("/maintenance", s.systemHandlers.HandleTriggerMaintenance)
			})
		})

		sentimentHandler := sentimenthandlers.NewHandler(s.deps.Markets, s.deps.Scorer, s.log)
		sentimentHandler.RegisterRoutes(r)

		indicatorsHandler := indicatorshandlers.NewHandler(s.deps.Markets, s.deps.Indicators, s.cfg.DefaultCapital, s.log)
		indicatorsHandler.RegisterRoutes(r)

		allocationHandler := allocationhandlers.NewHandler(s.deps.Markets, s.deps.Scorer, s.deps.Engine, s.log)
		allocationHandler.RegisterRoutes(r)

		portfolioHandler := portfoliohandlers.NewHandler(s.deps.Portfolios, s.log)
		portfolioHandler.RegisterRoutes(r)

		rebalancingHandler := rebalancinghandlers.NewHandler(s.deps.Portfolios, s.deps.Rebalancer, s.log)
		rebalancingHandler.RegisterRoutes(r)

		stopLossHandler := stoplosshandlers.NewHandler(s.deps.Portfolios, s.deps.StopLoss, s.log)
		stopLossHandler.RegisterRoutes(r)

		opportunitiesHandler := opportunitieshandlers.NewHandler(s.deps.Portfolios, s.deps.Markets, s.deps.Scanner, s.log)
		opportunitiesHandler.RegisterRoutes(r)

		settingsHandler := settingshandlers.NewHandler(s.deps.Settings, s.log)
		settingsHandler.RegisterRoutes(r)
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
