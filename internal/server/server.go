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

	"github.com/aristath/put-screener/internal/clients/yahoo"
	"github.com/aristath/put-screener/internal/config"
	"github.com/aristath/put-screener/internal/database"
	"github.com/aristath/put-screener/internal/modules/history"
	"github.com/aristath/put-screener/internal/modules/metrics"
	"github.com/aristath/put-screener/internal/modules/screener"
	"github.com/aristath/put-screener/internal/modules/settings"
	"github.com/aristath/put-screener/internal/modules/universe"
	"github.com/aristath/put-screener/internal/reliability"
	"github.com/aristath/put-screener/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	UniverseDB    *database.DB
	ConfigDB      *database.DB
	HistoryDB     *database.DB
	ResultsDB     *database.DB
	Config        *config.Config
	Port          int
	DevMode       bool
	Scheduler     *scheduler.Scheduler
	Runner        *screener.Runner
	HealthChecker *reliability.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	universeDB     *database.DB
	configDB       *database.DB
	historyDB      *database.DB
	resultsDB      *database.DB
	cfg            *config.Config
	systemHandlers *SystemHandlers
	runner         *screener.Runner
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	// System handlers report on the universe and all four databases
	securityRepo := universe.NewRepository(cfg.UniverseDB.Conn(), cfg.Log)

	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Scheduler,
		cfg.HealthChecker,
		securityRepo,
		cfg.UniverseDB,
		cfg.ConfigDB,
		cfg.HistoryDB,
		cfg.ResultsDB,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		universeDB:     cfg.UniverseDB,
		configDB:       cfg.ConfigDB,
		historyDB:      cfg.HistoryDB,
		resultsDB:      cfg.ResultsDB,
		cfg:            cfg.Config,
		systemHandlers: systemHandlers,
		runner:         cfg.Runner,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// System monitoring and operations
		s.setupSystemRoutes(r)

		// Settings module
		s.setupSettingsRoutes(r)

		// Universe module
		s.setupUniverseRoutes(r)

		// History module
		s.setupHistoryRoutes(r)

		// Metrics module
		s.setupMetricsRoutes(r)

		// Screener module
		s.setupScreenerRoutes(r)
	})
}

// setupSystemRoutes configures system monitoring and operations routes
func (s *Server) setupSystemRoutes(r chi.Router) {
	systemHandlers := s.systemHandlers

	r.Route("/system", func(r chi.Router) {
		// GET /api/system/status - CPU, RAM, uptime and database sizes
		r.Get("/status", systemHandlers.HandleSystemStatus)

		// GET /api/system/databases - Per-database integrity and size metrics
		r.Get("/databases", systemHandlers.HandleDatabases)

		// GET /api/system/jobs - List registered scheduler jobs
		r.Get("/jobs", systemHandlers.HandleListJobs)

		// POST /api/system/jobs/{name}/run - Trigger a job immediately
		r.Post("/jobs/{name}/run", systemHandlers.HandleRunJob)
	})
}

// setupUniverseRoutes configures universe module routes
func (s *Server) setupUniverseRoutes(r chi.Router) {
	// Initialize universe module components
	securityRepo := universe.NewRepository(s.universeDB.Conn(), s.log)
	settingsRepo := settings.NewRepository(s.configDB.Conn(), s.log)
	yahooClient := yahoo.NewClient(s.log)
	validator := database.NewUniverseValidator(s.universeDB.Conn())

	service := universe.NewService(securityRepo, yahooClient, settingsRepo, s.log)
	handlers := universe.NewHandlers(securityRepo, service, validator, s.log)

	r.Route("/universe", func(r chi.Router) {
		// GET /api/universe - List securities (?filter=stocks|etfs|all)
		r.Get("/", handlers.HandleList)

		// GET /api/universe/stats - Universe composition counts
		r.Get("/stats", handlers.HandleStats)

		// GET /api/universe/validate - Run integrity checks on the universe
		r.Get("/validate", handlers.HandleValidate)

		// POST /api/universe/populate - Discover and add US stocks from screening
		r.Post("/populate", handlers.HandlePopulate)

		// POST /api/universe/symbols - Add specific symbols
		r.Post("/symbols", handlers.HandleAddSymbols)

		// POST /api/universe/refresh - Refresh quote data for active securities
		r.Post("/refresh", handlers.HandleRefresh)

		// GET /api/universe/{symbol} - Get a single security
		r.Get("/{symbol}", handlers.HandleGet)

		// POST /api/universe/{symbol}/reactivate - Reactivate a security
		r.Post("/{symbol}/reactivate", handlers.HandleReactivate)

		// DELETE /api/universe/{symbol} - Deactivate a security
		r.Delete("/{symbol}", handlers.HandleDeactivate)
	})
}

// setupHistoryRoutes configures price history module routes
func (s *Server) setupHistoryRoutes(r chi.Router) {
	// Initialize history module components
	historyRepo := history.NewRepository(s.historyDB.Conn(), s.log)
	securityRepo := universe.NewRepository(s.universeDB.Conn(), s.log)
	settingsRepo := settings.NewRepository(s.configDB.Conn(), s.log)
	yahooClient := yahoo.NewNativeClient(s.log)

	service := history.NewSyncService(historyRepo, securityRepo, yahooClient, settingsRepo, s.log)
	handlers := history.NewHandlers(historyRepo, service, s.log)

	r.Route("/history", func(r chi.Router) {
		// GET /api/history/status - Sync status for all symbols
		r.Get("/status", handlers.HandleStatus)

		// POST /api/history/sync - Sync daily bars for the whole universe
		r.Post("/sync", handlers.HandleSyncAll)

		// POST /api/history/sync/{symbol} - Sync daily bars for one symbol
		r.Post("/sync/{symbol}", handlers.HandleSyncSymbol)

		// GET /api/history/{symbol} - Daily bars, newest first (?limit=N)
		r.Get("/{symbol}", handlers.HandleGetPrices)
	})
}

// setupMetricsRoutes configures metrics module routes
func (s *Server) setupMetricsRoutes(r chi.Router) {
	// Initialize metrics module components
	metricsRepo := metrics.NewRepository(s.historyDB.Conn(), s.log)
	historyRepo := history.NewRepository(s.historyDB.Conn(), s.log)
	securityRepo := universe.NewRepository(s.universeDB.Conn(), s.log)
	settingsRepo := settings.NewRepository(s.configDB.Conn(), s.log)
	yahooClient := yahoo.NewClient(s.log)

	service := metrics.NewService(metricsRepo, securityRepo, historyRepo, yahooClient, settingsRepo, s.log)
	handlers := metrics.NewHandlers(metricsRepo, service, s.log)

	r.Route("/metrics", func(r chi.Router) {
		// POST /api/metrics/calculate - Recalculate metrics for all active stocks
		r.Post("/calculate", handlers.HandleCalculateAll)

		// POST /api/metrics/calculate/{symbol} - Recalculate metrics for one symbol
		r.Post("/calculate/{symbol}", handlers.HandleCalculateSymbol)

		// GET /api/metrics/{symbol} - Latest stored metrics for a symbol
		r.Get("/{symbol}", handlers.HandleGet)
	})
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
