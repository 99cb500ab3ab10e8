package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mhartmann/telestats/internal/api"
	"github.com/mhartmann/telestats/internal/config"
	"github.com/mhartmann/telestats/internal/dedup"
	"github.com/mhartmann/telestats/internal/export"
	"github.com/mhartmann/telestats/internal/grouping"
	"github.com/mhartmann/telestats/internal/metrics"
	"github.com/mhartmann/telestats/internal/notify"
	"github.com/mhartmann/telestats/internal/outcome"
	"github.com/mhartmann/telestats/internal/report"
	"github.com/mhartmann/telestats/internal/stats"
	"github.com/mhartmann/telestats/internal/synccache"
	"github.com/mhartmann/telestats/internal/timewindow"
	"github.com/mhartmann/telestats/internal/transcription"
	"github.com/mhartmann/telestats/internal/upstream"
	"github.com/mhartmann/telestats/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Int("tz_offset_hours", cfg.BusinessTZOffsetHours).
		Msg("starting telestats server")

	// Connect the upstream store. No DSN means local development against
	// an empty store; a configured but unreachable store is fatal.
	var store upstream.Store
	if cfg.UpstreamDSN == "" {
		log.Warn().Msg("UPSTREAM_DSN not set, using noop store")
		store = upstream.NewNoopStore()
	} else {
		db, err := upstream.Connect(cfg.UpstreamDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect upstream store")
		}
		defer db.Close()
		store = upstream.NewSQLStore(db, cfg.UpstreamQueryTimeout, cfg.DurationUnit, log.Logger)
	}

	// Build the reporting pipeline
	classifier := outcome.NewClassifier(log.Logger)
	service := report.NewService(
		store,
		dedup.NewDeduplicator(log.Logger),
		timewindow.NewFilter(cfg.BusinessTZOffsetHours, log.Logger),
		classifier,
		stats.NewAggregator(cfg.WorkdayHours, log.Logger),
		grouping.NewEngine(log.Logger),
		log.Logger,
	)

	// Load outcome category tables. Failure is not fatal: everything
	// classifies as open until the tables arrive.
	if err := service.RefreshOutcomeTables(context.Background()); err != nil {
		log.Warn().Err(err).Msg("initial outcome table load failed, labels classify as open")
	}

	// Create notification hub
	hub := notify.NewHub(log.Logger)
	go hub.Run()

	// Create context for background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create sync cache and start its refresh loop
	syncCache := synccache.NewCache(
		service.FetchCallRecords,
		hub,
		classifier,
		cfg.BusinessTZOffsetHours,
		cfg.SyncPollInterval,
		nil,
		log.Logger,
	)
	go syncCache.Start(ctx)

	// Create handlers
	wsHandler := notify.NewHandler(hub, cfg, log.Logger)
	reportHandler := api.NewReportHandler(service, export.NewWriter(log.Logger), log.Logger)
	liveHandler := api.NewLiveHandler(syncCache, log.Logger)
	transcriptionHandler := api.NewTranscriptionHandler(
		transcription.NewClient(cfg.TranscribeURL, log.Logger), log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/reports/stats", reportHandler.GetStats)
		r.Get("/reports/export", reportHandler.ExportStats)
		r.Get("/calls", reportHandler.GetCalls)
		r.Get("/live/calls", liveHandler.GetCalls)
		r.Post("/transcriptions", transcriptionHandler.Submit)
		r.Get("/transcriptions/{jobId}", transcriptionHandler.Get)
	})

	r.Get("/ws", wsHandler.ServeHTTP)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the sync cache poller
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"telestats"}`)
}
