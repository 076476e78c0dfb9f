package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/cesargomez89/downtil/internal/app"
	"github.com/cesargomez89/downtil/internal/config"
	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/filecache"
	httpapp "github.com/cesargomez89/downtil/internal/http"
	"github.com/cesargomez89/downtil/internal/httpclient"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/progress"
	"github.com/cesargomez89/downtil/internal/queue"
	"github.com/cesargomez89/downtil/internal/store"
	"github.com/cesargomez89/downtil/internal/tagging"
	"github.com/cesargomez89/downtil/internal/worker"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB (lookup cache)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Extractor chain
	ytCfg := extractor.YTDLPConfig{UserAgent: cfg.UserAgent}
	if cfg.HasCookies() {
		ytCfg.CookiesFile = cfg.CookiesFile
		appLogger.Info("Using cookies file", "path", cfg.CookiesFile)
	}
	var ex extractor.Extractor = extractor.NewYTDLP(ytCfg, appLogger)
	ex = extractor.NewYouTubeProber(ex, appLogger)
	cached := extractor.NewCached(ex, db, cfg.ProbeCacheTTL)
	ex = cached

	// Initialize File Cache
	files, err := filecache.New(cfg.DownloadsDir)
	if err != nil {
		appLogger.Error("Failed to init downloads dir", "path", cfg.DownloadsDir, "error", err)
		os.Exit(1)
	}
	if cfg.PurgeOnStart {
		n, err := files.Purge()
		if err != nil {
			appLogger.Warn("Failed to purge downloads dir", "error", err)
		}
		appLogger.Info("Purged downloads dir", "path", files.Dir(), "removed", n)
		if err := cached.ClearCache(); err != nil {
			appLogger.Warn("Failed to clear lookup cache", "error", err)
		}
	}

	registry := jobs.NewRegistry()
	q := queue.New(registry, cfg.QueueCapacity, cfg.MaxActive)
	client := httpclient.NewClient(nil, constants.DefaultRequestsPerSec, cfg.UserAgent)

	// Initialize Worker Pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewPool(
		q,
		ex,
		progress.NewReporter(registry, appLogger),
		files,
		registry,
		tagging.NewTagger(client, appLogger),
		cfg.MaxWorkers,
		appLogger,
	)
	pool.Start(ctx)
	defer pool.Stop()

	// Initialize Services
	jobService := app.NewJobService(registry, q, files, appLogger)
	mediaService := app.NewMediaService(ex, client, appLogger)

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h, err := httpapp.NewHandler(jobService, mediaService, appLogger)
	if err != nil {
		appLogger.Error("Failed to init handlers", "error", err)
		os.Exit(1)
	}
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "workers", cfg.MaxWorkers, "max_active", cfg.MaxActive)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting")
}
