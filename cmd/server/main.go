/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the report mapper server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Create the upload directory
  3. Create the job store, worker queue and cleanup scheduler
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: $PORT or 8080)
  -uploads  Upload directory (default: $UPLOAD_DIR or ./uploads)
  -env      .env file to load (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the queue, letting running jobs finish
  4. Stop the cleanup scheduler
  5. Exit

ENVIRONMENT:
  PORT, UPLOAD_DIR, LOG_LEVEL, LOG_FORMAT, FILE_RETENTION, CLEANUP_INTERVAL,
  MAX_UPLOAD_BYTES, WORKERS, ALLOWED_ORIGINS, UPLOAD_INTERVAL, UPLOAD_BURST.
  See config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - jobs/queue.go: Background workers
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/ctr-mapper/api"
	"github.com/warp/ctr-mapper/config"
	"github.com/warp/ctr-mapper/jobs"
	"github.com/warp/ctr-mapper/logger"
	"golang.org/x/time/rate"
)

// jobs waiting beyond this many per worker are refused with 503
const queuePerWorker = 16

func main() {
	// Flags
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	uploads := flag.String("uploads", "", "upload directory (overrides UPLOAD_DIR)")
	envFile := flag.String("env", ".env", ".env file to load")
	flag.Parse()

	bootLog := logger.New("info", logger.FormatConsole)
	cfg := config.Load(bootLog, *envFile)
	if *port != "" {
		cfg.Port = *port
	}
	if *uploads != "" {
		cfg.UploadDir = *uploads
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload directory")
	}

	// Jobs expire with their files
	store := jobs.NewStore(cfg.FileRetention, cfg.CleanupInterval, func(j jobs.Job) {
		api.RemoveJobFiles(log, j.InputPath, j.OutputPath)
	})
	queue := jobs.NewQueue(cfg.Workers, cfg.Workers*queuePerWorker, store)

	files := api.NewCleanupScheduler(cfg.UploadDir, cfg.FileRetention, log)
	files.CheckInterval = cfg.CleanupInterval

	handler := api.NewHandler(store, queue, files, cfg.UploadDir, cfg.MaxUploadBytes, log)
	handler.UploadLimiter = rate.NewLimiter(rate.Every(cfg.UploadInterval), cfg.UploadBurst)

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()
	if err := queue.Start(ctx, handler.Process); err != nil {
		log.Fatal().Err(err).Msg("failed to start job queue")
	}
	files.Start()

	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("uploads", cfg.UploadDir).
			Int("workers", cfg.Workers).
			Dur("retention", cfg.FileRetention).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("jobs still running at shutdown")
	}
	files.Stop()

	log.Info().Msg("server stopped")
}
