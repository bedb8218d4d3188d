package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scormhub/internal/config"
	"scormhub/internal/database"
	"scormhub/internal/domain/scorm"
	"scormhub/internal/pkg/archive"
	jwtsvc "scormhub/internal/pkg/jwt"
	"scormhub/internal/pkg/logger"
	"scormhub/internal/pkg/session"
	"scormhub/internal/pkg/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("scormhub api stopped")
	}
}

// run serves the API until ctx is done.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.DatabaseURL, logger.Component("database"))
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db, scorm.Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage init failed (driver %s): %w", cfg.Storage.Driver, err)
	}

	packageRepo := scorm.NewPackageRepository(db)
	attemptRepo := scorm.NewAttemptRepository(db)

	cleanupCfg := scorm.DefaultCleanupConfig()
	cleanupCfg.Interval = cfg.CleanupInterval
	cleanupCfg.OrphanGrace = cfg.OrphanGrace
	cleaner := scorm.NewCleaner(store, cleanupCfg, log)
	stopCleanup := cleaner.Start(ctx)
	defer close(stopCleanup)

	packageService := scorm.NewService(packageRepo, store, cleaner, scorm.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Limits: archive.Limits{
			MaxEntries:           cfg.MaxArchiveEntries,
			MaxUncompressedBytes: cfg.MaxUncompressedBytes,
		},
		Concurrency: cfg.UploadConcurrency,
	}, log)
	contentService := scorm.NewContentService(packageRepo, store)
	statsService := scorm.NewStatsService(packageRepo, attemptRepo, cfg.StatsCacheBytes, cfg.StatsCacheTTL)
	attemptService := scorm.NewAttemptService(packageRepo, attemptRepo, statsService)

	scormHandler := scorm.NewHandler(packageService, contentService, statsService, attemptService,
		session.ContextProvider{}, log)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(routerDeps{
		JWT:         j,
		SCORM:       scormHandler,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Log:         logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Str("storage", cfg.Storage.Driver).
			Msg("scormhub api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// one last pass so failed uploads do not wait for the next start
	cleaner.RunOnce(shutdownCtx)
	return nil
}
