package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"scormhub/internal/config"
	"scormhub/internal/database"
	"scormhub/internal/domain/scorm"
	"scormhub/internal/pkg/logger"
	"scormhub/internal/pkg/storage"
)

// storage_cleanup removes package prefixes that have no package record,
// e.g. files left behind by uploads interrupted before the record was saved.
func main() {
	if err := run(os.Args[1:]); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("storage cleanup failed")
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("storage_cleanup", flag.ContinueOnError)
	grace := fs.Duration("grace", 0, "ignore prefixes written within this window (default ORPHAN_GRACE)")
	timeout := fs.Duration("timeout", 10*time.Minute, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("storage_cleanup")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Connect(cfg.DatabaseURL, logger.Component("database"))
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer database.Close(db)

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}

	cleanupCfg := scorm.DefaultCleanupConfig()
	cleanupCfg.OrphanGrace = cfg.OrphanGrace
	if *grace > 0 {
		cleanupCfg.OrphanGrace = *grace
	}
	cleaner := scorm.NewCleaner(store, cleanupCfg, log)

	orphans, err := cleaner.SweepOrphans(ctx, scorm.NewPackageRepository(db))
	if err != nil {
		return fmt.Errorf("orphan sweep failed: %w", err)
	}

	left := cleaner.Pending()
	log.Info().Int("orphans", orphans).Int("not_removed", len(left)).Strs("pending", left).
		Msg("storage cleanup completed")
	return nil
}
