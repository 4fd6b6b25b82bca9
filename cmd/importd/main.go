// importd is the long-running import service: it polls the import-run
// ledger for pending tasks, fetches their CSV bundles from storage and
// runs them through the import engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/importer"
	"github.com/graph-import/internal/repository"
	"github.com/graph-import/internal/scheduler"
	"github.com/graph-import/internal/storage"
	"github.com/graph-import/pkg/config"
	"github.com/graph-import/pkg/telemetry"
	"github.com/graph-import/pkg/utils"
)

var (
	configPath = flag.String("c", "", "Path to config file (default: ./config.yaml search path)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := utils.ParseLogLevel(cfg.Log.Level)
	if *verbose {
		logLevel = utils.LevelDebug
	}
	logger := utils.NewDefaultLogger(logLevel, os.Stdout)
	utils.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		logger.Warn("telemetry init failed: %v", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.Error("failed to create data dir: %v", err)
		os.Exit(1)
	}

	db, err := repository.NewGormDB(&cfg.Database)
	if err != nil {
		logger.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate ledger tables: %v", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Error("failed to init storage: %v", err)
		os.Exit(1)
	}

	taskRepo := repository.NewGormTaskRepository(db)
	summaryRepo := repository.NewGormSummaryRepository(db)

	opts := importOptions(cfg)
	processor := scheduler.NewImportProcessor(store, taskRepo, summaryRepo, cfg.Import.DataDir, opts, logger)

	s := scheduler.NewScheduler(scheduler.FromConfig(&cfg.Scheduler), taskRepo, processor, logger)
	logger.Info("importd starting (db=%s, storage=%s)", cfg.Database.Type, cfg.Storage.Type)
	s.Run(ctx)
}

// importOptions maps the service configuration onto engine options.
func importOptions(cfg *config.Config) importer.Options {
	opts := importer.DefaultOptions()
	opts.Concurrency = cfg.Import.Concurrency
	opts.NodeBatchSize = cfg.Import.NodeBatchSize
	opts.RelationshipBatchSize = cfg.Import.RelationshipBatchSize
	opts.DeduplicateIDs = cfg.Import.DeduplicateIDs
	opts.SkipDanglingRelationships = cfg.Import.SkipDanglingRelationships
	opts.UsePooledBuilderProvider = cfg.Import.UsePooledBuilderProvider
	opts.PoolAcquireTimeout = time.Duration(cfg.Import.PoolAcquireTimeoutSec) * time.Second
	if t, err := idmap.ParseBuilderType(cfg.Import.IDMapType); err == nil {
		opts.IDMapType = t
	}
	return opts
}
