package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/drugregistry/config"
	"github.com/giygas/drugregistry/data"
	"github.com/giygas/drugregistry/health"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/registryparser"
	"github.com/giygas/drugregistry/scheduler"
	"github.com/giygas/drugregistry/server"
	"github.com/giygas/drugregistry/storage"
	"github.com/giygas/drugregistry/validation"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the datasets and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at info level in the test environment")
	return cmd
}

// openStorage picks the durable store: SQLite at CACHE_DB_PATH, or memory
// when it is set to config.MemoryCache.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.CacheDBPath == config.MemoryCache {
		logging.Warn("In-memory cache storage selected, snapshots will not survive restarts")
		return storage.NewMemoryStore(cfg.CacheQuotaBytes), nil
	}
	return storage.OpenSQLite(cfg.CacheDBPath, cfg.CacheQuotaBytes)
}

func runServe(ctx context.Context, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logSvc := logging.Init(logging.Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		ConsoleLevel:   logging.GetConsoleLogLevel(cfg.Env, cfg.LogLevel, verbose),
		FileLevel:      logging.GetFileLogLevel(),
	})
	defer func() { _ = logSvc.Close() }()

	store, err := openStorage(cfg)
	if err != nil {
		logging.Error("Failed to open cache storage", "path", cfg.CacheDBPath, "error", err)
		return fmt.Errorf("open cache storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn("Failed to close cache storage", "error", err)
		}
	}()

	validator := validation.NewDataValidator()
	svc := data.NewService(data.Options{
		Storage:               store,
		DrugsFetcher:          registryparser.NewFetcher(cfg.DrugsFeedURL, cfg.FetchTimeout),
		ClassificationFetcher: registryparser.NewFetcher(cfg.ClassificationURL, cfg.FetchTimeout),
		DataSource:            cfg.DataSource,
		FetchTimeout:          cfg.FetchTimeout,
		Validator:             validator,
	})
	svc.Start()

	sched := scheduler.NewScheduler(svc.Orchestrator(), svc, cfg.RefreshCron, nil)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, svc, validator, health.NewHealthChecker(svc, nil))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight loads finish so their snapshots are written before the store closes.
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logging.Warn("Dataset loads still running at shutdown")
	}

	logging.Info("Shutdown complete")
	return nil
}
