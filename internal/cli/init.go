// Package cli holds the start-up steps shared by the barjas commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"barjas/internal/config"
	applog "barjas/internal/log"
	"barjas/internal/storage"
)

// SetupLogger installs a text logger at level as the slog default. An
// unknown level falls back to info.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: applog.ComponentApp})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads .env for local development; a missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite opens the save log, or returns nil when dbPath is empty.
func InitSQLite(logger *applog.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	if dbPath == "" {
		logger.Info("Save history disabled", "reason", "SQLITE_DB_PATH is empty")
		return nil, nil
	}
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initialize save log at %s: %w", dbPath, err)
	}
	version, dirty, err := storage.SchemaVersion(dbPath)
	if err != nil {
		logger.Warn("Cannot read save log schema version", "path", dbPath, "error", err)
	}
	logger.Info("Save history enabled", "path", dbPath, "schema_version", version, "dirty", dirty)
	return repo, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs with a context bounded by timeout before the returned channel closes.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
