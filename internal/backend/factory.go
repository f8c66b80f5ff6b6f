package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"barjas/internal/core"
	gsheet "barjas/internal/sheets/google"
	"barjas/internal/sheets/memory"
	"barjas/internal/sheets/xlsx"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx)
	case XLSXBackend:
		return f.createXLSXBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context) (*Result, error) {
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend")
	return &Result{Store: cli}, nil
}

func (f *DefaultFactory) createXLSXBackend(ctx context.Context, config Config) (*Result, error) {
	path := config.XLSXPath
	_, err := os.Stat(path)
	switch {
	case err == nil:
		store, err := xlsx.Open(path)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized xlsx backend", "path", path)
		return &Result{Store: store}, nil
	case errors.Is(err, os.ErrNotExist):
		store, err := seedWorkbook(ctx, path)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Created xlsx backend from demo data", "path", path)
		return &Result{Store: store}, nil
	default:
		return nil, fmt.Errorf("stat workbook %s: %w", path, err)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := memory.NewFromDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Result{Store: store}, nil
}

// seedWorkbook writes the demo sheets to a new workbook at path.
func seedWorkbook(ctx context.Context, path string) (*xlsx.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create workbook directory: %w", err)
	}
	demo := memory.Demo()
	order, err := demo.ListWorksheets(ctx)
	if err != nil {
		return nil, err
	}
	sheets := make(map[string]core.RawSheet, len(order))
	for _, name := range order {
		if sheets[name], err = demo.ReadAll(ctx, name); err != nil {
			return nil, err
		}
	}
	return xlsx.Create(path, sheets, order)
}
