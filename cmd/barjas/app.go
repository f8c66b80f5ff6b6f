package main

import (
	"context"
	"fmt"

	"barjas/internal/backend"
	"barjas/internal/cli"
	"barjas/internal/config"
	"barjas/internal/core"
	applog "barjas/internal/log"
	"barjas/internal/report"
	"barjas/internal/services"
	"barjas/internal/sheets"
)

// app holds what every command needs: validated configuration, the logger
// and the worksheet store selected by DATA_BACKEND.
type app struct {
	cfg        *config.Config
	logger     *applog.Logger
	store      sheets.Store
	cleanup    backend.CleanupFunc
	reconciler core.Reconciler
	normalizer core.Normalizer
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	rules, err := core.ParseRoleRules(cfg.ColumnRoleRules)
	if err != nil {
		return nil, err
	}
	policy, err := core.ParseMissingPolicy(cfg.MissingValuePolicy)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   res.Store,
		cleanup: res.Cleanup,
		reconciler: core.Reconciler{
			Placeholder: cfg.PlaceholderLabel,
			Classifier:  core.DefaultClassifier(rules...),
		},
		normalizer: core.Normalizer{Missing: policy},
	}, nil
}

func (a *app) Close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Warn("Backend cleanup failed", applog.FieldError, err)
	}
}

// dashboard builds the tracking-sheet service. history and events may be nil.
func (a *app) dashboard(history services.SaveLogger, events services.EventPublisher) *services.DashboardService {
	return services.NewDashboardService(a.store, a.reconciler, services.DashboardOptions{
		HeaderRows:       a.cfg.HeaderRows,
		Anchor:           a.cfg.Anchor(),
		Allowed:          sheets.AllowList(a.cfg.AllowedSheetList()),
		ClearRemovedRows: a.cfg.ClearRemovedRows,
		CatalogTTL:       a.cfg.WorksheetCacheTTL,
	}, history, events)
}

func (a *app) analysis() *services.AnalysisService {
	return services.NewAnalysisService(a.store, a.reconciler,
		report.NewSelector(report.DefaultFields(), a.normalizer),
		a.cfg.AnalysisSheet, a.cfg.HeaderMarker, a.cfg.WorksheetCacheTTL)
}
