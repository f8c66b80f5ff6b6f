package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"barjas/internal/amqp"
	"barjas/internal/cache"
	"barjas/internal/cli"
	apphttp "barjas/internal/http"
	applog "barjas/internal/log"
	"barjas/internal/middleware/ratelimit"
	"barjas/internal/services"
	"barjas/internal/session"
)

type serveOptions struct {
	saveLimit       int
	saveWindow      time.Duration
	trustedProxies  []string
	cleanupInterval time.Duration
	shutdownTimeout time.Duration
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	def := ratelimit.DefaultConfig()
	cmd.Flags().IntVar(&opts.saveLimit, "save-limit", def.Requests, "Saves allowed per client within --save-window")
	cmd.Flags().DurationVar(&opts.saveWindow, "save-window", def.Window, "Rate limit window for saves")
	cmd.Flags().StringSliceVar(&opts.trustedProxies, "trusted-proxies", nil, "CIDRs whose X-Forwarded-For is trusted (default: loopback and private ranges)")
	cmd.Flags().DurationVar(&opts.cleanupInterval, "cache-cleanup", time.Minute, "Interval between expired cache sweeps")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 30*time.Second, "Grace period for in-flight requests")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	repo, err := cli.InitSQLite(logger, a.cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	var (
		history services.SaveLogger
		events  services.EventPublisher
		checks  []apphttp.ReadinessCheck
	)
	if repo != nil {
		defer repo.Close()
		history = repo
		checks = append(checks, apphttp.ReadinessCheck{Name: "history", Check: repo.Ping})
	}

	if a.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			// Saves still succeed without events.
			logger.WithComponent(applog.ComponentAMQP).Error("AMQP unavailable, save events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			events = client
			logger.WithComponent(applog.ComponentAMQP).Info("Publishing save events",
				"exchange", a.cfg.AMQPExchange, "queue", a.cfg.AMQPQueue)
		}
	}

	dashboard := a.dashboard(history, events)
	analysis := a.analysis()
	sessions := session.NewManager(a.cfg.MaxSessions, a.cfg.SessionTTL, a.cfg.SecureCookies)

	caches := cache.NewManager()
	caches.Register("sessions", sessions.Cleaner())
	caches.Register("worksheets", dashboard.Catalog())
	caches.Register("analysis", analysis.Tables())
	caches.StartCleanup(opts.cleanupInterval)

	srv, err := apphttp.NewServer(":"+a.cfg.Port, apphttp.Deps{
		Dashboard: dashboard,
		Analysis:  analysis,
		Sessions:  sessions,
		Caches:    caches,
		Logger:    logger,
		RateLimit: ratelimit.Config{
			Requests: opts.saveLimit,
			Window:   opts.saveWindow,
		},
		TrustedProxies: opts.trustedProxies,
		Checks:         checks,
	})
	if err != nil {
		caches.Stop()
		return err
	}

	_, done := cli.GracefulShutdown(logger, opts.shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err, applog.FieldOperation, applog.OpShutdown)
		}
	})

	logger.Info("Starting barjas server",
		"port", a.cfg.Port,
		"backend", a.cfg.DataBackend,
		"sheets", a.cfg.AllowedSheets,
		"analysis_sheet", a.cfg.AnalysisSheet,
		"history", repo != nil,
		"events", events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", a.cfg.Port)
		_ = srv.Shutdown(context.Background())
		return err
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
