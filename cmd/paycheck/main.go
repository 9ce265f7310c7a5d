package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"paycheck/internal/backend"
	"paycheck/internal/cli"
	apphttp "paycheck/internal/http"
	applog "paycheck/internal/log"
	"paycheck/internal/metrics"
	"paycheck/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp, os.Stdout)

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m := metrics.New()
	opts := []services.Option{
		services.WithMetrics(m),
		services.WithLogger(logger.WithComponent(applog.ComponentBudget)),
	}
	if be.Notifier != nil {
		opts = append(opts, services.WithNotifier(be.Notifier))
	}
	budget := services.NewBudgetService(ctx, be.Store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, budget,
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)),
		apphttp.WithMetrics(m, cfg.MetricsEnabled))

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting paycheck server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"notifications", be.Notifier != nil,
		"metrics", cfg.MetricsEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
