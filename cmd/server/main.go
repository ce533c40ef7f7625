// Package main is the entry point for the oilmill API server.
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

	"golang.org/x/sync/errgroup"

	"oilmill/internal/app"
	"oilmill/internal/config"
	"oilmill/internal/domain/auth"
	v1 "oilmill/internal/infrastructure/http/v1"
	"oilmill/internal/infrastructure/http/v1/handlers"
	"oilmill/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("server failed", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Infow("starting oilmill server", "version", version, "env", cfg.AppEnv, "storage", cfg.StorageDriver)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	checks := make(map[string]handlers.Check, len(a.Checks))
	for name, check := range a.Checks {
		checks[name] = handlers.Check(check)
	}

	routerCfg := v1.RouterConfig{
		Services: v1.Services{
			Catalog:    a.Catalog,
			Ledger:     a.Ledger,
			Valuation:  a.Valuation,
			Resolver:   a.Resolver,
			Production: a.Production,
			Bottling:   a.Bottling,
			Finance:    a.Finance,
		},
		Logger:       log,
		JWTValidator: auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret, cfg.JWTIssuer)),
		HealthChecks: checks,
		HealthInfo: map[string]any{
			"version": version,
			"env":     cfg.AppEnv,
			"storage": cfg.StorageDriver,
		},
		CORSOrigins: cfg.CORSAllowedOrigins,
		Production:  cfg.IsProduction(),
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = a.Idempotency
	}

	router, err := v1.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
