// Package main is the entry point for the oilmill background worker.
// It relays outbox events, expires idempotency keys and scans stock.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oilmill/internal/app"
	"oilmill/internal/config"
	"oilmill/internal/infrastructure/lock"
	"oilmill/pkg/logger"
)

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

	log.Infow("starting oilmill worker", "storage", cfg.StorageDriver)
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("worker running on in-memory storage sees only its own data")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	w := NewWorker(a, log)

	if a.Redis != nil {
		leader := lock.NewLeader(a.Redis, cfg.WorkerLockKey, cfg.WorkerLockTTL)
		err = leader.Run(ctx, w.Run)
	} else {
		err = w.Run(ctx)
	}
	if err != nil {
		log.Errorw("worker failed", "error", err)
	}

	log.Info("worker stopped")
}
