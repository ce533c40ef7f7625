package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"oilmill/internal/app"
	"oilmill/internal/domain/events"
	"oilmill/pkg/logger"
)

// Worker runs the periodic maintenance jobs.
type Worker struct {
	app   *app.App
	relay *events.Relay
	log   *logger.Logger
}

// NewWorker creates a worker. Delivered events are written to the log.
func NewWorker(a *app.App, log *logger.Logger) *Worker {
	w := &Worker{app: a, log: log.WithComponent("worker")}
	w.relay = events.NewRelay(a.Outbox, events.HandlerFunc(w.deliver), a.Config.OutboxBatchSize)
	return w
}

// Run starts every job and blocks until ctx is done or a job fails.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.app.Config
	g, ctx := errgroup.WithContext(ctx)

	w.every(ctx, g, "outbox", cfg.WorkerPollInterval, w.processOutbox)
	w.every(ctx, g, "idempotency_cleanup", cfg.WorkerCleanupInterval, w.cleanupIdempotency)
	w.every(ctx, g, "low_stock", cfg.WorkerLowStockInterval, w.scanLowStock)
	w.every(ctx, g, "reconcile", cfg.WorkerReconcileInterval, w.reconcile)

	return g.Wait()
}

// every runs job on each tick. Job errors are logged and never stop the loop.
func (w *Worker) every(ctx context.Context, g *errgroup.Group, name string, interval time.Duration, job func(ctx context.Context) error) {
	if interval <= 0 {
		w.log.Infow("job disabled", "job", name)
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := job(ctx); err != nil && ctx.Err() == nil {
					w.log.Errorw("job failed", "job", name, "error", err)
				}
			}
		}
	})
}

func (w *Worker) processOutbox(ctx context.Context) error {
	var delivered int
	err := w.app.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := w.relay.ProcessBatch(ctx)
		delivered = n
		return err
	})
	if err != nil {
		return err
	}
	if delivered > 0 {
		w.log.Debugw("processed outbox batch", "count", delivered)
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, msg *events.Message) error {
	w.log.WithContext(ctx).Infow("event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}

func (w *Worker) cleanupIdempotency(ctx context.Context) error {
	n, err := w.app.Idempotency.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
	return nil
}

func (w *Worker) scanLowStock(ctx context.Context) error {
	items, err := w.app.Catalog.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		w.log.Warnw("stock below threshold",
			"item_id", item.ID,
			"item", item.Name,
			"on_hand", item.QuantityOnHand.Display(),
			"threshold", item.LowStockThreshold.Display(),
		)
	}
	return nil
}

func (w *Worker) reconcile(ctx context.Context) error {
	drifts, err := w.app.Ledger.Reconcile(ctx)
	if err != nil {
		return err
	}
	for _, d := range drifts {
		w.log.Errorw("stock drift",
			"item_id", d.ItemID,
			"item", d.ItemName,
			"on_hand", d.OnHand.Display(),
			"ledger_sum", d.LedgerSum.Display(),
		)
	}
	return nil
}
