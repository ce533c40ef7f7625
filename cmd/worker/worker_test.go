package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/app"
	"oilmill/internal/config"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/internal/infrastructure/storage/memory"
	"oilmill/pkg/logger"
)

func newTestWorker(t *testing.T) (*Worker, *app.App) {
	t.Helper()
	a, err := app.New(context.Background(), &config.Config{
		StorageDriver:   config.DriverMemory,
		IdempotencyTTL:  time.Hour,
		OutboxBatchSize: 10,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return NewWorker(a, logger.Nop()), a
}

func TestWorker_RelaysStockLow(t *testing.T) {
	ctx := context.Background()
	w, a := newTestWorker(t)

	oil := catalog.NewItem("Bulk Oil", catalog.TypeIntermediate, "L")
	oil.LowStockThreshold = types.Qty(5)
	require.NoError(t, a.Catalog.Create(ctx, oil))
	require.NoError(t, a.Ledger.OpeningBalance(ctx, oil.ID, types.Qty(10)))
	_, err := a.Ledger.Adjust(ctx, oil.ID, types.Qty(-6), "spillage")
	require.NoError(t, err)

	outbox, ok := a.Outbox.(*memory.Outbox)
	require.True(t, ok)
	require.Len(t, outbox.Messages(events.TypeStockLow), 1)

	require.NoError(t, w.processOutbox(ctx))

	msgs := outbox.Messages(events.TypeStockLow)
	require.Len(t, msgs, 1)
	assert.Equal(t, events.StatusPublished, msgs[0].Status)

	require.NoError(t, w.scanLowStock(ctx))
	require.NoError(t, w.reconcile(ctx))
	require.NoError(t, w.cleanupIdempotency(ctx))
}

func TestWorker_RunStopsWithContext(t *testing.T) {
	w, _ := newTestWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
