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
	"oilmill/internal/domain/resolver"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), &config.Config{
		StorageDriver:  config.DriverMemory,
		IdempotencyTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestSeed_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	rep, err := Seed(ctx, a, false)
	require.NoError(t, err)
	assert.Equal(t, Report{Created: len(millCatalog), Mapped: len(millCatalog)}, rep)

	rep, err = Seed(ctx, a, false)
	require.NoError(t, err)
	assert.Equal(t, Report{Existing: len(millCatalog), Mapped: len(millCatalog)}, rep)

	mappings, err := a.Resolver.Mappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, len(resolver.Roles()))
}

func TestSeed_DemoStock(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	_, err := Seed(ctx, a, true)
	require.NoError(t, err)

	oil, err := a.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	require.NoError(t, err)
	assert.Equal(t, "Bulk Oil", oil.Name)
	assert.Equal(t, types.Qty(300), oil.QuantityOnHand)
	assert.True(t, types.MustMoney("180").Equal(oil.AvgCost))

	drifts, err := a.Ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
