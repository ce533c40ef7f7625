package valuation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/valuation"
	"oilmill/internal/infrastructure/storage/memory"
)

func TestWeightedAverage(t *testing.T) {
	got := valuation.WeightedAverage(types.Qty(1500), types.MustMoney("78"), types.Qty(1000), types.MustMoney("80000"))
	assert.True(t, types.MustMoney("78.8").Equal(got), "got %s", got)

	assert.True(t, valuation.WeightedAverage(0, types.Zero(), 0, types.Zero()).IsZero())

	first := valuation.WeightedAverage(0, types.Zero(), types.Qty(4), types.MustMoney("100"))
	assert.True(t, types.MustMoney("25").Equal(first))
}

func setup(t *testing.T) (*memory.Store, *ledger.Service, *valuation.Engine, *catalog.Item) {
	t.Helper()
	store := memory.New()
	ledgerSvc := ledger.NewService(store.Items(), store.Movements(), store, nil)
	engine := valuation.NewEngine(store.Items(), ledgerSvc, store)

	item := catalog.NewItem("Groundnuts", catalog.TypeRawMaterial, "kg")
	item.AvgCost = types.MustMoney("78")
	require.NoError(t, store.Items().Create(context.Background(), item))
	_, err := ledgerSvc.Record(context.Background(), item.ID, types.Qty(1500), ledger.OpeningBalanceReason)
	require.NoError(t, err)
	return store, ledgerSvc, engine, item
}

func TestRevalue_UpdatesQuantityAndCostTogether(t *testing.T) {
	ctx := context.Background()
	store, _, engine, item := setup(t)

	res, err := engine.Revalue(ctx, item.ID, types.Qty(1000), types.MustMoney("80000"), "")
	require.NoError(t, err)
	assert.Equal(t, types.Qty(1500), res.OldQuantity)
	assert.Equal(t, types.Qty(2500), res.NewQuantity)
	assert.True(t, types.MustMoney("78").Equal(res.OldAvgCost))
	assert.True(t, types.MustMoney("78.8").Equal(res.NewAvgCost))

	got, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Qty(2500), got.QuantityOnHand)
	assert.True(t, types.MustMoney("78.8").Equal(got.AvgCost))

	moves := store.Movements().AllMovements()
	require.Len(t, moves, 2)
	assert.Equal(t, res.MovementID, moves[1].ID)
	assert.Equal(t, valuation.DefaultReason, moves[1].Reason)
}

func TestRevalue_Preconditions(t *testing.T) {
	ctx := context.Background()
	_, _, engine, item := setup(t)

	_, err := engine.Revalue(ctx, item.ID, 0, types.MustMoney("10"), "")
	assert.True(t, apperror.IsValidation(err))

	_, err = engine.Revalue(ctx, item.ID, types.Qty(1), types.MustMoney("-1"), "")
	assert.True(t, apperror.IsValidation(err))

	_, err = engine.Revalue(ctx, id.New(), types.Qty(1), types.MustMoney("1"), "")
	assert.True(t, apperror.IsNotFound(err))
}

func TestRevalue_RejectsOverflowingQuantity(t *testing.T) {
	ctx := context.Background()
	store, _, engine, item := setup(t)

	_, err := engine.Revalue(ctx, item.ID, types.MustQuantity("922337203685476"), types.MustMoney("80000"), "")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	got, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Qty(1500), got.QuantityOnHand)
	assert.True(t, types.MustMoney("78").Equal(got.AvgCost))
	assert.Len(t, store.Movements().AllMovements(), 1)
}
