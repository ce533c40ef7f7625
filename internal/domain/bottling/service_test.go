package bottling_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/events"
	"oilmill/internal/testkit"
)

func TestParseLitersPerUnit(t *testing.T) {
	tests := []struct {
		sku  string
		want types.Quantity
	}{
		{"1L Bottle", types.Qty(1)},
		{"5L Tin", types.Qty(5)},
		{"15L Tin", types.Qty(15)},
		{"0.5l pouch", types.MustQuantity("0.5")},
		{" 2 L Jar", types.Qty(2)},
	}
	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			got, err := bottling.ParseLitersPerUnit(tt.sku)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"Bottle", "L Tin", "0L Tin", ""} {
		_, err := bottling.ParseLitersPerUnit(bad)
		assert.True(t, apperror.IsValidation(err), bad)
	}

	liters, err := bottling.LitersFor("5L Tin", types.Qty(3))
	require.NoError(t, err)
	assert.Equal(t, types.Qty(15), liters)
}

func TestRun_ConvertsOilAndContainers(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 0, 100, 20)

	res, err := w.Bottling.Run(ctx, []bottling.Line{
		{SKU: "1L Bottle", Quantity: types.Qty(10)},
		{SKU: "5L Tin", Quantity: types.Qty(3)},
		{SKU: "15L Tin", Quantity: 0},
	}, "")
	require.NoError(t, err)

	assert.Regexp(t, `^BR-\d{4}-00001$`, res.RunID)
	assert.Equal(t, types.Qty(25), res.TotalLiters)
	assert.Len(t, res.Lines, 2)
	assert.Len(t, res.MovementIDs, 5)
	assert.Equal(t, "Bottling run completed! Consumed 25.0L of bulk oil.", res.Message)

	assert.Equal(t, types.Qty(75), w.OnHand(t, m.BulkOil.ID))
	assert.Equal(t, types.Qty(10), w.OnHand(t, m.Empty1L.ID))
	assert.Equal(t, types.Qty(10), w.OnHand(t, m.Oil1L.ID))
	assert.Equal(t, types.Qty(17), w.OnHand(t, m.Empty5L.ID))
	assert.Equal(t, types.Qty(3), w.OnHand(t, m.Oil5L.ID))
	assert.Equal(t, types.Qty(20), w.OnHand(t, m.Empty15L.ID))

	moves := w.Store.Movements().AllMovements()
	last := moves[len(moves)-1]
	assert.Equal(t, "Bottling Run "+res.RunID+": Total bulk oil consumed", last.Reason)
	assert.Equal(t, "Bottling Run "+res.RunID+": 5L Tin (3 units)", moves[len(moves)-2].Reason)
	assert.Len(t, w.Store.Outbox().Messages(events.TypeBottlingCompleted), 1)
}

func TestRun_InsufficientOilWritesNothing(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 0, 10, 20)
	before := len(w.Store.Movements().AllMovements())

	_, err := w.Bottling.Run(ctx, []bottling.Line{
		{SKU: "1L Bottle", Quantity: types.Qty(2)},
		{SKU: "5L Tin", Quantity: types.Qty(2)},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Contains(t, err.Error(), "Insufficient bulk oil. Available: 10L, Required: 12L")

	assert.Len(t, w.Store.Movements().AllMovements(), before)
	assert.Equal(t, types.Qty(20), w.OnHand(t, m.Empty1L.ID))
	assert.Equal(t, types.Quantity(0), w.OnHand(t, m.Oil1L.ID))
	assert.Equal(t, types.Qty(10), w.OnHand(t, m.BulkOil.ID))

	// the failed run did not consume a run number
	res, err := w.Bottling.Run(ctx, []bottling.Line{{SKU: "1L Bottle", Quantity: types.Qty(1)}}, "")
	require.NoError(t, err)
	assert.Regexp(t, `-00001$`, res.RunID)
}

func TestRun_ContainersSummedAcrossLines(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.SeedMill(t, 0, 100, 5)

	_, err := w.Bottling.Run(ctx, []bottling.Line{
		{SKU: "1L Bottle", Quantity: types.Qty(3)},
		{SKU: "1l bottle", Quantity: types.Qty(3)},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient empty containers for 1L Bottle. Available: 5, Required: 6")
}

func TestRun_Validation(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.SeedMill(t, 0, 100, 5)

	_, err := w.Bottling.Run(ctx, []bottling.Line{{SKU: "1L Bottle", Quantity: 0}}, "")
	assert.True(t, apperror.IsValidation(err))

	_, err = w.Bottling.Run(ctx, []bottling.Line{{SKU: "2L Jar", Quantity: types.Qty(1)}}, "")
	assert.True(t, apperror.IsValidation(err))

	before := len(w.Store.Movements().AllMovements())
	_, err = w.Bottling.Run(ctx, []bottling.Line{{SKU: "1L Bottle", Quantity: types.MustQuantity("0.5")}}, "")
	assert.True(t, apperror.IsValidation(err))
	assert.Len(t, w.Store.Movements().AllMovements(), before)
}

func TestRun_MissingFinishedItem(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	oil := w.Item(t, "Bulk Oil", "intermediate", "L", 50, "")
	w.Item(t, "Empty 1L Bottle", "packaging", "pcs", 10, "")

	_, err := w.Bottling.Run(ctx, []bottling.Line{{SKU: "1L Bottle", Quantity: types.Qty(1)}}, "")
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, types.Qty(50), w.OnHand(t, oil.ID))
}
