package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/production"
	"oilmill/internal/testkit"
)

func newBatch(t *testing.T, w *testkit.World) *production.Batch {
	t.Helper()
	b, err := w.Production.CreateBatch(context.Background(), production.CreateInput{
		FarmerName: "Ramesh",
		BatchDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestCreateBatch_GeneratesCode(t *testing.T) {
	w := testkit.NewWorld(t, nil)
	first := newBatch(t, w)
	second := newBatch(t, w)

	assert.Equal(t, "PB-2026-00001", first.BatchCode)
	assert.Equal(t, "PB-2026-00002", second.BatchCode)
	assert.Equal(t, production.PhaseDehusking, first.Phase)

	_, err := w.Production.CreateBatch(context.Background(), production.CreateInput{})
	assert.True(t, apperror.IsValidation(err))
}

func TestAdvance_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 1000, 0, 0)
	b := newBatch(t, w)

	res, err := w.Production.Advance(ctx, b.ID, production.PhaseInput{
		InputGroundnutsKg: types.Qty(1000),
		OutputPeanutsKg:   types.Qty(700),
		Notes:             "good yield",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, production.PhasePressing, res.To)
	assert.Len(t, res.MovementIDs, 2)
	assert.Equal(t, types.Quantity(0), w.OnHand(t, m.Groundnuts.ID))
	assert.Equal(t, types.Qty(700), w.OnHand(t, m.Peanuts.ID))

	res, err = w.Production.Advance(ctx, b.ID, production.PhaseInput{
		OutputOilLiters: types.Qty(280),
		OutputOilcakeKg: types.Qty(400),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, production.PhaseCompleted, res.To)
	// husk output was zero and is skipped
	assert.Len(t, res.MovementIDs, 3)
	assert.Equal(t, types.Quantity(0), w.OnHand(t, m.Peanuts.ID))
	assert.Equal(t, types.Qty(280), w.OnHand(t, m.BulkOil.ID))
	assert.Equal(t, types.Qty(400), w.OnHand(t, m.Oilcake.ID))
	assert.Equal(t, types.Quantity(0), w.OnHand(t, m.Husk.ID))

	reasons := map[string]bool{}
	for _, mv := range w.Store.Movements().AllMovements() {
		reasons[mv.Reason] = true
	}
	assert.True(t, reasons["Production: Batch PB-2026-00001 - Dehusking (consumed)"])
	assert.True(t, reasons["Production: Batch PB-2026-00001 - Pressing (bulk oil produced)"])
	assert.True(t, reasons["Production: Batch PB-2026-00001 - Pressing (consumed)"])

	_, err = w.Production.Advance(ctx, b.ID, production.PhaseInput{}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodePhaseTerminal))

	got, err := w.Production.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, production.PhaseCompleted, got.Phase)
	assert.Equal(t, "good yield", got.Notes)
	assert.Len(t, w.Store.Outbox().Messages(events.TypeProductionPhaseAdvance), 2)
}

func TestAdvance_ShortfallRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 500, 0, 0)
	b := newBatch(t, w)

	_, err := w.Production.Advance(ctx, b.ID, production.PhaseInput{
		InputGroundnutsKg: types.Qty(600),
		OutputPeanutsKg:   types.Qty(400),
	}, "")
	assert.True(t, apperror.IsInsufficientStock(err))

	got, err := w.Production.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, production.PhaseDehusking, got.Phase)
	assert.Equal(t, types.Quantity(0), got.OutputPeanutsKg)
	assert.Equal(t, types.Qty(500), w.OnHand(t, m.Groundnuts.ID))
	assert.Equal(t, types.Quantity(0), w.OnHand(t, m.Peanuts.ID))
}

func TestAdvance_MissingItemRollsBack(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	nuts := w.Item(t, "Groundnuts", "raw_material", "kg", 100, "")
	b := newBatch(t, w)

	_, err := w.Production.Advance(ctx, b.ID, production.PhaseInput{
		InputGroundnutsKg: types.Qty(100),
		OutputPeanutsKg:   types.Qty(70),
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, types.Qty(100), w.OnHand(t, nuts.ID))
}

func TestAdvance_Validation(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.SeedMill(t, 100, 0, 0)
	b := newBatch(t, w)

	_, err := w.Production.Advance(ctx, b.ID, production.PhaseInput{InputGroundnutsKg: types.Qty(100)}, "")
	assert.True(t, apperror.IsValidation(err))

	_, err = w.Production.Advance(ctx, id.New(), production.PhaseInput{}, "")
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdvance_EventKeyAppliesOnce(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 1000, 0, 0)
	b := newBatch(t, w)
	in := production.PhaseInput{InputGroundnutsKg: types.Qty(100), OutputPeanutsKg: types.Qty(70)}

	_, err := w.Production.Advance(ctx, b.ID, in, "advance-1")
	require.NoError(t, err)
	_, err = w.Production.Advance(ctx, b.ID, in, "advance-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	assert.Equal(t, types.Qty(900), w.OnHand(t, m.Groundnuts.ID))
}

func TestPhaseNext(t *testing.T) {
	next, ok := production.PhaseDehusking.Next()
	assert.True(t, ok)
	assert.Equal(t, production.PhasePressing, next)
	_, ok = production.PhaseCompleted.Next()
	assert.False(t, ok)
}
