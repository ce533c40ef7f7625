package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/audit"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/testkit"
)

func TestCreate_StartsAtZeroAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)

	it := catalog.NewItem("Bulk Oil", catalog.TypeIntermediate, "L")
	it.QuantityOnHand = types.Qty(50)
	require.NoError(t, w.Catalog.Create(ctx, it))
	assert.Equal(t, types.Quantity(0), w.OnHand(t, it.ID))

	err := w.Catalog.Create(ctx, catalog.NewItem("bulk oil", catalog.TypeIntermediate, "L"))
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	err = w.Catalog.Create(ctx, catalog.NewItem("Mystery", catalog.ItemType("gadget"), "pcs"))
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdateMetadata_AuditsAndChecksVersion(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	it := w.Item(t, "Labels", catalog.TypePackaging, "pcs", 100, "2")

	name := "Oil Labels"
	threshold := types.Qty(20)
	updated, err := w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{
		Name:              &name,
		LowStockThreshold: &threshold,
		Version:           it.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, "Oil Labels", updated.Name)
	assert.Equal(t, types.Qty(100), updated.QuantityOnHand)
	assert.Equal(t, it.Version+1, updated.Version)

	entries := w.Store.Audit().Entries(it.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	assert.Contains(t, entries[1].Changes, "name")
	assert.NotContains(t, entries[1].Changes, "avg_cost")

	_, err = w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{Name: &name, Version: it.Version})
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))

	_, err = w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{})
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdateMetadata_AvgCostCorrectionIsAuditedAndLeavesStock(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	it := w.Item(t, "Caps", catalog.TypePackaging, "pcs", 40, "3")
	movements := len(w.Store.Movements().AllMovements())

	cost := types.MustMoney("3.5")
	updated, err := w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{AvgCost: &cost})
	require.NoError(t, err)
	assert.True(t, updated.AvgCost.Equal(cost))
	assert.Equal(t, types.Qty(40), updated.QuantityOnHand)
	assert.Len(t, w.Store.Movements().AllMovements(), movements)

	entries := w.Store.Audit().Entries(it.ID)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionUpdate, last.Action)
	assert.Contains(t, last.Changes, "avg_cost")
	assert.NotContains(t, last.Changes, "quantity_on_hand")

	negative := types.MustMoney("-1")
	_, err = w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{AvgCost: &negative})
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdateMetadata_FiresHooks(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)

	var seen []string
	w.Catalog.OnChange(func(_ context.Context, before, after *catalog.Item) {
		if before == nil {
			seen = append(seen, "create:"+after.Name)
			return
		}
		seen = append(seen, before.Name+"->"+after.Name)
	})

	it := w.Item(t, "Husk", catalog.TypeByproduct, "kg", 0, "")
	name := "Groundnut Husk"
	_, err := w.Catalog.UpdateMetadata(ctx, it.ID, catalog.MetadataPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []string{"create:Husk", "Husk->Groundnut Husk"}, seen)
}

func TestLowStockAndList(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	low := w.Item(t, "Empty 5L Tin", catalog.TypePackaging, "pcs", 5, "")
	w.Item(t, "Bulk Oil", catalog.TypeIntermediate, "L", 500, "")

	threshold := types.Qty(10)
	_, err := w.Catalog.UpdateMetadata(ctx, low.ID, catalog.MetadataPatch{LowStockThreshold: &threshold})
	require.NoError(t, err)

	items, err := w.Catalog.LowStock(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "Empty 5L Tin")
	assert.NotContains(t, names, "Bulk Oil")

	packaging, err := w.Catalog.List(ctx, catalog.ListFilter{Types: []catalog.ItemType{catalog.TypePackaging}})
	require.NoError(t, err)
	require.Len(t, packaging, 1)

	found, err := w.Catalog.List(ctx, catalog.ListFilter{Search: "OIL"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bulk Oil", found[0].Name)
}

func TestShortfall(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	oil5 := w.Item(t, "5L Tin Oil", catalog.TypeFinishedGood, "pcs", 8, "")
	oil1 := w.Item(t, "1L Bottle Oil", catalog.TypeFinishedGood, "pcs", 50, "")

	reqs, err := w.Catalog.Shortfall(ctx, []catalog.Demand{
		{ItemID: oil5.ID.String(), Required: types.Qty(6)},
		{ItemID: oil1.ID.String(), Required: types.Qty(20)},
		{ItemID: oil5.ID.String(), Required: types.Qty(6)},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, types.Qty(12), reqs[0].Required)
	assert.Equal(t, types.Qty(4), reqs[0].Deficit)
	assert.Equal(t, types.Quantity(0), reqs[1].Deficit)

	_, err = w.Catalog.Shortfall(ctx, []catalog.Demand{{ItemID: "nope", Required: types.Qty(1)}})
	assert.True(t, apperror.IsValidation(err))
}
