// Package testkit wires the domain services over the in-memory store for tests.
package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/production"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/domain/valuation"
	"oilmill/internal/infrastructure/storage/memory"
)

// World is a fully wired set of services over one memory store.
type World struct {
	Store      *memory.Store
	Catalog    *catalog.Service
	Ledger     *ledger.Service
	Valuation  *valuation.Engine
	Resolver   *resolver.Service
	Production *production.Service
	Bottling   *bottling.Service
	Finance    *finance.Service
}

// NewWorld builds an empty world. cache may be nil.
func NewWorld(t testing.TB, cache resolver.Cache) *World {
	t.Helper()
	store := memory.New()
	w := &World{Store: store}
	w.Catalog = catalog.NewService(store.Items(), store, store.Audit())
	w.Ledger = ledger.NewService(store.Items(), store.Movements(), store, store.Outbox())
	w.Valuation = valuation.NewEngine(store.Items(), w.Ledger, store)
	w.Resolver = resolver.NewService(store.Items(), store.Mappings(), cache)
	w.Catalog.OnChange(w.Resolver.OnItemChange)
	w.Production = production.NewService(store.Batches(), w.Ledger, w.Resolver, store.Numerator(), store, store.Outbox())
	w.Bottling = bottling.NewService(w.Ledger, w.Resolver, store.Numerator(), store, store.Outbox())
	w.Finance = finance.NewService(finance.Deps{
		Repo:      store.Finance(),
		Items:     store.Items(),
		Valuation: w.Valuation,
		Ledger:    w.Ledger,
		Resolver:  w.Resolver,
		TxManager: store,
		Audit:     store.Audit(),
		Publisher: store.Outbox(),
	})
	return w
}

// Item creates an item with an opening balance and average cost.
func (w *World) Item(t testing.TB, name string, typ catalog.ItemType, unit string, qty int64, cost string) *catalog.Item {
	t.Helper()
	ctx := context.Background()
	it := catalog.NewItem(name, typ, unit)
	if cost != "" {
		it.AvgCost = types.MustMoney(cost)
	}
	require.NoError(t, w.Catalog.Create(ctx, it))
	require.NoError(t, w.Ledger.OpeningBalance(ctx, it.ID, types.Qty(qty)))
	return it
}

// Mill is the default catalog of a groundnut oil mill.
type Mill struct {
	Groundnuts, Peanuts, BulkOil, Oilcake, Husk, Labels *catalog.Item
	Empty1L, Empty5L, Empty15L                          *catalog.Item
	Oil1L, Oil5L, Oil15L                                *catalog.Item
}

// SeedMill creates the default catalog with the given stock levels.
func (w *World) SeedMill(t testing.TB, groundnuts, bulkOil, containers int64) Mill {
	t.Helper()
	return Mill{
		Groundnuts: w.Item(t, "Groundnuts", catalog.TypeRawMaterial, "kg", groundnuts, "78"),
		Peanuts:    w.Item(t, "Peanuts", catalog.TypeIntermediate, "kg", 0, ""),
		BulkOil:    w.Item(t, "Bulk Oil", catalog.TypeIntermediate, "L", bulkOil, "180"),
		Oilcake:    w.Item(t, "Oilcake", catalog.TypeByproduct, "kg", 0, ""),
		Husk:       w.Item(t, "Husk", catalog.TypeByproduct, "kg", 0, ""),
		Labels:     w.Item(t, "Labels", catalog.TypePackaging, "pcs", containers, "2"),
		Empty1L:    w.Item(t, "Empty 1L Bottle", catalog.TypePackaging, "pcs", containers, "12"),
		Empty5L:    w.Item(t, "Empty 5L Tin", catalog.TypePackaging, "pcs", containers, "45"),
		Empty15L:   w.Item(t, "Empty 15L Tin", catalog.TypePackaging, "pcs", containers, "90"),
		Oil1L:      w.Item(t, "1L Bottle Oil", catalog.TypeFinishedGood, "pcs", 0, ""),
		Oil5L:      w.Item(t, "5L Tin Oil", catalog.TypeFinishedGood, "pcs", 0, ""),
		Oil15L:     w.Item(t, "15L Tin Oil", catalog.TypeFinishedGood, "pcs", 0, ""),
	}
}

// OnHand returns the current quantity of an item.
func (w *World) OnHand(t testing.TB, itemID id.ID) types.Quantity {
	t.Helper()
	it, err := w.Store.Items().GetByID(context.Background(), itemID)
	require.NoError(t, err)
	return it.QuantityOnHand
}
