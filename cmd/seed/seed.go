package main

import (
	"context"
	"fmt"
	"strings"

	"oilmill/internal/app"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/resolver"
	"oilmill/pkg/logger"
)

// millItem is one entry of the default catalog.
type millItem struct {
	Role      resolver.Role
	Name      string
	Type      catalog.ItemType
	Unit      string
	Threshold int64

	// demo stock and cost, used with SEED_DEMO_DATA
	Stock int64
	Cost  string
}

var millCatalog = []millItem{
	{resolver.RoleGroundnuts, "Groundnuts", catalog.TypeRawMaterial, "kg", 500, 2000, "78"},
	{resolver.RolePeanuts, "Peanuts", catalog.TypeIntermediate, "kg", 0, 0, ""},
	{resolver.RoleBulkOil, "Bulk Oil", catalog.TypeIntermediate, "L", 100, 300, "180"},
	{resolver.RoleOilcake, "Oilcake", catalog.TypeByproduct, "kg", 0, 0, ""},
	{resolver.RoleHusk, "Husk", catalog.TypeByproduct, "kg", 0, 0, ""},
	{resolver.RoleLabels, "Labels", catalog.TypePackaging, "pcs", 200, 1000, "2"},
	{resolver.RoleEmpty1LBottle, "Empty 1L Bottle", catalog.TypePackaging, "pcs", 100, 500, "12"},
	{resolver.RoleEmpty5LTin, "Empty 5L Tin", catalog.TypePackaging, "pcs", 50, 200, "45"},
	{resolver.RoleEmpty15LTin, "Empty 15L Tin", catalog.TypePackaging, "pcs", 20, 100, "90"},
	{resolver.RoleFinished1LBottle, "1L Bottle Oil", catalog.TypeFinishedGood, "pcs", 0, 0, ""},
	{resolver.RoleFinished5LTin, "5L Tin Oil", catalog.TypeFinishedGood, "pcs", 0, 0, ""},
	{resolver.RoleFinished15LTin, "15L Tin Oil", catalog.TypeFinishedGood, "pcs", 0, 0, ""},
}

// Report counts what a seed run changed.
type Report struct {
	Created  int
	Existing int
	Mapped   int
}

// Seed creates the default catalog and pins every role to its item.
// Items that already exist by name are left untouched.
func Seed(ctx context.Context, a *app.App, demo bool) (Report, error) {
	var rep Report
	for _, mi := range millCatalog {
		item, err := findByName(ctx, a.Catalog, mi.Name)
		if err != nil {
			return rep, err
		}

		if item == nil {
			item = catalog.NewItem(mi.Name, mi.Type, mi.Unit)
			item.LowStockThreshold = types.Qty(mi.Threshold)
			if demo && mi.Cost != "" {
				item.AvgCost = types.MustMoney(mi.Cost)
			}

			err = a.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
				if err := a.Catalog.Create(ctx, item); err != nil {
					return err
				}
				if !demo {
					return nil
				}
				return a.Ledger.OpeningBalance(ctx, item.ID, types.Qty(mi.Stock))
			})
			if err != nil {
				return rep, fmt.Errorf("create %s: %w", mi.Name, err)
			}
			rep.Created++
			logger.Info(ctx, "seeded item", "name", mi.Name, "role", mi.Role)
		} else {
			rep.Existing++
		}

		if _, err := a.Resolver.SetMapping(ctx, mi.Role, item.ID); err != nil {
			return rep, fmt.Errorf("map %s: %w", mi.Role, err)
		}
		rep.Mapped++
	}
	return rep, nil
}

func findByName(ctx context.Context, svc *catalog.Service, name string) (*catalog.Item, error) {
	items, err := svc.List(ctx, catalog.ListFilter{Search: name})
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", name, err)
	}
	for i := range items {
		if strings.EqualFold(items[i].Name, name) {
			return &items[i], nil
		}
	}
	return nil, nil
}
