package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
)

// ItemRepo implements catalog.Repository.
type ItemRepo struct{ s *Store }

var _ catalog.Repository = (*ItemRepo)(nil)

func (r *ItemRepo) Create(_ context.Context, item *catalog.Item) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.items[item.ID]; ok {
			return apperror.NewDuplicate("inventory item", "id", item.ID.String())
		}
		for _, it := range st.items {
			if strings.EqualFold(it.Name, item.Name) {
				return apperror.NewDuplicate("inventory item", "name", item.Name)
			}
		}
		st.items[item.ID] = *item
		return nil
	})
}

func (r *ItemRepo) GetByID(_ context.Context, itemID id.ID) (*catalog.Item, error) {
	var (
		item catalog.Item
		ok   bool
	)
	r.s.read(func(st *state) { item, ok = st.items[itemID] })
	if !ok {
		return nil, apperror.NewNotFound("inventory item", itemID)
	}
	return &item, nil
}

// GetForUpdate is GetByID: the transaction lock already serializes writers.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	return r.GetByID(ctx, itemID)
}

func (r *ItemRepo) FindByName(_ context.Context, name string) (*catalog.Item, error) {
	var found *catalog.Item
	r.s.read(func(st *state) {
		for _, it := range st.items {
			if strings.EqualFold(it.Name, strings.TrimSpace(name)) {
				found = &it
				return
			}
		}
	})
	if found == nil {
		return nil, apperror.NewNotFound("inventory item", name)
	}
	return found, nil
}

func (r *ItemRepo) List(_ context.Context, f catalog.ListFilter) ([]catalog.Item, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []catalog.Item
	r.s.read(func(st *state) {
		for _, it := range st.items {
			if len(f.IDs) > 0 && !slices.Contains(f.IDs, it.ID) {
				continue
			}
			if len(f.Types) > 0 && !slices.Contains(f.Types, it.Type) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(it.Name), search) {
				continue
			}
			if f.LowStockOnly && !it.IsLow() {
				continue
			}
			out = append(out, it)
		}
	})
	slices.SortFunc(out, func(a, b catalog.Item) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			id.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (r *ItemRepo) UpdateMetadata(_ context.Context, item *catalog.Item) error {
	return r.update(item.ID, func(it *catalog.Item) {
		it.Name = item.Name
		it.LowStockThreshold = item.LowStockThreshold
		it.AvgCost = item.AvgCost
		it.SellingPrice = item.SellingPrice
		it.Version = item.Version
		it.UpdatedAt = item.UpdatedAt
	})
}

func (r *ItemRepo) SetQuantity(_ context.Context, itemID id.ID, qty types.Quantity) error {
	return r.update(itemID, func(it *catalog.Item) { it.QuantityOnHand = qty })
}

func (r *ItemRepo) SetAvgCost(_ context.Context, itemID id.ID, cost types.Money) error {
	return r.update(itemID, func(it *catalog.Item) { it.AvgCost = cost })
}

func (r *ItemRepo) update(itemID id.ID, fn func(it *catalog.Item)) error {
	return r.s.write(func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound("inventory item", itemID)
		}
		fn(&it)
		st.items[itemID] = it
		return nil
	})
}
