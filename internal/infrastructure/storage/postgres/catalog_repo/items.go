// Package catalog_repo stores inventory items and the role mapping table.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/infrastructure/storage/postgres"
)

const (
	itemsTable        = "inventory_items"
	uniqueNameIndex   = "uq_inventory_items_name"
	itemsDefaultOrder = "lower(name) ASC"
)

var itemColumns = postgres.Columns[catalog.Item]()

// ItemRepo implements catalog.Repository.
type ItemRepo struct {
	txm *postgres.TxManager
}

var _ catalog.Repository = (*ItemRepo)(nil)

// NewItemRepo creates an item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{txm: txm}
}

// Create inserts item using its "db" tags.
func (r *ItemRepo) Create(ctx context.Context, item *catalog.Item) error {
	sql, args, err := postgres.Builder().
		Insert(itemsTable).
		SetMap(postgres.ToMap(item)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, uniqueNameIndex) {
			return apperror.NewDuplicate("inventory item", "name", item.Name)
		}
		return fmt.Errorf("insert %s: %w", itemsTable, err)
	}
	return nil
}

func (r *ItemRepo) selectItems() squirrel.SelectBuilder {
	return postgres.Builder().Select(itemColumns...).From(itemsTable)
}

func (r *ItemRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*catalog.Item, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var item catalog.Item
	if err := postgres.Get(ctx, r.txm.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory item", key)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// GetByID implements catalog.Repository.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	return r.getOne(ctx, r.selectItems().Where(squirrel.Eq{"id": itemID}), itemID)
}

// GetForUpdate implements catalog.Repository.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("get item for update: must run inside a transaction")
	}
	return r.getOne(ctx, r.selectItems().Where(squirrel.Eq{"id": itemID}).Suffix("FOR UPDATE"), itemID)
}

// FindByName implements catalog.Repository.
func (r *ItemRepo) FindByName(ctx context.Context, name string) (*catalog.Item, error) {
	name = strings.TrimSpace(name)
	return r.getOne(ctx, r.selectItems().Where(squirrel.Expr("lower(name) = lower(?)", name)), name)
}

// List implements catalog.Repository.
func (r *ItemRepo) List(ctx context.Context, f catalog.ListFilter) ([]catalog.Item, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []catalog.Item
	if err := postgres.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (r *ItemRepo) listQuery(f catalog.ListFilter) squirrel.SelectBuilder {
	q := r.selectItems()
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}
	if len(f.Types) > 0 {
		kinds := make([]string, len(f.Types))
		for i, t := range f.Types {
			kinds[i] = string(t)
		}
		q = q.Where(squirrel.Eq{"item_type": kinds})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where(squirrel.ILike{"name": "%" + escapeLike(s) + "%"})
	}
	if f.LowStockOnly {
		q = q.Where("quantity_scaled <= low_stock_threshold_scaled")
	}
	return q.OrderBy(itemsDefaultOrder, "id ASC")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateMetadata writes the editable fields. item.Version is the new
// version; the row must still hold the previous one.
func (r *ItemRepo) UpdateMetadata(ctx context.Context, item *catalog.Item) error {
	sql, args, err := postgres.Builder().
		Update(itemsTable).
		Set("name", item.Name).
		Set("low_stock_threshold_scaled", item.LowStockThreshold).
		Set("avg_cost", item.AvgCost).
		Set("selling_price", item.SellingPrice).
		Set("version", item.Version).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID, "version": item.Version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, uniqueNameIndex) {
			return apperror.NewDuplicate("inventory item", "name", item.Name)
		}
		return fmt.Errorf("update %s: %w", itemsTable, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("inventory item", item.ID)
	}
	return nil
}

// SetQuantity implements catalog.Repository.
func (r *ItemRepo) SetQuantity(ctx context.Context, itemID id.ID, qty types.Quantity) error {
	return r.set(ctx, itemID, "quantity_scaled", qty)
}

// SetAvgCost implements catalog.Repository.
func (r *ItemRepo) SetAvgCost(ctx context.Context, itemID id.ID, cost types.Money) error {
	return r.set(ctx, itemID, "avg_cost", cost)
}

func (r *ItemRepo) set(ctx context.Context, itemID id.ID, column string, value any) error {
	sql, args, err := postgres.Builder().
		Update(itemsTable).
		Set(column, value).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return apperror.NewBusinessRule(apperror.CodeInsufficientStock, "Stock cannot go below zero").
				WithDetail("item_id", itemID.String()).WithCause(err)
		}
		return fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory item", itemID)
	}
	return nil
}
