package catalog

import (
	"context"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
)

// Repository persists inventory items.
type Repository interface {
	// Create inserts a new item.
	Create(ctx context.Context, item *Item) error

	// GetByID returns the item or a NOT_FOUND AppError.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetForUpdate returns the item with a row lock held until the
	// surrounding transaction ends. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// FindByName returns the item whose name equals name (case-insensitive).
	FindByName(ctx context.Context, name string) (*Item, error)

	// List returns items matching the filter, ordered by name then id.
	List(ctx context.Context, filter ListFilter) ([]Item, error)

	// UpdateMetadata writes name, threshold, avg cost, selling price and version.
	UpdateMetadata(ctx context.Context, item *Item) error

	// SetQuantity writes the materialized quantity on hand.
	SetQuantity(ctx context.Context, itemID id.ID, qty types.Quantity) error

	// SetAvgCost writes the weighted average cost.
	SetAvgCost(ctx context.Context, itemID id.ID, cost types.Money) error
}

// ListFilter narrows List.
type ListFilter struct {
	IDs          []id.ID
	Types        []ItemType
	Search       string // case-insensitive substring of name
	LowStockOnly bool
}
