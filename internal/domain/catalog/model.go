// Package catalog holds the stock-keeping items of the mill.
package catalog

import (
	"context"
	"strings"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/entity"
	"oilmill/internal/core/types"
)

// ItemType classifies an inventory item.
type ItemType string

const (
	TypeRawMaterial  ItemType = "raw_material"
	TypePackaging    ItemType = "packaging"
	TypeIntermediate ItemType = "intermediate"
	TypeFinishedGood ItemType = "finished_good"
	TypeByproduct    ItemType = "byproduct"
)

// ItemTypes lists every valid item type.
var ItemTypes = []ItemType{TypeRawMaterial, TypePackaging, TypeIntermediate, TypeFinishedGood, TypeByproduct}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeRawMaterial, TypePackaging, TypeIntermediate, TypeFinishedGood, TypeByproduct:
		return true
	}
	return false
}

// Item is a stock-keeping item.
//
// QuantityOnHand is owned by the ledger and catalog operations never write it.
// AvgCost is maintained by the valuation engine; the only catalog write is an
// explicit UpdateMetadata correction, which is audited like any other field.
type Item struct {
	entity.BaseEntity

	Name              string         `db:"name" json:"name"`
	Type              ItemType       `db:"item_type" json:"type"`
	Unit              string         `db:"unit" json:"unit"`
	QuantityOnHand    types.Quantity `db:"quantity_scaled" json:"quantityOnHand"`
	AvgCost           types.Money    `db:"avg_cost" json:"avgCost"`
	LowStockThreshold types.Quantity `db:"low_stock_threshold_scaled" json:"lowStockThreshold"`
	SellingPrice      types.Money    `db:"selling_price" json:"sellingPrice"`
}

// NewItem creates an item with zero stock.
func NewItem(name string, itemType ItemType, unit string) *Item {
	return &Item{
		BaseEntity: entity.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Type:       itemType,
		Unit:       strings.TrimSpace(unit),
		AvgCost:    types.Zero(),
	}
}

// Validate checks item invariants.
func (i *Item) Validate(_ context.Context) error {
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("item name is required")
	}
	if !i.Type.Valid() {
		return apperror.NewValidation("unknown item type").WithDetail("type", i.Type)
	}
	if strings.TrimSpace(i.Unit) == "" {
		return apperror.NewValidation("item unit is required")
	}
	if i.QuantityOnHand.IsNegative() {
		return apperror.NewValidation("quantity on hand cannot be negative")
	}
	if i.AvgCost.IsNegative() {
		return apperror.NewValidation("average cost cannot be negative")
	}
	if i.LowStockThreshold.IsNegative() {
		return apperror.NewValidation("low stock threshold cannot be negative")
	}
	if i.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative")
	}
	return nil
}

// IsLow reports whether the item is at or below its low-stock threshold.
func (i *Item) IsLow() bool {
	return i.QuantityOnHand <= i.LowStockThreshold
}

// StockValue is quantity on hand valued at average cost.
func (i *Item) StockValue() types.Money {
	return i.QuantityOnHand.Decimal().Mul(i.AvgCost)
}

// snapshot is the audited view of the editable fields.
func (i *Item) snapshot() map[string]any {
	return map[string]any{
		"name":                i.Name,
		"low_stock_threshold": i.LowStockThreshold,
		"avg_cost":            i.AvgCost,
		"selling_price":       i.SellingPrice,
	}
}

// MetadataPatch holds the editable item fields. Nil means unchanged.
type MetadataPatch struct {
	Name              *string
	LowStockThreshold *types.Quantity
	AvgCost           *types.Money
	SellingPrice      *types.Money

	// Version, when non-zero, must match the stored version.
	Version int
}

// Empty reports whether the patch changes nothing.
func (p MetadataPatch) Empty() bool {
	return p.Name == nil && p.LowStockThreshold == nil && p.AvgCost == nil && p.SellingPrice == nil
}

// Demand is a required quantity of an item (pending orders).
type Demand struct {
	ItemID   string
	Required types.Quantity
}

// Requirement is one line of the production requirements view.
type Requirement struct {
	Item     Item           `json:"item"`
	Required types.Quantity `json:"required"`
	OnHand   types.Quantity `json:"onHand"`
	Deficit  types.Quantity `json:"deficit"`
}
