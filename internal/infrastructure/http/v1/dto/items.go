package dto

import (
	"time"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/valuation"
)

// CreateItemRequest adds an item to the catalog. OpeningQuantity is recorded
// through the ledger, never written directly.
type CreateItemRequest struct {
	Name              string         `json:"name" binding:"required,max=200"`
	Type              string         `json:"type" binding:"required,itemtype"`
	Unit              string         `json:"unit" binding:"required,max=20"`
	OpeningQuantity   types.Quantity `json:"openingQuantity" binding:"gte=0"`
	AvgCost           *types.Money   `json:"avgCost" binding:"omitempty,gte=0"`
	LowStockThreshold types.Quantity `json:"lowStockThreshold" binding:"gte=0"`
	SellingPrice      *types.Money   `json:"sellingPrice" binding:"omitempty,gte=0"`
}

// ToItem builds the catalog item.
func (r *CreateItemRequest) ToItem() *catalog.Item {
	it := catalog.NewItem(r.Name, catalog.ItemType(r.Type), r.Unit)
	it.LowStockThreshold = r.LowStockThreshold
	if r.AvgCost != nil {
		it.AvgCost = *r.AvgCost
	}
	if r.SellingPrice != nil {
		it.SellingPrice = *r.SellingPrice
	}
	return it
}

// UpdateItemRequest edits item metadata. Quantity is not editable here.
type UpdateItemRequest struct {
	Name              *string         `json:"name" binding:"omitempty,min=1,max=200"`
	LowStockThreshold *types.Quantity `json:"lowStockThreshold" binding:"omitempty,gte=0"`
	AvgCost           *types.Money    `json:"avgCost" binding:"omitempty,gte=0"`
	SellingPrice      *types.Money    `json:"sellingPrice" binding:"omitempty,gte=0"`
	Version           int             `json:"version" binding:"gte=0"`
}

// ToPatch converts the request.
func (r *UpdateItemRequest) ToPatch() catalog.MetadataPatch {
	return catalog.MetadataPatch{
		Name:              r.Name,
		LowStockThreshold: r.LowStockThreshold,
		AvgCost:           r.AvgCost,
		SellingPrice:      r.SellingPrice,
		Version:           r.Version,
	}
}

// ListItemsQuery filters the item list.
type ListItemsQuery struct {
	Types    []string `form:"type" binding:"omitempty,dive,itemtype"`
	Search   string   `form:"search" binding:"max=100"`
	LowStock bool     `form:"lowStock"`
}

// ToFilter converts the query.
func (q *ListItemsQuery) ToFilter() catalog.ListFilter {
	f := catalog.ListFilter{Search: q.Search, LowStockOnly: q.LowStock}
	for _, t := range q.Types {
		f.Types = append(f.Types, catalog.ItemType(t))
	}
	return f
}

// ItemResponse is an item with its derived figures.
type ItemResponse struct {
	ID                id.ID          `json:"id"`
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	Unit              string         `json:"unit"`
	QuantityOnHand    types.Quantity `json:"quantityOnHand"`
	AvgCost           types.Money    `json:"avgCost"`
	LowStockThreshold types.Quantity `json:"lowStockThreshold"`
	SellingPrice      types.Money    `json:"sellingPrice"`
	StockValue        types.Money    `json:"stockValue"`
	IsLow             bool           `json:"isLow"`
	Version           int            `json:"version"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromItem maps a catalog item.
func FromItem(it *catalog.Item) ItemResponse {
	return ItemResponse{
		ID:                it.ID,
		Name:              it.Name,
		Type:              string(it.Type),
		Unit:              it.Unit,
		QuantityOnHand:    it.QuantityOnHand,
		AvgCost:           it.AvgCost,
		LowStockThreshold: it.LowStockThreshold,
		SellingPrice:      it.SellingPrice,
		StockValue:        it.StockValue().Round(2),
		IsLow:             it.IsLow(),
		Version:           it.Version,
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}

// FromItems maps a list of items.
func FromItems(items []catalog.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, FromItem(&items[i]))
	}
	return out
}

// AdjustRequest is a manual stock movement: positive adds, negative removes.
type AdjustRequest struct {
	Delta  types.Quantity `json:"delta" binding:"required"`
	Reason string         `json:"reason" binding:"required,max=500"`
}

// RevalueRequest records a purchase of an item outside the expense flow.
type RevalueRequest struct {
	Quantity types.Quantity `json:"quantity" binding:"gt=0"`
	Amount   types.Money    `json:"amount" binding:"gte=0"`
	Reason   string         `json:"reason" binding:"max=500"`
}

// RevalueResponse mirrors valuation.Result.
type RevalueResponse = valuation.Result

// MovementResponse is one ledger entry.
type MovementResponse = ledger.Movement

// DemandRequest is one pending order line.
type DemandRequest struct {
	ItemID   string         `json:"itemId" binding:"required,uuid"`
	Required types.Quantity `json:"required" binding:"gt=0"`
}

// ShortfallRequest asks for the production requirements view.
type ShortfallRequest struct {
	Demands []DemandRequest `json:"demands" binding:"required,min=1,max=500,dive"`
}

// ToDemands converts the request.
func (r *ShortfallRequest) ToDemands() []catalog.Demand {
	out := make([]catalog.Demand, 0, len(r.Demands))
	for _, d := range r.Demands {
		out = append(out, catalog.Demand{ItemID: d.ItemID, Required: d.Required})
	}
	return out
}

// RequirementResponse is one line of the requirements view.
type RequirementResponse struct {
	Item     ItemResponse   `json:"item"`
	Required types.Quantity `json:"required"`
	OnHand   types.Quantity `json:"onHand"`
	Deficit  types.Quantity `json:"deficit"`
}

// FromRequirements maps the requirements view.
func FromRequirements(reqs []catalog.Requirement) []RequirementResponse {
	out := make([]RequirementResponse, 0, len(reqs))
	for i := range reqs {
		r := &reqs[i]
		out = append(out, RequirementResponse{Item: FromItem(&r.Item), Required: r.Required, OnHand: r.OnHand, Deficit: r.Deficit})
	}
	return out
}
