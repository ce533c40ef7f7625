package dto

import (
	"oilmill/internal/core/types"
	"oilmill/internal/domain/bottling"
)

// BottlingLine is one SKU of a run. Lines with a zero quantity are skipped.
type BottlingLine struct {
	SKU      string         `json:"sku" binding:"required,sku"`
	Quantity types.Quantity `json:"quantity" binding:"gte=0"`
}

// BottlingRunRequest bottles bulk oil into containers.
type BottlingRunRequest struct {
	Lines []BottlingLine `json:"lines" binding:"required,min=1,max=20,dive"`
}

// ToLines converts the request.
func (r *BottlingRunRequest) ToLines() []bottling.Line {
	out := make([]bottling.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, bottling.Line{SKU: l.SKU, Quantity: l.Quantity})
	}
	return out
}
