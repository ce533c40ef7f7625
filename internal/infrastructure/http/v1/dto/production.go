package dto

import (
	"time"

	"oilmill/internal/core/types"
	"oilmill/internal/domain/production"
)

// CreateBatchRequest starts a production batch. An empty batch code is
// generated.
type CreateBatchRequest struct {
	BatchCode         string         `json:"batchCode" binding:"max=50"`
	FarmerName        string         `json:"farmerName" binding:"required,max=200"`
	BatchDate         *time.Time     `json:"batchDate"`
	InputGroundnutsKg types.Quantity `json:"inputGroundnutsKg" binding:"gte=0"`
	Notes             string         `json:"notes" binding:"max=2000"`
}

// ToInput converts the request.
func (r *CreateBatchRequest) ToInput() production.CreateInput {
	in := production.CreateInput{
		BatchCode:         r.BatchCode,
		FarmerName:        r.FarmerName,
		InputGroundnutsKg: r.InputGroundnutsKg,
		Notes:             r.Notes,
	}
	if r.BatchDate != nil {
		in.BatchDate = r.BatchDate.UTC()
	}
	return in
}

// AdvanceRequest carries the figures measured at the end of the current
// phase. Omitted figures are zero.
type AdvanceRequest struct {
	InputGroundnutsKg types.Quantity `json:"inputGroundnutsKg" binding:"gte=0"`
	OutputPeanutsKg   types.Quantity `json:"outputPeanutsKg" binding:"gte=0"`
	OutputOilLiters   types.Quantity `json:"outputOilLiters" binding:"gte=0"`
	OutputOilcakeKg   types.Quantity `json:"outputOilcakeKg" binding:"gte=0"`
	OutputHuskKg      types.Quantity `json:"outputHuskKg" binding:"gte=0"`
	Notes             string         `json:"notes" binding:"max=2000"`
}

// ToInput converts the request.
func (r *AdvanceRequest) ToInput() production.PhaseInput {
	return production.PhaseInput{
		InputGroundnutsKg: r.InputGroundnutsKg,
		OutputPeanutsKg:   r.OutputPeanutsKg,
		OutputOilLiters:   r.OutputOilLiters,
		OutputOilcakeKg:   r.OutputOilcakeKg,
		OutputHuskKg:      r.OutputHuskKg,
		Notes:             r.Notes,
	}
}

// ListBatchesQuery filters the batch list.
type ListBatchesQuery struct {
	Phase string `form:"phase" binding:"omitempty,oneof=dehusking pressing completed"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToFilter converts the query.
func (q *ListBatchesQuery) ToFilter() production.ListFilter {
	return production.ListFilter{Phase: production.Phase(q.Phase), Limit: q.Limit}
}
