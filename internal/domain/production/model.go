// Package production runs the two-phase conversion of groundnuts into oil.
package production

import (
	"context"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/entity"
	"oilmill/internal/core/types"
)

// Phase is the state of a batch. It only moves forward.
type Phase string

const (
	PhaseDehusking Phase = "dehusking"
	PhasePressing  Phase = "pressing"
	PhaseCompleted Phase = "completed"
)

// Next returns the phase that follows p.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseDehusking:
		return PhasePressing, true
	case PhasePressing:
		return PhaseCompleted, true
	}
	return p, false
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseDehusking, PhasePressing, PhaseCompleted:
		return true
	}
	return false
}

// Batch is a production batch of one farmer's groundnuts.
type Batch struct {
	entity.BaseEntity

	BatchCode  string    `db:"batch_code" json:"batchCode"`
	FarmerName string    `db:"farmer_name" json:"farmerName"`
	BatchDate  time.Time `db:"batch_date" json:"batchDate"`
	Phase      Phase     `db:"phase" json:"phase"`

	InputGroundnutsKg types.Quantity `db:"input_groundnuts_kg_scaled" json:"inputGroundnutsKg"`
	OutputPeanutsKg   types.Quantity `db:"output_peanuts_kg_scaled" json:"outputPeanutsKg"`
	OutputOilLiters   types.Quantity `db:"output_oil_liters_scaled" json:"outputOilLiters"`
	OutputOilcakeKg   types.Quantity `db:"output_oilcake_kg_scaled" json:"outputOilcakeKg"`
	OutputHuskKg      types.Quantity `db:"output_husk_kg_scaled" json:"outputHuskKg"`

	Notes string `db:"notes" json:"notes"`
}

// Validate checks batch invariants.
func (b *Batch) Validate(_ context.Context) error {
	if strings.TrimSpace(b.FarmerName) == "" {
		return apperror.NewValidation("farmer name is required")
	}
	if !b.Phase.Valid() {
		return apperror.NewValidation("unknown phase").WithDetail("phase", b.Phase)
	}
	for name, q := range map[string]types.Quantity{
		"input_groundnuts_kg": b.InputGroundnutsKg,
		"output_peanuts_kg":   b.OutputPeanutsKg,
		"output_oil_liters":   b.OutputOilLiters,
		"output_oilcake_kg":   b.OutputOilcakeKg,
		"output_husk_kg":      b.OutputHuskKg,
	} {
		if q.IsNegative() {
			return apperror.NewValidation(name + " cannot be negative")
		}
	}
	return nil
}

// CreateInput starts a batch.
type CreateInput struct {
	BatchCode         string
	FarmerName        string
	BatchDate         time.Time
	InputGroundnutsKg types.Quantity
	Notes             string
}

// PhaseInput carries the figures measured at the end of the current phase.
// Zero means not measured.
type PhaseInput struct {
	InputGroundnutsKg types.Quantity
	OutputPeanutsKg   types.Quantity
	OutputOilLiters   types.Quantity
	OutputOilcakeKg   types.Quantity
	OutputHuskKg      types.Quantity
	Notes             string
}

// ListFilter narrows List.
type ListFilter struct {
	Phase Phase
	Limit int
}

// AdvanceResult describes a phase advance.
type AdvanceResult struct {
	Batch       *Batch   `json:"batch"`
	From        Phase    `json:"from"`
	To          Phase    `json:"to"`
	MovementIDs []string `json:"movementIds"`
}

// PhaseAdvancedPayload is the payload of the production.phase_advanced event.
type PhaseAdvancedPayload struct {
	BatchCode string `json:"batchCode"`
	From      Phase  `json:"from"`
	To        Phase  `json:"to"`
}
