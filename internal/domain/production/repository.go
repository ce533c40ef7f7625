package production

import (
	"context"

	"oilmill/internal/core/id"
)

// Repository persists production batches.
type Repository interface {
	Create(ctx context.Context, batch *Batch) error
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)
	// GetForUpdate locks the batch row until the transaction ends.
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)
	List(ctx context.Context, filter ListFilter) ([]Batch, error)
	Update(ctx context.Context, batch *Batch) error
}
