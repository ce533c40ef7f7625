package ledger

import (
	"context"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
)

// Repository persists movements. Movements are never updated or deleted.
type Repository interface {
	// AppendMovements inserts movements. Must be called inside a transaction.
	AppendMovements(ctx context.Context, movements []Movement) error

	// ListMovements returns up to limit movements of an item, most recent
	// first (created_at desc, seq desc), strictly after cursor when given.
	ListMovements(ctx context.Context, itemID id.ID, after *Cursor, limit int) ([]Movement, error)

	// SumByItem returns the sum of quantity changes per item.
	SumByItem(ctx context.Context) (map[id.ID]types.Quantity, error)

	// ClaimEventKey records a business event key. A key that was already
	// claimed fails with an IDEMPOTENCY_CONFLICT AppError.
	ClaimEventKey(ctx context.Context, key string) error
}
