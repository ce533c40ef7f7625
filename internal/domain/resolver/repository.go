package resolver

import (
	"context"
	"time"

	"oilmill/internal/core/id"
)

// Mapping pins a role to an item.
type Mapping struct {
	Role      Role      `db:"role" json:"role"`
	ItemID    id.ID     `db:"item_id" json:"itemId"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// MappingRepository persists the role to item mapping table.
type MappingRepository interface {
	// Get returns the mapping of a role or a NOT_FOUND AppError.
	Get(ctx context.Context, role Role) (*Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	Upsert(ctx context.Context, m Mapping) error
	// Delete removes a mapping; deleting a missing mapping is not an error.
	Delete(ctx context.Context, role Role) error
}

// Cache stores resolved item ids. Implementations may drop entries at any time.
type Cache interface {
	Get(ctx context.Context, key string) (id.ID, bool, error)
	Set(ctx context.Context, key string, itemID id.ID) error
	// Invalidate drops every cached resolution.
	Invalidate(ctx context.Context) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (id.ID, bool, error) { return id.Nil(), false, nil }
func (nopCache) Set(context.Context, string, id.ID) error          { return nil }
func (nopCache) Invalidate(context.Context) error                  { return nil }
