package memory

import (
	"context"
	"fmt"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/ledger"
)

// MovementRepo implements ledger.Repository.
type MovementRepo struct{ s *Store }

var _ ledger.Repository = (*MovementRepo)(nil)

func (r *MovementRepo) AppendMovements(ctx context.Context, movements []ledger.Movement) error {
	if !r.s.inTx(ctx) {
		return fmt.Errorf("append movements requires transaction context")
	}
	return r.s.write(func(st *state) error {
		for _, m := range movements {
			st.seq++
			m.Seq = st.seq
			st.movements = append(st.movements, m)
		}
		return nil
	})
}

// ListMovements walks the log backwards: the log is in insertion order and
// created_at never decreases along it.
func (r *MovementRepo) ListMovements(_ context.Context, itemID id.ID, after *ledger.Cursor, limit int) ([]ledger.Movement, error) {
	var out []ledger.Movement
	r.s.read(func(st *state) {
		for i := len(st.movements) - 1; i >= 0 && len(out) < limit; i-- {
			m := st.movements[i]
			if m.ItemID != itemID {
				continue
			}
			if after != nil && !before(m, after) {
				continue
			}
			out = append(out, m)
		}
	})
	return out, nil
}

func before(m ledger.Movement, c *ledger.Cursor) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.Seq < c.Seq
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

func (r *MovementRepo) SumByItem(context.Context) (map[id.ID]types.Quantity, error) {
	sums := make(map[id.ID]types.Quantity)
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			sums[m.ItemID] += m.QuantityChange
		}
	})
	return sums, nil
}

func (r *MovementRepo) ClaimEventKey(_ context.Context, key string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.eventKeys[key]; ok {
			return apperror.NewIdempotencyConflict(key)
		}
		st.eventKeys[key] = struct{}{}
		return nil
	})
}

// AllMovements returns the whole log in insertion order.
func (r *MovementRepo) AllMovements() []ledger.Movement {
	var out []ledger.Movement
	r.s.read(func(st *state) { out = append(out, st.movements...) })
	return out
}
