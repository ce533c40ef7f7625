package memory

import (
	"cmp"
	"context"
	"slices"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/production"
)

// BatchRepo implements production.Repository.
type BatchRepo struct{ s *Store }

var _ production.Repository = (*BatchRepo)(nil)

func (r *BatchRepo) Create(_ context.Context, b *production.Batch) error {
	return r.s.write(func(st *state) error {
		for _, other := range st.batches {
			if other.BatchCode == b.BatchCode {
				return apperror.NewDuplicate("production batch", "batch_code", b.BatchCode)
			}
		}
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *BatchRepo) GetByID(_ context.Context, batchID id.ID) (*production.Batch, error) {
	var (
		b  production.Batch
		ok bool
	)
	r.s.read(func(st *state) { b, ok = st.batches[batchID] })
	if !ok {
		return nil, apperror.NewNotFound("production batch", batchID)
	}
	return &b, nil
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*production.Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *BatchRepo) List(_ context.Context, f production.ListFilter) ([]production.Batch, error) {
	var out []production.Batch
	r.s.read(func(st *state) {
		for _, b := range st.batches {
			if f.Phase != "" && b.Phase != f.Phase {
				continue
			}
			out = append(out, b)
		}
	})
	slices.SortFunc(out, func(a, b production.Batch) int {
		return cmp.Or(b.BatchDate.Compare(a.BatchDate), id.Compare(b.ID, a.ID))
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *BatchRepo) Update(_ context.Context, b *production.Batch) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.batches[b.ID]; !ok {
			return apperror.NewNotFound("production batch", b.ID)
		}
		st.batches[b.ID] = *b
		return nil
	})
}
