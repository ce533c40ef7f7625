package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/production"
	"oilmill/internal/infrastructure/storage/postgres"
)

// BatchRepo implements production.Repository.
type BatchRepo struct {
	t table[production.Batch]
}

var _ production.Repository = (*BatchRepo)(nil)

// NewBatchRepo creates a batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{t: newTable[production.Batch](txm, "production_batches", "production batch")}
}

func (r *BatchRepo) Create(ctx context.Context, b *production.Batch) error {
	if err := r.t.insert(ctx, b); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate("production batch", "batch_code", b.BatchCode)
		}
		return err
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*production.Batch, error) {
	return r.t.get(ctx, batchID, false)
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*production.Batch, error) {
	return r.t.get(ctx, batchID, true)
}

func (r *BatchRepo) List(ctx context.Context, f production.ListFilter) ([]production.Batch, error) {
	return r.t.list(ctx, r.listQuery(f))
}

func (r *BatchRepo) listQuery(f production.ListFilter) squirrel.SelectBuilder {
	q := r.t.selectAll()
	if f.Phase != "" {
		q = q.Where(squirrel.Eq{"phase": f.Phase})
	}
	q = q.OrderBy("batch_date DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q
}

// Update writes phase, quantities and notes. b.Version is the new version;
// the row must still hold the previous one.
func (r *BatchRepo) Update(ctx context.Context, b *production.Batch) error {
	q := postgres.Builder().
		Update(r.t.name).
		Set("phase", b.Phase).
		Set("input_groundnuts_kg_scaled", b.InputGroundnutsKg).
		Set("output_peanuts_kg_scaled", b.OutputPeanutsKg).
		Set("output_oil_liters_scaled", b.OutputOilLiters).
		Set("output_oilcake_kg_scaled", b.OutputOilcakeKg).
		Set("output_husk_kg_scaled", b.OutputHuskKg).
		Set("notes", b.Notes).
		Set("version", b.Version).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID, "version": b.Version - 1})
	return r.t.exec(ctx, q, apperror.NewConcurrentModification("production batch", b.ID))
}
