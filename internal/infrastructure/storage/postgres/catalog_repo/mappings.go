package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oilmill/internal/core/apperror"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/infrastructure/storage/postgres"
)

const mappingsTable = "item_mappings"

// MappingRepo implements resolver.MappingRepository.
type MappingRepo struct {
	txm *postgres.TxManager
}

var _ resolver.MappingRepository = (*MappingRepo)(nil)

// NewMappingRepo creates a mapping repository.
func NewMappingRepo(txm *postgres.TxManager) *MappingRepo {
	return &MappingRepo{txm: txm}
}

// Get implements resolver.MappingRepository.
func (r *MappingRepo) Get(ctx context.Context, role resolver.Role) (*resolver.Mapping, error) {
	sql, args, err := postgres.Builder().
		Select("role", "item_id", "updated_at").
		From(mappingsTable).
		Where(squirrel.Eq{"role": role}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var m resolver.Mapping
	if err := postgres.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item mapping", role)
		}
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &m, nil
}

// List implements resolver.MappingRepository.
func (r *MappingRepo) List(ctx context.Context) ([]resolver.Mapping, error) {
	sql, args, err := postgres.Builder().
		Select("role", "item_id", "updated_at").
		From(mappingsTable).
		OrderBy("role").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []resolver.Mapping
	if err := postgres.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return out, nil
}

// Upsert implements resolver.MappingRepository.
func (r *MappingRepo) Upsert(ctx context.Context, m resolver.Mapping) error {
	sql, args, err := upsertMappingQuery(m).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

func upsertMappingQuery(m resolver.Mapping) squirrel.InsertBuilder {
	return postgres.Builder().
		Insert(mappingsTable).
		Columns("role", "item_id", "updated_at").
		Values(m.Role, m.ItemID, m.UpdatedAt).
		Suffix("ON CONFLICT (role) DO UPDATE SET item_id = EXCLUDED.item_id, updated_at = EXCLUDED.updated_at")
}

// Delete implements resolver.MappingRepository.
func (r *MappingRepo) Delete(ctx context.Context, role resolver.Role) error {
	sql, args, err := postgres.Builder().
		Delete(mappingsTable).
		Where(squirrel.Eq{"role": role}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}
