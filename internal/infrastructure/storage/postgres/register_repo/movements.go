// Package register_repo stores the append-only stock movement log.
package register_repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "stock_movements"
	eventKeysTable = "stock_event_keys"
)

var movementColumns = []string{"id", "item_id", "quantity_change_scaled", "reason", "event_key", "created_at"}

// MovementRepo implements ledger.Repository. It only ever inserts into
// stock_movements.
type MovementRepo struct {
	txm *postgres.TxManager
}

var _ ledger.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{txm: txm}
}

// AppendMovements inserts movements in the current transaction.
func (r *MovementRepo) AppendMovements(ctx context.Context, movements []ledger.Movement) error {
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{m.ID, m.ItemID, m.QuantityChange, m.Reason, m.EventKey, m.CreatedAt})
	}
	if _, err := r.txm.CopyRows(ctx, movementsTable, movementColumns, rows); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}
	return nil
}

// ListMovements implements ledger.Repository.
func (r *MovementRepo) ListMovements(ctx context.Context, itemID id.ID, after *ledger.Cursor, limit int) ([]ledger.Movement, error) {
	sql, args, err := listMovementsQuery(itemID, after, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []ledger.Movement
	if err := postgres.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

func listMovementsQuery(itemID id.ID, after *ledger.Cursor, limit int) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(slices.Concat(movementColumns, []string{"seq"})...).
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID})
	if after != nil {
		q = q.Where(squirrel.Expr("(created_at, seq) < (?, ?)", after.CreatedAt, after.Seq))
	}
	return q.OrderBy("created_at DESC", "seq DESC").Limit(uint64(limit))
}

// SumByItem implements ledger.Repository.
func (r *MovementRepo) SumByItem(ctx context.Context) (map[id.ID]types.Quantity, error) {
	sql, args, err := postgres.Builder().
		Select("item_id", "COALESCE(SUM(quantity_change_scaled), 0) AS total").
		From(movementsTable).
		GroupBy("item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		ItemID id.ID          `db:"item_id"`
		Total  types.Quantity `db:"total"`
	}
	if err := postgres.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}
	out := make(map[id.ID]types.Quantity, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Total
	}
	return out, nil
}

// ClaimEventKey implements ledger.Repository.
func (r *MovementRepo) ClaimEventKey(ctx context.Context, key string) error {
	sql, args, err := postgres.Builder().
		Insert(eventKeysTable).
		Columns("event_key").
		Values(key).
		Suffix("ON CONFLICT (event_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build claim: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("claim event key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewIdempotencyConflict(key)
	}
	return nil
}
