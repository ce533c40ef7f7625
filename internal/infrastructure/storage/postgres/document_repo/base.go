// Package document_repo stores production batches and finance records.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/infrastructure/storage/postgres"
)

// table holds the CRUD shared by the document tables. Columns come from the
// "db" tags of T.
type table[T any] struct {
	txm    *postgres.TxManager
	name   string
	entity string
	cols   []string
}

func newTable[T any](txm *postgres.TxManager, name, entity string) table[T] {
	return table[T]{txm: txm, name: name, entity: entity, cols: postgres.Columns[T]()}
}

func (t table[T]) selectAll() squirrel.SelectBuilder {
	return postgres.Builder().Select(t.cols...).From(t.name)
}

func (t table[T]) insert(ctx context.Context, v *T) error {
	sql, args, err := postgres.Builder().Insert(t.name).SetMap(postgres.ToMap(v)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t table[T]) get(ctx context.Context, entityID id.ID, forUpdate bool) (*T, error) {
	q := t.selectAll().Where(squirrel.Eq{"id": entityID})
	if forUpdate {
		if t.txm.GetTx(ctx) == nil {
			return nil, fmt.Errorf("lock %s: must run inside a transaction", t.name)
		}
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var v T
	if err := postgres.Get(ctx, t.txm.GetQuerier(ctx), &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.entity, entityID)
		}
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return &v, nil
}

func (t table[T]) list(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []T
	if err := postgres.Select(ctx, t.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return out, nil
}

// exec runs an UPDATE and maps zero affected rows to notFound.
func (t table[T]) exec(ctx context.Context, q squirrel.UpdateBuilder, notFound error) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
