package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyThreshold is the row count from which CopyRows uses the COPY protocol
// instead of a multi-row INSERT.
const CopyThreshold = 8

// CopyRows bulk inserts rows into table inside the current transaction.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := m.requireTx(ctx, "copy into "+table)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if len(rows) >= CopyThreshold {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return n, fmt.Errorf("copy into %s: %w", table, err)
		}
		return n, nil
	}

	q := builder().Insert(table).Columns(columns...)
	for _, r := range rows {
		q = q.Values(r...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// BatchQuery is one statement of ExecBatch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// ExecBatch sends queries in one round trip inside the current transaction.
func (m *TxManager) ExecBatch(ctx context.Context, queries []BatchQuery) error {
	tx, err := m.requireTx(ctx, "exec batch")
	if err != nil {
		return err
	}
	b := &pgx.Batch{}
	for _, q := range queries {
		b.Queue(q.SQL, q.Args...)
	}
	results := tx.SendBatch(ctx, b)
	defer results.Close()

	for range queries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch query: %w", err)
		}
	}
	return nil
}
