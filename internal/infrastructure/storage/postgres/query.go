package postgres

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func builder() squirrel.StatementBuilderType { return Builder() }

// Get scans exactly one row into dst. pgxscan.NotFound reports a missing row.
func Get(ctx context.Context, q Querier, dst any, sql string, args ...any) error {
	return pgxscan.Get(ctx, q, dst, sql, args...)
}

func selectAll(ctx context.Context, q Querier, dst any, sql string, args ...any) error {
	return pgxscan.Select(ctx, q, dst, sql, args...)
}

// Select scans all rows into dst, a pointer to a slice.
func Select(ctx context.Context, q Querier, dst any, sql string, args ...any) error {
	return selectAll(ctx, q, dst, sql, args...)
}

// IsUniqueViolation reports a unique_violation (23505), optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCheckViolation reports a check_violation (23514).
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// Columns returns the "db" tags of T in field order, descending into
// embedded structs such as entity.BaseEntity.
func Columns[T any]() []string {
	var zero T
	meta := metadataOf(reflect.TypeOf(zero))
	return append([]string(nil), meta.columns...)
}

// ToMap converts a struct to column values using its "db" tags.
func ToMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	meta := metadataOf(rv.Type())
	out := make(map[string]any, len(meta.columns))
	for i, path := range meta.paths {
		out[meta.columns[i]] = rv.FieldByIndex(path).Interface()
	}
	return out
}

type typeMetadata struct {
	columns []string
	paths   [][]int
}

var typeCache sync.Map // reflect.Type -> *typeMetadata

func metadataOf(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}
	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		collect(t, nil, meta)
	}
	typeCache.Store(t, meta)
	return meta
}

func collect(t reflect.Type, prefix []int, meta *typeMetadata) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collect(f.Type, path, meta)
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.columns = append(meta.columns, tag)
		meta.paths = append(meta.paths, path)
	}
}
