package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var registrySQL string

// Dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// ErrNotFound is returned by single-row lookups that match no row. It is
// distinct from a row that parses to an empty entity.
var ErrNotFound = errors.New("row not found")

// MapRow is one materialized result row keyed by column name.
type MapRow map[string]any

// Get returns the column value and whether the column is present.
func (r MapRow) Get(column string) (any, bool) {
	v, ok := r[column]
	return v, ok
}

// Querier is the storage contract used by the repository.
type Querier interface {
	// Query runs a statement and materializes every row.
	Query(ctx context.Context, sql string, args ...any) ([]MapRow, error)

	// Exec runs a statement and returns the affected row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Dialect returns DialectSQLite or DialectPostgres.
	Dialect() string

	// Close releases the connection or pool.
	Close() error
}

// Open connects to driver ("sqlite" or "postgres") at dsn. For SQLite the
// dsn is a file path.
func Open(ctx context.Context, driver, dsn string) (Querier, error) {
	switch driver {
	case DialectSQLite, "sqlite3", "":
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DialectPostgres, "postgresql", "pgx":
		p, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// QueryOne runs sql and returns its single row, or ErrNotFound.
func QueryOne(ctx context.Context, q Querier, sql string, args ...any) (MapRow, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// QueryCount runs a COUNT statement and returns its value.
func QueryCount(ctx context.Context, q Querier, sql string, args ...any) (int64, error) {
	row, err := QueryOne(ctx, q, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	for _, v := range row {
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		default:
			return 0, fmt.Errorf("count: unexpected %T", v)
		}
	}
	return 0, fmt.Errorf("count: no columns")
}
