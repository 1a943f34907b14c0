package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/rowkit/internal/schema"
)

// MigrateResult reports what Migrate did for one schema.
type MigrateResult struct {
	Entity  string `json:"entity"`
	Table   string `json:"table"`
	Created bool   `json:"created"` // table registered for the first time
	Changed bool   `json:"changed"` // fingerprint differs from the registered one
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for s.
// A field named "id" becomes the primary key; an int id is assigned by the
// database when omitted on insert.
func CreateTableSQL(s *schema.Schema, dialect string) string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column + " " + columnType(f, dialect)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Table, strings.Join(cols, ", "))
}

func columnType(f schema.Field, dialect string) string {
	if f.Name != "id" {
		return f.SQLType(dialect)
	}
	if f.Type == schema.TypeInt && !f.Encrypted {
		if dialect == DialectPostgres {
			return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
		}
		return "INTEGER PRIMARY KEY"
	}
	return f.SQLType(dialect) + " PRIMARY KEY"
}

// Fingerprint returns a stable hash of the storage-relevant parts of s.
func Fingerprint(s *schema.Schema) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", s.Table)
	for _, f := range s.Fields {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%t\x00", f.Name, f.Column, f.Type, f.Encrypted)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Migrate creates the table of s when missing and records s in the schema
// registry. Existing tables are never altered; Changed reports a drift, and
// the registered fingerprint is kept until Register accepts the new one.
func Migrate(ctx context.Context, q Querier, s *schema.Schema) (MigrateResult, error) {
	res := MigrateResult{Entity: s.Name, Table: s.Table}
	fp := Fingerprint(s)

	rows, err := q.Query(ctx, "SELECT fingerprint FROM rowkit_schemas WHERE entity = $1", s.Name)
	if err != nil {
		return res, fmt.Errorf("migrate %s: %w", s.Name, err)
	}
	switch {
	case len(rows) == 0:
		res.Created = true
	default:
		prev, _ := rows[0].Get("fingerprint")
		res.Changed = text(prev) != fp
	}

	if _, err := q.Exec(ctx, CreateTableSQL(s, q.Dialect())); err != nil {
		return res, fmt.Errorf("migrate %s: %w", s.Name, err)
	}
	if res.Changed {
		return res, nil
	}
	if err := Register(ctx, q, s); err != nil {
		return res, err
	}
	return res, nil
}

// Register records the current fingerprint of s in the schema registry.
func Register(ctx context.Context, q Querier, s *schema.Schema) error {
	upsert, args, err := sq.Insert("rowkit_schemas").
		Columns("entity", "table_name", "fingerprint", "applied_at").
		Values(s.Name, s.Table, Fingerprint(s), time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT (entity) DO UPDATE SET table_name = excluded.table_name, fingerprint = excluded.fingerprint, applied_at = excluded.applied_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("register %s: build registry upsert: %w", s.Name, err)
	}
	if _, err := q.Exec(ctx, upsert, args...); err != nil {
		return fmt.Errorf("register %s: %w", s.Name, err)
	}
	return nil
}

// text renders a scanned TEXT column, which drivers may return as bytes.
func text(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
