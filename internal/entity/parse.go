package entity

import (
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

// Row is the accessor contract a storage row must satisfy. Get returns the
// column value and whether the column is present; a nil value with
// present=true is SQL NULL.
type Row interface {
	Get(column string) (value any, present bool)
}

// Parse reads one entity from row using the renamed column of every field
// ("<prefix>_<column>"). Parse never fails:
//
//   - a missing column leaves the field Undefined
//   - SQL NULL becomes Null
//   - any other value becomes Value, coerced to the field type
//   - a value that cannot be coerced leaves the field Undefined
//
// A row with no matching columns yields an empty entity. Use the store's
// not-found error, not IsEmpty, to detect a missing row.
func Parse(s *schema.Schema, row Row) Entity {
	e := New(s)
	for i, f := range s.Fields {
		v, ok := row.Get(s.Renamed(f))
		if !ok {
			continue
		}
		if v == nil {
			e.values[i] = nulls.Nil[any]()
			continue
		}
		cv, err := Coerce(f, v)
		if err != nil {
			continue
		}
		e.values[i] = nulls.New(cv)
	}
	return e
}

// Relational parses the joined side of a row. It returns Undefined when no
// field holds a Value, which is how an unmatched LEFT JOIN reads.
func Relational(s *schema.Schema, row Row) nulls.Null[Entity] {
	e := Parse(s, row)
	if !e.HasValue() {
		return nulls.Undefined[Entity]()
	}
	return nulls.New(e)
}
