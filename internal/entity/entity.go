// Package entity holds in-memory records shaped by a schema.Schema.
//
// An Entity maps each schema field, in declaration order, to a
// nulls.Null[any]. Entities have value semantics: every setter returns a new
// copy and never mutates the receiver, so an Entity can be shared between
// goroutines without locking.
//
// Values are stored in their canonical Go type for the field:
//
//	string -> string      int  -> int64      float -> float64
//	bool   -> bool        time -> time.Time  uuid  -> uuid.UUID
//	json   -> json.RawMessage
//
// Encrypted fields additionally accept a string at any time, since their
// persisted form is ciphertext text.
package entity

import (
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

// ErrUnknownField is returned when a field name is not in the schema.
var ErrUnknownField = errors.New("unknown field")

// Entity is an ordered set of tri-state field values.
type Entity struct {
	schema *schema.Schema
	values []nulls.Null[any]
}

// New returns an entity with every field Undefined.
func New(s *schema.Schema) Entity {
	return Entity{schema: s, values: make([]nulls.Null[any], s.Len())}
}

// Schema returns the entity's schema.
func (e Entity) Schema() *schema.Schema { return e.schema }

// Get returns the named field. Unknown names yield Undefined.
func (e Entity) Get(name string) nulls.Null[any] {
	i, ok := e.index(name)
	if !ok {
		return nulls.Undefined[any]()
	}
	return e.values[i]
}

// At returns the field value at position i in schema order.
func (e Entity) At(i int) nulls.Null[any] {
	return e.values[i]
}

// All yields every field with its value in schema order.
func (e Entity) All() iter.Seq2[schema.Field, nulls.Null[any]] {
	return func(yield func(schema.Field, nulls.Null[any]) bool) {
		for i, f := range e.schema.Fields {
			if !yield(f, e.values[i]) {
				return
			}
		}
	}
}

// Value returns the named field converted to T. A field that is not a Value,
// or whose value is not a T, is returned as Undefined unless it is Null.
func Value[T any](e Entity, name string) nulls.Null[T] {
	n := e.Get(name)
	switch {
	case n.IsNull():
		return nulls.Nil[T]()
	case n.IsUndefined():
		return nulls.Undefined[T]()
	}
	v, _ := n.Take()
	t, ok := v.(T)
	if !ok {
		return nulls.Undefined[T]()
	}
	return nulls.New(t)
}

// Put returns a copy with the named field replaced by n. Values are coerced
// to the field's canonical type.
func (e Entity) Put(name string, n nulls.Null[any]) (Entity, error) {
	i, ok := e.index(name)
	if !ok {
		return e, fmt.Errorf("%w: %s.%s", ErrUnknownField, e.schema.Name, name)
	}
	if v, isValue := n.Take(); isValue {
		if v == nil {
			n = nulls.Nil[any]()
		} else {
			cv, err := Coerce(e.schema.Fields[i], v)
			if err != nil {
				return e, fmt.Errorf("set %s.%s: %w", e.schema.Name, e.schema.Fields[i].Name, err)
			}
			n = nulls.New(cv)
		}
	}
	return e.with(i, n), nil
}

// Set returns a copy with the named field holding v. A nil v sets Null.
func (e Entity) Set(name string, v any) (Entity, error) {
	return e.Put(name, nulls.New(v))
}

// SetNull returns a copy with the named field explicitly Null.
func (e Entity) SetNull(name string) (Entity, error) {
	return e.Put(name, nulls.Nil[any]())
}

// Unset returns a copy with the named field Undefined.
func (e Entity) Unset(name string) (Entity, error) {
	return e.Put(name, nulls.Undefined[any]())
}

// IsEmpty reports whether every field is Undefined.
func (e Entity) IsEmpty() bool {
	for _, v := range e.values {
		if !v.IsUndefined() {
			return false
		}
	}
	return true
}

// HasValue reports whether at least one field holds a Value.
func (e Entity) HasValue() bool {
	for _, v := range e.values {
		if v.IsValue() {
			return true
		}
	}
	return false
}

// NullsToUndefined returns a copy with every Null field turned Undefined.
func (e Entity) NullsToUndefined() Entity {
	out := e.clone()
	for i, v := range out.values {
		out.values[i] = v.ToUndefined()
	}
	return out
}

// FieldToUndefined returns a copy with the named field Undefined regardless
// of its state.
func (e Entity) FieldToUndefined(name string) (Entity, error) {
	return e.Unset(name)
}

// Mutate returns a copy of e with every non-Undefined field of form applied.
// Fields are matched by name, so form may use a different schema.
func (e Entity) Mutate(form Entity) Entity {
	out := e.clone()
	for f, v := range form.All() {
		if v.IsUndefined() {
			continue
		}
		i, ok := out.schema.Index(f.Name)
		if !ok {
			continue
		}
		out.values[i] = v
	}
	return out
}

// Equal reports whether both entities share a schema and hold equal values.
func (e Entity) Equal(o Entity) bool {
	if e.schema != o.schema || len(e.values) != len(o.values) {
		return false
	}
	for i := range e.values {
		if !equalNull(e.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

func (e Entity) index(name string) (int, bool) {
	if e.schema == nil {
		return 0, false
	}
	return e.schema.Index(name)
}

func (e Entity) clone() Entity {
	values := make([]nulls.Null[any], len(e.values))
	copy(values, e.values)
	return Entity{schema: e.schema, values: values}
}

func (e Entity) with(i int, n nulls.Null[any]) Entity {
	out := e.clone()
	out.values[i] = n
	return out
}
