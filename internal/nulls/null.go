package nulls

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// State identifies which of the three states a Null[T] is in.
type State uint8

const (
	StateUndefined State = iota
	StateNull
	StateValue
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateNull:
		return "null"
	case StateValue:
		return "value"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Null is a tri-state optional value. The zero value is Undefined.
type Null[T any] struct {
	state State
	value T
}

// New returns a Null holding v.
func New[T any](v T) Null[T] {
	return Null[T]{state: StateValue, value: v}
}

// Nil returns an explicit Null.
func Nil[T any]() Null[T] {
	return Null[T]{state: StateNull}
}

// Undefined returns the zero Null.
func Undefined[T any]() Null[T] {
	return Null[T]{}
}

// Wrap maps a pointer read from storage: nil is Null, non-nil is Value.
// Wrap never yields Undefined.
func Wrap[T any](p *T) Null[T] {
	if p == nil {
		return Nil[T]()
	}
	return New(*p)
}

// State reports the current state.
func (n Null[T]) State() State { return n.state }

// IsUndefined reports whether n was never set.
func (n Null[T]) IsUndefined() bool { return n.state == StateUndefined }

// IsNull reports whether n is an explicit null.
func (n Null[T]) IsNull() bool { return n.state == StateNull }

// IsValue reports whether n holds a value.
func (n Null[T]) IsValue() bool { return n.state == StateValue }

// IsZero reports whether n is Undefined. encoding/json consults it for
// fields tagged omitzero.
func (n Null[T]) IsZero() bool { return n.state == StateUndefined }

// Take returns the held value and true, or the zero T and false.
func (n Null[T]) Take() (T, bool) {
	if n.state != StateValue {
		var zero T
		return zero, false
	}
	return n.value, true
}

// ValueOr returns the held value, or def when n is Undefined or Null.
func (n Null[T]) ValueOr(def T) T {
	if n.state != StateValue {
		return def
	}
	return n.value
}

// Ptr returns a pointer to a copy of the held value, or nil.
func (n Null[T]) Ptr() *T {
	if n.state != StateValue {
		return nil
	}
	v := n.value
	return &v
}

// ToUndefined maps Null to Undefined and leaves other states untouched.
func (n Null[T]) ToUndefined() Null[T] {
	if n.state == StateNull {
		return Undefined[T]()
	}
	return n
}

// String implements fmt.Stringer.
func (n Null[T]) String() string {
	if n.state == StateValue {
		return fmt.Sprint(n.value)
	}
	return n.state.String()
}

// MarshalJSON encodes Null as `null` and Value as the encoded T.
// Undefined also encodes as `null` when it cannot be omitted; tag the field
// omitzero to drop it instead.
func (n Null[T]) MarshalJSON() ([]byte, error) {
	if n.state != StateValue {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON decodes `null` to Null and any other token to Value.
func (n *Null[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Nil[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = New(v)
	return nil
}

// Scan implements sql.Scanner. SQL NULL becomes Null.
func (n *Null[T]) Scan(src any) error {
	var s sql.Null[T]
	if err := s.Scan(src); err != nil {
		return err
	}
	if !s.Valid {
		*n = Nil[T]()
		return nil
	}
	*n = New(s.V)
	return nil
}

// Value implements driver.Valuer. Undefined and Null bind as SQL NULL.
func (n Null[T]) Value() (driver.Value, error) {
	if n.state != StateValue {
		return nil, nil
	}
	return sql.Null[T]{V: n.value, Valid: true}.Value()
}
