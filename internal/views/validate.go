package views

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/rowkit/internal/entity"
)

// FieldError is a validation failure on one field.
type FieldError struct {
	Field   string
	Message string
}

// Validation is the result of validating a form. The zero value is valid.
type Validation struct {
	entity string
	errors []FieldError
}

// Valid reports whether no field failed.
func (v Validation) Valid() bool { return len(v.errors) == 0 }

// Errors returns field failures in schema order.
func (v Validation) Errors() []FieldError { return v.errors }

// Err returns nil when valid and a *ValidationError otherwise.
func (v Validation) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Entity: v.entity, Fields: v.errors}
}

// ValidationError carries every field failure of one form.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// MarshalJSON encodes the failures as {"fieldName": "message", ...} in
// schema order.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Field)
		if err != nil {
			return nil, err
		}
		m, err := json.Marshal(f.Message)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(m)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Validate checks form against the required and max_length rules of its
// schema. Field names in the result are camelCase.
func Validate(form entity.Entity) Validation {
	v := Validation{entity: form.Schema().Name}
	for f, n := range form.All() {
		val, ok := n.Take()
		if f.Required && (!ok || entity.IsEmptyValue(val)) {
			v.errors = append(v.errors, FieldError{Field: f.JSONName(), Message: "is required"})
			continue
		}
		if s, isString := val.(string); isString && f.MaxLength > 0 {
			if utf8.RuneCountInString(s) > f.MaxLength {
				v.errors = append(v.errors, FieldError{
					Field:   f.JSONName(),
					Message: fmt.Sprintf("must be at most %d characters", f.MaxLength),
				})
			}
		}
	}
	return v
}
