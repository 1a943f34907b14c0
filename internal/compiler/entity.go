// Package compiler turns CUE entity declarations into schemas.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rowkit/internal/schema"
)

// CompileEntity parses a CUE value into a Schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Customer: { table: "customers", fields: { ... } }`)
//	s, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Customer")))
//
// Fields keep their declaration order. Each field is either a descriptor
// struct ({type, encrypted, sanitize, column, required, max_length}), a type
// name string ("uuid"), or a bare CUE kind (string, int, float, bool).
func CompileEntity(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// Entity name from struct label (the path selector)
	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	var table string
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		t, err := tableVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		table = t
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	fields, err := parseFields(fieldsVal)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: "at least one field is required",
			Pos:     fieldsVal.Pos(),
		}
	}

	s, err := schema.New(name, table, fields...)
	if err != nil {
		return nil, &CompileError{
			Field:   "schema",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

// parseFields extracts field descriptors in declaration order.
func parseFields(v cue.Value) ([]schema.Field, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		f, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(name string, v cue.Value) (schema.Field, error) {
	f := schema.Field{Name: name}

	// Shorthand: a type name string or a bare kind.
	if v.IncompleteKind() != cue.StructKind {
		t, err := extractType(v)
		if err != nil {
			return f, err
		}
		f.Type = t
		return f, nil
	}

	path := "fields." + name
	f.Type = schema.TypeString
	if tv := v.LookupPath(cue.ParsePath("type")); tv.Exists() {
		t, err := extractType(tv)
		if err != nil {
			return f, err
		}
		f.Type = t
	}

	var err error
	if f.Encrypted, err = lookupBool(v, "encrypted"); err != nil {
		return f, err
	}
	if f.Required, err = lookupBool(v, "required"); err != nil {
		return f, err
	}
	if f.Column, err = lookupString(v, "column"); err != nil {
		return f, err
	}

	rule, err := lookupString(v, "sanitize")
	if err != nil {
		return f, err
	}
	if f.Sanitize, err = schema.ParseSanitizeRule(rule); err != nil {
		return f, &CompileError{Field: path + ".sanitize", Message: err.Error(), Pos: v.Pos()}
	}

	if mv := v.LookupPath(cue.ParsePath("max_length")); mv.Exists() {
		n, err := mv.Int64()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.MaxLength = int(n)
	}

	return f, nil
}

// extractType converts a type name string or CUE kind to a field type.
func extractType(v cue.Value) (schema.FieldType, error) {
	if s, err := v.String(); err == nil {
		t, err := schema.ParseFieldType(s)
		if err != nil {
			return "", &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
		}
		return t, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return schema.TypeString, nil
	case cue.IntKind:
		return schema.TypeInt, nil
	case cue.FloatKind, cue.NumberKind:
		return schema.TypeFloat, nil
	case cue.BoolKind:
		return schema.TypeBool, nil
	case cue.ListKind, cue.StructKind:
		return schema.TypeJSON, nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func lookupBool(v cue.Value, key string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(key))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func lookupString(v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: firstErr.Error()}
}
