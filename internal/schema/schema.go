// Package schema describes entities as explicit per-field descriptors.
//
// A Schema lists an entity's fields in declaration order. Each Field carries
// its value type, whether it is stored encrypted, the sanitize rule applied to
// form input, and its column name. Entity parsing, encryption, projections and
// the SQL column lists are all driven by iterating a Schema at runtime.
//
// Column naming follows four conventions, all derived from the entity prefix
// (the snake_case entity name) and the field column:
//
//	Aliased  "<prefix>.<column> AS <prefix>_<column>"
//	Plain    "<column>"
//	Renamed  "<prefix>_<column>"
//	Tabled   "<prefix>.<column>"
//
// Rows are read back through the Renamed form.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FieldType is the value type of a field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
	TypeUUID   FieldType = "uuid"
	TypeJSON   FieldType = "json"
)

// FieldTypes lists every supported field type.
var FieldTypes = []FieldType{TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeUUID, TypeJSON}

// ParseFieldType parses a type name case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FieldTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// SQLType returns the column type used when creating tables.
// Encrypted fields are always stored as TEXT ciphertext.
func (f Field) SQLType(dialect string) string {
	if f.Encrypted {
		return "TEXT"
	}
	switch f.Type {
	case TypeInt:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE PRECISION"
	case TypeBool:
		return "BOOLEAN"
	case TypeTime:
		if dialect == "postgres" {
			return "TIMESTAMPTZ"
		}
		return "DATETIME"
	case TypeUUID:
		if dialect == "postgres" {
			return "UUID"
		}
		return "TEXT"
	case TypeJSON:
		if dialect == "postgres" {
			return "JSONB"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Field describes one entity field.
type Field struct {
	Name      string       // snake_case field name
	Type      FieldType    // value type
	Encrypted bool         // persisted as ciphertext
	Sanitize  SanitizeRule // applied to form input
	Column    string       // column name; defaults to Name
	Required  bool         // form validation: must be a non-empty value
	MaxLength int          // form validation: max runes for strings, 0 = unlimited
}

// JSONName returns the camelCase wire name of the field.
func (f Field) JSONName() string {
	return CamelCase(f.Name)
}

// Schema is the ordered field descriptor of one entity.
type Schema struct {
	Name   string
	Table  string
	Fields []Field

	prefix string
	index  map[string]int
	byJSON map[string]int
}

var (
	// ErrInvalidSchema is wrapped by every schema construction error.
	ErrInvalidSchema = errors.New("invalid schema")

	identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// New validates fields and builds a Schema. Table defaults to the prefix.
func New(name, table string, fields ...Field) (*Schema, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("%w: entity name %q must be an identifier", ErrInvalidSchema, name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: entity %s has no fields", ErrInvalidSchema, name)
	}

	s := &Schema{
		Name:   name,
		prefix: SnakeCase(name),
		index:  make(map[string]int, len(fields)),
		byJSON: make(map[string]int, len(fields)),
	}
	s.Table = table
	if s.Table == "" {
		s.Table = s.prefix
	}
	if !identRe.MatchString(s.Table) {
		return nil, fmt.Errorf("%w: table %q must be an identifier", ErrInvalidSchema, s.Table)
	}

	for i, f := range fields {
		f.Name = SnakeCase(f.Name)
		if !identRe.MatchString(f.Name) {
			return nil, fmt.Errorf("%w: %s: field %q must be an identifier", ErrInvalidSchema, name, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, name, f.Name)
		}
		if f.Type == "" {
			f.Type = TypeString
		}
		if _, err := ParseFieldType(string(f.Type)); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, name, f.Name, err)
		}
		if f.Encrypted && f.Type != TypeString && f.Type != TypeInt {
			return nil, fmt.Errorf("%w: %s.%s: only string and int fields can be encrypted", ErrInvalidSchema, name, f.Name)
		}
		if f.Sanitize != SanitizeNone && f.Type != TypeString {
			return nil, fmt.Errorf("%w: %s.%s: sanitize applies to string fields only", ErrInvalidSchema, name, f.Name)
		}
		if _, err := ParseSanitizeRule(string(f.Sanitize)); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, name, f.Name, err)
		}
		if f.Column == "" {
			f.Column = f.Name
		}
		if !identRe.MatchString(f.Column) {
			return nil, fmt.Errorf("%w: %s.%s: column %q must be an identifier", ErrInvalidSchema, name, f.Name, f.Column)
		}
		if f.MaxLength < 0 {
			return nil, fmt.Errorf("%w: %s.%s: max_length must not be negative", ErrInvalidSchema, name, f.Name)
		}

		s.index[f.Name] = i
		s.byJSON[f.JSONName()] = i
		s.Fields = append(s.Fields, f)
	}

	return s, nil
}

// MustNew is like New but panics on error. Intended for tests and static
// schema declarations.
func MustNew(name, table string, fields ...Field) *Schema {
	s, err := New(name, table, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Prefix returns the snake_case entity name used in column naming.
func (s *Schema) Prefix() string { return s.prefix }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.Fields) }

// Index returns the position of the named field. Both snake_case and
// camelCase names are accepted.
func (s *Schema) Index(name string) (int, bool) {
	if i, ok := s.index[name]; ok {
		return i, true
	}
	i, ok := s.byJSON[name]
	return i, ok
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.Index(name)
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// HasEncrypted reports whether any field is encrypted.
func (s *Schema) HasEncrypted() bool {
	for _, f := range s.Fields {
		if f.Encrypted {
			return true
		}
	}
	return false
}

// Aliased returns "<prefix>.<column> AS <prefix>_<column>".
func (s *Schema) Aliased(f Field) string {
	return s.Tabled(f) + " AS " + s.Renamed(f)
}

// Plain returns "<column>".
func (s *Schema) Plain(f Field) string {
	return f.Column
}

// Renamed returns "<prefix>_<column>", the name rows are read back by.
func (s *Schema) Renamed(f Field) string {
	return s.prefix + "_" + f.Column
}

// Tabled returns "<prefix>.<column>".
func (s *Schema) Tabled(f Field) string {
	return s.prefix + "." + f.Column
}

// AllAliased joins Aliased for every field with ",".
func (s *Schema) AllAliased() string { return s.join(s.Aliased) }

// AllPlain joins Plain for every field with ",".
func (s *Schema) AllPlain() string { return s.join(s.Plain) }

// AllRenamed joins Renamed for every field with ",".
func (s *Schema) AllRenamed() string { return s.join(s.Renamed) }

// AllTabled joins Tabled for every field with ",".
func (s *Schema) AllTabled() string { return s.join(s.Tabled) }

func (s *Schema) join(name func(Field) string) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = name(f)
	}
	return strings.Join(parts, ",")
}

// KnownColumn reports whether col names a field in any of the plain, tabled
// or renamed forms.
func (s *Schema) KnownColumn(col string) (Field, bool) {
	for _, f := range s.Fields {
		if col == s.Plain(f) || col == s.Tabled(f) || col == s.Renamed(f) {
			return f, true
		}
	}
	return Field{}, false
}
