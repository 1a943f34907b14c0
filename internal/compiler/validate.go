package compiler

import (
	"fmt"

	"github.com/roach88/rowkit/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateEntity = "E105" // two schemas share an entity name
	ErrDuplicateTable  = "E106" // two schemas share a table
	ErrDuplicateColumn = "E107" // two fields share a column
	ErrMissingID       = "E108" // no id field; keyed lookups unavailable
	ErrEncryptedID     = "E109" // id cannot be ciphertext
	ErrMaxLengthType   = "E110" // max_length on a non-string field
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of schemas against each other and against rules
// schema.New does not enforce. Returns all problems found (does not
// fail-fast); entries with Warning set do not make the set invalid.
func Validate(schemas []*schema.Schema) []ValidationError {
	var errs []ValidationError

	entities := make(map[string]bool)
	tables := make(map[string]string)

	for _, s := range schemas {
		if entities[s.Name] {
			errs = append(errs, ValidationError{
				Field:   s.Name,
				Message: fmt.Sprintf("duplicate entity name: %q", s.Name),
				Code:    ErrDuplicateEntity,
			})
		}
		entities[s.Name] = true

		if other, ok := tables[s.Table]; ok && other != s.Name {
			errs = append(errs, ValidationError{
				Field:   s.Name + ".table",
				Message: fmt.Sprintf("table %q already used by %s", s.Table, other),
				Code:    ErrDuplicateTable,
			})
		}
		tables[s.Table] = s.Name

		errs = append(errs, validateSchema(s)...)
	}

	return errs
}

// HasErrors reports whether errs contains anything but warnings.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

func validateSchema(s *schema.Schema) []ValidationError {
	var errs []ValidationError

	columns := make(map[string]string)
	hasID := false

	for _, f := range s.Fields {
		path := s.Name + "." + f.Name

		if other, ok := columns[f.Column]; ok {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("column %q already used by field %q", f.Column, other),
				Code:    ErrDuplicateColumn,
			})
		}
		columns[f.Column] = f.Name

		if f.Name == "id" {
			hasID = true
			if f.Encrypted {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "id field cannot be encrypted",
					Code:    ErrEncryptedID,
				})
			}
		}

		if f.MaxLength > 0 && f.Type != schema.TypeString {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("max_length applies to string fields, not %s", f.Type),
				Code:    ErrMaxLengthType,
			})
		}
	}

	if !hasID {
		errs = append(errs, ValidationError{
			Field:   s.Name,
			Message: "no id field; find, update and delete are unavailable",
			Code:    ErrMissingID,
			Warning: true,
		})
	}

	return errs
}
