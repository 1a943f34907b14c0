package query

import (
	"fmt"
	"regexp"
)

// unsafeColumnChars matches every character not allowed in a column
// reference. Compiled once; safe for concurrent use.
var unsafeColumnChars = regexp.MustCompile(`[^A-Za-z0-9._]`)

// SanitizeColumn removes every character outside [A-Za-z0-9._].
//
//	"name; DROP TABLE x" -> "nameDROPTABLEx"
func SanitizeColumn(col string) string {
	return unsafeColumnChars.ReplaceAllString(col, "")
}

// ValidationResult reports problems in a filter/order spec.
//
// Compilation never fails on these problems; offending entries are either
// skipped or compiled as sanitized. Warnings exist to tell the caller what
// the compiler did with their input.
type ValidationResult struct {
	// Clean is true when there are no warnings.
	Clean bool

	// Warnings lists problems in input order.
	Warnings []string
}

// Validate checks filters and orders against the compiler's rules and,
// when known is non-nil, against a set of known columns.
//
// Validate is a pure function with no side effects.
func Validate(filters []Filter, orders []Order, known func(col string) bool) ValidationResult {
	v := &validator{warnings: []string{}, known: known}
	for i, f := range filters {
		v.validateFilter(i, f)
	}
	for i, o := range orders {
		v.validateOrder(i, o)
	}
	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	known    func(string) bool
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateFilter(i int, f Filter) {
	if !f.Op().Known() {
		v.addWarning("filters[%d]: unknown operator %q - entry skipped", i, f.OpName)
		return
	}
	v.validateColumn("filters", i, f.Column)
}

func (v *validator) validateOrder(i int, o Order) {
	if o.Dir() == DirUnknown {
		v.addWarning("orders[%d]: unknown direction %q - entry skipped", i, o.DirName)
		return
	}
	v.validateColumn("orders", i, o.Column)
}

func (v *validator) validateColumn(list string, i int, col string) {
	clean := SanitizeColumn(col)
	switch {
	case clean == "":
		v.addWarning("%s[%d]: column %q is empty after sanitization - entry skipped", list, i, col)
		return
	case clean != col:
		v.addWarning("%s[%d]: column %q sanitized to %q", list, i, col, clean)
	}
	if v.known != nil && !v.known(clean) {
		v.addWarning("%s[%d]: column %q is not a known column", list, i, clean)
	}
}
