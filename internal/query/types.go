package query

import (
	"encoding/json"
	"strings"
)

// Op is a filter comparison operator.
type Op int

const (
	OpUnknown Op = iota
	OpEq
	OpGt
	OpLt
	OpLike
	OpLikeLeft
	OpLikeRight
)

var opNames = map[Op]string{
	OpEq:        "EQ",
	OpGt:        "GT",
	OpLt:        "LT",
	OpLike:      "LIKE",
	OpLikeLeft:  "LIKE_LEFT",
	OpLikeRight: "LIKE_RIGHT",
}

// ParseOp parses an operator name. Unrecognized names yield OpUnknown.
func ParseOp(s string) Op {
	key := fold(s)
	for op, name := range opNames {
		if fold(name) == key {
			return op
		}
	}
	return OpUnknown
}

// String returns the upper snake case name of op.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// Known reports whether op is one of the supported operators.
func (op Op) Known() bool {
	_, ok := opNames[op]
	return ok
}

// Dir is a sort direction.
type Dir int

const (
	DirUnknown Dir = iota
	DirAsc
	DirDesc
)

// ParseDir parses a direction name. Unrecognized names yield DirUnknown.
func ParseDir(s string) Dir {
	switch fold(s) {
	case "asc":
		return DirAsc
	case "desc":
		return DirDesc
	default:
		return DirUnknown
	}
}

// String returns "ASC", "DESC" or "UNKNOWN".
func (d Dir) String() string {
	switch d {
	case DirAsc:
		return "ASC"
	case DirDesc:
		return "DESC"
	default:
		return "UNKNOWN"
	}
}

func fold(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

// Filter is one entry of a filter spec.
//
// Value holds the raw JSON of "vals" and is never interpolated into SQL.
type Filter struct {
	Column string          `json:"cols"`
	OpName string          `json:"ops"`
	Value  json.RawMessage `json:"vals"`
}

// Op returns the parsed operator.
func (f Filter) Op() Op { return ParseOp(f.OpName) }

// Order is one entry of an order spec.
type Order struct {
	Column  string `json:"cols"`
	DirName string `json:"ops"`
}

// Dir returns the parsed direction.
func (o Order) Dir() Dir { return ParseDir(o.DirName) }
