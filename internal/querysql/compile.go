// Package querysql compiles filter and order specs to parameterized SQL.
//
// CRITICAL: values are never interpolated. Every filter value is bound to a
// positional "$n" placeholder; only sanitized column names reach the SQL
// text. The same statements run on PostgreSQL and on SQLite, which binds
// "$n" parameters in order of appearance.
package querysql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rowkit/internal/query"
)

// Where is the compiled form of a filter list.
type Where struct {
	// Predicates holds one "col <op> $i" string per compiled filter.
	Predicates []string

	// Args holds the bound value of each predicate, in order.
	Args []any

	// Next is the first free placeholder index after the predicates.
	Next int
}

// Clause returns " WHERE p1 AND p2 ..." or "" when there are no predicates.
func (w Where) Clause() string {
	if len(w.Predicates) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.Predicates, " AND ")
}

// CompileFilters compiles filters with placeholders starting at $1.
func CompileFilters(filters []query.Filter) Where {
	return CompileFiltersAt(1, filters)
}

// CompileFiltersAt compiles filters with placeholders starting at $start.
//
// Entries are compiled in input order. An entry with an unknown operator,
// or whose column is empty after sanitization, emits nothing and does not
// consume an index.
func CompileFiltersAt(start int, filters []query.Filter) Where {
	w := Where{Predicates: []string{}, Args: []any{}, Next: start}
	for _, f := range filters {
		op := f.Op()
		if !op.Known() {
			continue
		}
		col := query.SanitizeColumn(f.Column)
		if col == "" {
			continue
		}

		w.Predicates = append(w.Predicates, predicate(op, col, w.Next))
		w.Args = append(w.Args, BindValue(op, f.Value))
		w.Next++
	}
	return w
}

func predicate(op query.Op, col string, i int) string {
	placeholder := "$" + strconv.Itoa(i)
	switch op {
	case query.OpGt:
		return col + " > " + placeholder
	case query.OpLt:
		return col + " < " + placeholder
	case query.OpLike, query.OpLikeLeft, query.OpLikeRight:
		return col + " LIKE " + placeholder
	default:
		return col + " = " + placeholder
	}
}

// BindValue returns the driver value bound for a filter.
//
// Eq, Gt and Lt bind the JSON value itself as a native Go value: string,
// int64 (float64 when not integral), bool, or nil; arrays and objects bind
// as their JSON text. The LIKE operators bind the text form of the value
// wrapped in "%" wildcards: both sides for Like, leading only for LikeLeft,
// trailing only for LikeRight.
func BindValue(op query.Op, raw json.RawMessage) any {
	switch op {
	case query.OpLike:
		return "%" + likeText(raw) + "%"
	case query.OpLikeLeft:
		return "%" + likeText(raw)
	case query.OpLikeRight:
		return likeText(raw) + "%"
	default:
		return nativeValue(raw)
	}
}

// likeText renders a JSON value for pattern matching: null is "NULL",
// booleans and numbers are their literal text, strings are themselves, and
// arrays and objects are their JSON text.
func likeText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "NULL"
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return compact(raw)
}

func nativeValue(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}

	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string, bool, nil:
		return x
	default:
		return compact(raw)
	}
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// CompileOrders returns "ORDER BY c1 DIR, c2 DIR ...".
//
// Entries with an unknown direction, or whose column is empty after
// sanitization, are skipped. When nothing remains, defaultOrder is used
// ("ORDER BY " + defaultOrder). An empty defaultOrder with no usable entries
// yields "".
func CompileOrders(orders []query.Order, defaultOrder string) string {
	clauses := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := o.Dir()
		if dir == query.DirUnknown {
			continue
		}
		col := query.SanitizeColumn(o.Column)
		if col == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", col, dir))
	}

	if len(clauses) == 0 {
		defaultOrder = strings.TrimSpace(defaultOrder)
		if defaultOrder == "" {
			return ""
		}
		return "ORDER BY " + defaultOrder
	}
	return "ORDER BY " + strings.Join(clauses, ", ")
}
