package querysql

import (
	"fmt"
	"strconv"

	"github.com/roach88/rowkit/internal/query"
	"github.com/roach88/rowkit/internal/schema"
)

// Query describes a filtered, ordered read of one entity table.
type Query struct {
	// Table is the table name; Alias, when different, qualifies it.
	Table string
	Alias string

	// Columns is the select list, usually schema.AllAliased.
	Columns string

	Filters      []query.Filter
	Orders       []query.Order
	DefaultOrder string
}

// ForSchema returns a Query over s that selects every field in aliased form
// so rows can be read back by their renamed columns.
func ForSchema(s *schema.Schema) Query {
	return Query{
		Table:   s.Table,
		Alias:   s.Prefix(),
		Columns: s.AllAliased(),
	}
}

// WithSpec returns a copy of q with raw filter and order JSON parsed in.
func (q Query) WithSpec(filters, orders, defaultOrder string) Query {
	q.Filters = query.ParseFilters(filters)
	q.Orders = query.ParseOrders(orders)
	q.DefaultOrder = defaultOrder
	return q
}

func (q Query) from() string {
	if q.Alias == "" || q.Alias == q.Table {
		return q.Table
	}
	return q.Table + " " + q.Alias
}

// Total returns the unfiltered row count statement.
func (q Query) Total() string {
	return "SELECT COUNT(*) FROM " + q.from()
}

// Count returns the filtered row count statement and its args.
func (q Query) Count() (string, []any) {
	w := CompileFilters(q.Filters)
	return "SELECT COUNT(*) FROM " + q.from() + w.Clause(), w.Args
}

// Select returns the page statement and its args. LIMIT and OFFSET bind to
// the two placeholders following the filter args.
func (q Query) Select(limit, offset int) (string, []any) {
	w := CompileFilters(q.Filters)

	sql := fmt.Sprintf("SELECT %s FROM %s%s", q.Columns, q.from(), w.Clause())
	if order := CompileOrders(q.Orders, q.DefaultOrder); order != "" {
		sql += " " + order
	}
	sql += " LIMIT $" + strconv.Itoa(w.Next) + " OFFSET $" + strconv.Itoa(w.Next+1)

	args := append(w.Args, limit, offset)
	return sql, args
}

// Find returns a single-row select keyed on column = $1.
func (q Query) Find(column string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1", q.Columns, q.from(), query.SanitizeColumn(column))
}
