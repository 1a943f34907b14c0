package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/query"
	"github.com/roach88/rowkit/internal/schema"
)

func compile(raw string) Where {
	return CompileFilters(query.ParseFilters(raw))
}

func TestCompileFilters_Eq(t *testing.T) {
	w := compile(`[{"cols":"name","ops":"Eq","vals":"Alice"}]`)

	assert.Equal(t, []string{"name = $1"}, w.Predicates)
	assert.Equal(t, []any{"Alice"}, w.Args)
	assert.Equal(t, 2, w.Next)
	assert.Equal(t, " WHERE name = $1", w.Clause())
}

func TestCompileFilters_SanitizesColumns(t *testing.T) {
	w := compile(`[{"cols":"name; DROP TABLE x","ops":"Eq","vals":"a"}]`)

	require.Len(t, w.Predicates, 1)
	assert.Equal(t, "nameDROPTABLEx = $1", w.Predicates[0])
	assert.NotContains(t, w.Clause(), ";")
}

func TestCompileFilters_ValuesNeverInterpolated(t *testing.T) {
	w := compile(`[{"cols":"name","ops":"Eq","vals":"'; DROP TABLE users; --"}]`)

	assert.NotContains(t, w.Clause(), "DROP")
	assert.Equal(t, []any{"'; DROP TABLE users; --"}, w.Args)
}

func TestCompileFilters_Operators(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		predicate string
		arg       any
	}{
		{"gt int", `[{"cols":"age","ops":"Gt","vals":30}]`, "age > $1", int64(30)},
		{"lt float", `[{"cols":"score","ops":"Lt","vals":2.5}]`, "score < $1", 2.5},
		{"eq bool", `[{"cols":"active","ops":"Eq","vals":true}]`, "active = $1", true},
		{"eq null", `[{"cols":"deleted_at","ops":"Eq","vals":null}]`, "deleted_at = $1", nil},
		{"eq array", `[{"cols":"tags","ops":"Eq","vals":[1, 2]}]`, "tags = $1", "[1,2]"},
		{"eq object", `[{"cols":"meta","ops":"Eq","vals":{"a": 1}}]`, "meta = $1", `{"a":1}`},
		{"eq missing value", `[{"cols":"x","ops":"Eq"}]`, "x = $1", nil},
		{"like number", `[{"cols":"bio","ops":"Like","vals":42}]`, "bio LIKE $1", "%42%"},
		{"like string", `[{"cols":"bio","ops":"Like","vals":"go"}]`, "bio LIKE $1", "%go%"},
		{"like left", `[{"cols":"email","ops":"LikeLeft","vals":"@example.com"}]`, "email LIKE $1", "%@example.com"},
		{"like right", `[{"cols":"name","ops":"LikeRight","vals":"Al"}]`, "name LIKE $1", "Al%"},
		{"like null", `[{"cols":"name","ops":"Like","vals":null}]`, "name LIKE $1", "%NULL%"},
		{"like bool", `[{"cols":"name","ops":"LikeRight","vals":false}]`, "name LIKE $1", "false%"},
		{"like float literal", `[{"cols":"price","ops":"Like","vals":4.50}]`, "price LIKE $1", "%4.50%"},
		{"like array", `[{"cols":"tags","ops":"Like","vals":["a", "b"]}]`, "tags LIKE $1", `%["a","b"]%`},
		{"op case", `[{"cols":"name","ops":"like_left","vals":"x"}]`, "name LIKE $1", "%x"},
		{"qualified column", `[{"cols":"user.name","ops":"Eq","vals":"x"}]`, "user.name = $1", "x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := compile(tc.raw)
			require.Len(t, w.Predicates, 1)
			assert.Equal(t, tc.predicate, w.Predicates[0])
			assert.Equal(t, []any{tc.arg}, w.Args)
			assert.Equal(t, 2, w.Next)
		})
	}
}

func TestCompileFilters_UnknownOperatorSkipped(t *testing.T) {
	w := compile(`[
		{"cols":"a","ops":"Eq","vals":1},
		{"cols":"b","ops":"Between","vals":[1,2]},
		{"cols":"c","ops":"Gt","vals":3},
		{"cols":"';","ops":"Eq","vals":4}
	]`)

	assert.Equal(t, []string{"a = $1", "c > $2"}, w.Predicates)
	assert.Equal(t, []any{int64(1), int64(3)}, w.Args)
	assert.Equal(t, 3, w.Next)
}

func TestCompileFilters_FailOpen(t *testing.T) {
	for _, raw := range []string{"", "garbage", `{"cols":"a"}`} {
		w := compile(raw)
		assert.Empty(t, w.Predicates)
		assert.Empty(t, w.Args)
		assert.Equal(t, 1, w.Next)
		assert.Equal(t, "", w.Clause())
	}
}

func TestCompileFiltersAt(t *testing.T) {
	w := CompileFiltersAt(3, query.ParseFilters(`[{"cols":"a","ops":"Eq","vals":1},{"cols":"b","ops":"Lt","vals":2}]`))
	assert.Equal(t, []string{"a = $3", "b < $4"}, w.Predicates)
	assert.Equal(t, 5, w.Next)
}

func TestCompileOrders(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		def  string
		want string
	}{
		{"empty uses default", "", "id DESC", "ORDER BY id DESC"},
		{"malformed uses default", "{", "id DESC", "ORDER BY id DESC"},
		{"single", `[{"cols":"age","ops":"Desc"}]`, "id DESC", "ORDER BY age DESC"},
		{"multiple", `[{"cols":"age","ops":"desc"},{"cols":"name","ops":"Asc"}]`, "id", "ORDER BY age DESC, name ASC"},
		{"sanitized", `[{"cols":"age; --","ops":"Asc"}]`, "id", "ORDER BY age ASC"},
		{"unknown dir skipped", `[{"cols":"age","ops":"Up"}]`, "id ASC", "ORDER BY id ASC"},
		{"empty column skipped", `[{"cols":"--","ops":"Asc"}]`, "id ASC", "ORDER BY id ASC"},
		{"no default", "", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompileOrders(query.ParseOrders(tc.raw), tc.def))
		})
	}
}

func TestQuery_SelectAndCount(t *testing.T) {
	s := schema.MustNew("Customer", "customers",
		schema.Field{Name: "id", Type: schema.TypeInt},
		schema.Field{Name: "name"},
	)

	q := ForSchema(s).WithSpec(
		`[{"cols":"name","ops":"LikeRight","vals":"Al"},{"cols":"id","ops":"Gt","vals":10}]`,
		`[{"cols":"name","ops":"Asc"}]`,
		"customer.id DESC",
	)

	sql, args := q.Select(10, 20)
	assert.Equal(t,
		"SELECT customer.id AS customer_id,customer.name AS customer_name FROM customers customer"+
			" WHERE name LIKE $1 AND id > $2 ORDER BY name ASC LIMIT $3 OFFSET $4",
		sql)
	assert.Equal(t, []any{"Al%", int64(10), 10, 20}, args)

	count, countArgs := q.Count()
	assert.Equal(t, "SELECT COUNT(*) FROM customers customer WHERE name LIKE $1 AND id > $2", count)
	assert.Equal(t, []any{"Al%", int64(10)}, countArgs)

	assert.Equal(t, "SELECT COUNT(*) FROM customers customer", q.Total())
}

func TestQuery_NoFiltersSameTableAndAlias(t *testing.T) {
	s := schema.MustNew("Tag", "", schema.Field{Name: "label"})

	sql, args := ForSchema(s).WithSpec("", "", "tag.label ASC").Select(5, 0)
	assert.Equal(t, "SELECT tag.label AS tag_label FROM tag ORDER BY tag.label ASC LIMIT $1 OFFSET $2", sql)
	assert.Equal(t, []any{5, 0}, args)

	assert.Equal(t, "SELECT tag.label AS tag_label FROM tag WHERE label = $1 LIMIT 1", ForSchema(s).Find("label"))
}
