package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/paging"
	"github.com/roach88/rowkit/internal/schema"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/views"
)

var customerSchema = schema.MustNew("Customer", "customers",
	schema.Field{Name: "id", Type: schema.TypeInt},
	schema.Field{Name: "name", Type: schema.TypeString},
	schema.Field{Name: "email", Type: schema.TypeString, Encrypted: true},
	schema.Field{Name: "active", Type: schema.TypeBool},
)

var tagSchema = schema.MustNew("Tag", "",
	schema.Field{Name: "id", Type: schema.TypeUUID},
	schema.Field{Name: "label", Type: schema.TypeString},
)

func testCodec(t *testing.T) *crypt.Codec {
	t.Helper()
	ring, err := crypt.NewKeyring(1, map[int]string{1: "base64:MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="})
	require.NoError(t, err)
	return crypt.NewCodec(ring)
}

// setupRepo opens a migrated SQLite store and returns a repository over s.
func setupRepo(t *testing.T, s *schema.Schema, opts ...Option) *Repository {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = store.Migrate(context.Background(), db, s)
	require.NoError(t, err)
	return New(db, s, testCodec(t), opts...)
}

// seedCustomers inserts n customers named c01..cNN, every other one active.
func seedCustomers(t *testing.T, r *Repository, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		e := entity.New(customerSchema)
		e, err := e.Set("name", fmt.Sprintf("c%02d", i))
		require.NoError(t, err)
		e, err = e.Set("active", i%2 == 1)
		require.NoError(t, err)
		_, err = r.Insert(ctx, e)
		require.NoError(t, err)
	}
}

func TestInsert_AssignsIntID(t *testing.T) {
	r := setupRepo(t, customerSchema)
	ctx := context.Background()

	e, err := entity.New(customerSchema).Set("name", "Ada")
	require.NoError(t, err)

	got, err := r.Insert(ctx, e)
	require.NoError(t, err)

	id := entity.Value[int64](got, "id")
	require.True(t, id.IsValue())
	assert.Equal(t, "Ada", entity.Value[string](got, "name").ValueOr(""))
	assert.True(t, got.Get("email").IsNull(), "unset column reads back as NULL")

	found, err := r.Find(ctx, id.ValueOr(0))
	require.NoError(t, err)
	assert.True(t, found.Equal(got))
}

func TestInsert_GeneratesUUID(t *testing.T) {
	r := setupRepo(t, tagSchema)
	ctx := context.Background()

	e, err := entity.New(tagSchema).Set("label", "red")
	require.NoError(t, err)

	got, err := r.Insert(ctx, e)
	require.NoError(t, err)

	id, ok := entity.Value[uuid.UUID](got, "id").Take()
	require.True(t, ok)
	assert.Equal(t, uuid.Version(7), id.Version())

	found, err := r.Find(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, "red", entity.Value[string](found, "label").ValueOr(""))
}

func TestFind_NotFound(t *testing.T) {
	r := setupRepo(t, customerSchema)

	_, err := r.Find(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Find(context.Background(), "not-a-number")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestKeyedOps_NoIDField(t *testing.T) {
	noID := schema.MustNew("Note", "", schema.Field{Name: "body"})
	r := setupRepo(t, noID)

	_, err := r.Find(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoID)
	assert.ErrorIs(t, r.Delete(context.Background(), 1), ErrNoID)
}

func TestUpdate(t *testing.T) {
	r := setupRepo(t, customerSchema)
	ctx := context.Background()
	seedCustomers(t, r, 1)

	patch := entity.New(customerSchema)
	patch, err := patch.Set("id", 1)
	require.NoError(t, err)
	patch, err = patch.Set("name", "renamed")
	require.NoError(t, err)

	got, err := r.Update(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, "renamed", entity.Value[string](got, "name").ValueOr(""))
	assert.Equal(t, true, entity.Value[bool](got, "active").ValueOr(false), "undefined fields are left alone")

	patch, err = patch.Set("id", 2)
	require.NoError(t, err)
	_, err = r.Update(ctx, patch)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Update(ctx, entity.New(customerSchema))
	assert.Error(t, err)
}

func TestUpdate_SetNull(t *testing.T) {
	r := setupRepo(t, customerSchema)
	ctx := context.Background()
	seedCustomers(t, r, 1)

	patch, err := entity.New(customerSchema).Set("id", 1)
	require.NoError(t, err)
	patch, err = patch.SetNull("name")
	require.NoError(t, err)

	got, err := r.Update(ctx, patch)
	require.NoError(t, err)
	assert.True(t, got.Get("name").IsNull())
}

func TestDelete(t *testing.T) {
	r := setupRepo(t, customerSchema)
	ctx := context.Background()
	seedCustomers(t, r, 2)

	require.NoError(t, r.Delete(ctx, 1))
	assert.ErrorIs(t, r.Delete(ctx, 1), store.ErrNotFound)

	_, err := r.Find(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPage_FiltersOrdersAndCounts(t *testing.T) {
	r := setupRepo(t, customerSchema, WithDefaultOrder("id ASC"))
	seedCustomers(t, r, 12)

	got, err := r.Page(context.Background(), paging.Page[entity.Entity]{
		Page:    2,
		PerPage: 5,
		Search:  "ignored",
		Filters: `[{"cols":"active","ops":"Eq","vals":true}]`,
		Orders:  `[{"cols":"name","ops":"Desc"}]`,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), got.TotalCount)
	assert.Equal(t, int64(6), got.FilteredCount)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 5, got.PerPage)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "c01", entity.Value[string](got.Records[0], "name").ValueOr(""))

	assert.Empty(t, got.Search)
	assert.Empty(t, got.Filters)
	assert.Empty(t, got.Orders)
}

func TestPage_ClampsToLastPage(t *testing.T) {
	r := setupRepo(t, customerSchema, WithDefaultOrder("id ASC"))
	seedCustomers(t, r, 7)

	got, err := r.Page(context.Background(), paging.Page[entity.Entity]{Page: 9, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Page)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "c06", entity.Value[string](got.Records[0], "name").ValueOr(""))
}

func TestPage_EmptyResult(t *testing.T) {
	r := setupRepo(t, customerSchema)
	seedCustomers(t, r, 3)

	got, err := r.Page(context.Background(), paging.Page[entity.Entity]{
		Page:    3,
		Filters: `[{"cols":"name","ops":"Like","vals":"zzz"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, paging.MinPerPage, got.PerPage)
	assert.Equal(t, int64(0), got.FilteredCount)
	assert.Equal(t, int64(3), got.TotalCount)
	assert.NotNil(t, got.Records)
	assert.Empty(t, got.Records)
}

func TestPage_MalformedSpecIsIgnored(t *testing.T) {
	r := setupRepo(t, customerSchema)
	seedCustomers(t, r, 3)

	got, err := r.Page(context.Background(), paging.Page[entity.Entity]{
		Filters: `not json`,
		Orders:  `[{"cols":"name","ops":"Sideways"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.FilteredCount)
	assert.Len(t, got.Records, 3)
}

func TestPage_InjectionIsInert(t *testing.T) {
	r := setupRepo(t, customerSchema)
	seedCustomers(t, r, 3)

	got, err := r.Page(context.Background(), paging.Page[entity.Entity]{
		Filters: `[{"cols":"name","ops":"Eq","vals":"x' OR '1'='1"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.FilteredCount)

	_, err = r.Find(context.Background(), 1)
	require.NoError(t, err, "table still intact")
}

func TestPageResponse_DecryptsCipheredFields(t *testing.T) {
	r := setupRepo(t, customerSchema)
	ctx := context.Background()
	codec := testCodec(t)

	form, err := entity.New(customerSchema).Set("name", "Ada")
	require.NoError(t, err)
	form, err = form.Set("email", "ada@example.com")
	require.NoError(t, err)

	stored, err := views.FromForm(codec, form)
	require.NoError(t, err)
	inserted, err := r.Insert(ctx, stored)
	require.NoError(t, err)

	ct := entity.Value[string](inserted, "email").ValueOr("")
	assert.NotEqual(t, "ada@example.com", ct, "stored value is ciphertext")

	plain, err := r.Insert(ctx, entity.New(customerSchema).Mutate(mustSet(t, "name", "Bob")))
	require.NoError(t, err)
	require.True(t, plain.Get("email").IsNull())

	page, err := r.PageResponse(ctx, paging.Page[entity.Entity]{Orders: `[{"cols":"id","ops":"Asc"}]`})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, nulls.New[any]("ada@example.com"), page.Records[0].Get("email"))
	assert.True(t, page.Records[1].Get("email").IsNull())
}

func TestStatements(t *testing.T) {
	r := New(nil, customerSchema, nil, WithDefaultOrder("id DESC"))

	st := r.Statements(paging.Page[entity.Entity]{
		Page:    3,
		Filters: `[{"cols":"nmae","ops":"Like","vals":"a"}]`,
	})
	assert.Equal(t, "SELECT COUNT(*) FROM customers customer", st.Total)
	assert.Equal(t, "SELECT COUNT(*) FROM customers customer WHERE nmae LIKE $1", st.Count)
	assert.Equal(t, []any{"%a%"}, st.CountArgs)
	assert.Equal(t,
		"SELECT customer.id AS customer_id,customer.name AS customer_name,customer.email AS customer_email,customer.active AS customer_active FROM customers customer WHERE nmae LIKE $1 ORDER BY id DESC LIMIT $2 OFFSET $3",
		st.Select)
	assert.Equal(t, []any{"%a%", 5, 10}, st.SelectArgs)
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "not a known column")
}

func mustSet(t *testing.T, name string, v any) entity.Entity {
	t.Helper()
	e, err := entity.New(customerSchema).Set(name, v)
	require.NoError(t, err)
	return e
}
