// Package repo reads and writes entities of one schema through a store.
//
// Reads compile a page request into COUNT and SELECT statements, parse every
// row into an Entity, and leave ciphered fields as stored ciphertext. Use
// PageResponse, or views.Response per record, to get decrypted projections.
//
// Writes use squirrel builders with "$n" placeholders and RETURNING, so the
// returned entity is what the database stored.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/logging"
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/paging"
	"github.com/roach88/rowkit/internal/query"
	"github.com/roach88/rowkit/internal/querysql"
	"github.com/roach88/rowkit/internal/schema"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/views"
)

// IDField is the field name used for single-row lookups and writes.
const IDField = "id"

// ErrNoID is returned by keyed operations on a schema without an id field.
var ErrNoID = errors.New("schema has no id field")

// Repository reads and writes one entity table.
type Repository struct {
	q            store.Querier
	schema       *schema.Schema
	codec        *crypt.Codec
	logger       *slog.Logger
	minPerPage   int
	defaultOrder string
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithMinPerPage sets the per-page floor. Defaults to paging.MinPerPage.
func WithMinPerPage(n int) Option {
	return func(r *Repository) { r.minPerPage = n }
}

// WithDefaultOrder sets the ORDER BY used when a request has no valid
// order, e.g. "id DESC". It is emitted after ORDER BY.
func WithDefaultOrder(order string) Option {
	return func(r *Repository) { r.defaultOrder = order }
}

// New creates a Repository over q for s. codec may be nil when s has no
// ciphered fields.
func New(q store.Querier, s *schema.Schema, codec *crypt.Codec, opts ...Option) *Repository {
	r := &Repository{
		q:          q,
		schema:     s,
		codec:      codec,
		logger:     logging.NewNop(),
		minPerPage: paging.MinPerPage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the repository schema.
func (r *Repository) Schema() *schema.Schema { return r.schema }

// Statements are the SQL texts Page runs for one request.
type Statements struct {
	Total      string   `json:"total"`
	Count      string   `json:"count"`
	CountArgs  []any    `json:"countArgs"`
	Select     string   `json:"select"`
	SelectArgs []any    `json:"selectArgs"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Statements compiles p without touching the store. The requested page is
// used as is; Page clamps it once the filtered count is known.
func (r *Repository) Statements(p paging.Page[entity.Entity]) Statements {
	p = paging.Normalize(p, r.minPerPage)
	q := r.query(p)

	count, countArgs := q.Count()
	sel, selArgs := q.Select(p.PerPage, (p.Page-1)*p.PerPage)
	return Statements{
		Total:      q.Total(),
		Count:      count,
		CountArgs:  countArgs,
		Select:     sel,
		SelectArgs: selArgs,
		Warnings:   query.Validate(q.Filters, q.Orders, r.known).Warnings,
	}
}

// Page runs a paginated read. The request's page is clamped to the last
// page of the filtered result; the returned page carries the counts and
// records but not the raw search, filters and orders.
func (r *Repository) Page(ctx context.Context, req paging.Page[entity.Entity]) (paging.Page[entity.Entity], error) {
	p := paging.Normalize(req, r.minPerPage)
	q := r.query(p)

	if v := query.Validate(q.Filters, q.Orders, r.known); !v.Clean {
		for _, w := range v.Warnings {
			r.logger.Debug("query spec warning", "entity", r.schema.Name, "warning", w)
		}
	}

	total, err := store.QueryCount(ctx, r.q, q.Total())
	if err != nil {
		return p, fmt.Errorf("page %s: total: %w", r.schema.Name, err)
	}
	countSQL, countArgs := q.Count()
	filtered, err := store.QueryCount(ctx, r.q, countSQL, countArgs...)
	if err != nil {
		return p, fmt.Errorf("page %s: filtered count: %w", r.schema.Name, err)
	}
	p.TotalCount = total
	p.FilteredCount = filtered

	page, perPage, offset := paging.Limit(p, r.minPerPage)
	p.Page, p.PerPage = page, perPage

	sql, args := q.Select(perPage, offset)
	r.logger.Debug("page query", "entity", r.schema.Name, "sql", sql, "args", len(args))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return p, fmt.Errorf("page %s: %w", r.schema.Name, err)
	}
	p.Records = make([]entity.Entity, len(rows))
	for i, row := range rows {
		p.Records[i] = entity.Parse(r.schema, row)
	}

	r.logger.Info("page read",
		"entity", r.schema.Name,
		"page", p.Page,
		"per_page", p.PerPage,
		"filtered", p.FilteredCount,
		"total", p.TotalCount,
	)
	return paging.Response(p), nil
}

// PageResponse is Page followed by the response projection of every record.
func (r *Repository) PageResponse(ctx context.Context, req paging.Page[entity.Entity]) (paging.Page[entity.Entity], error) {
	p, err := r.Page(ctx, req)
	if err != nil {
		return p, err
	}
	for i, e := range p.Records {
		out, err := views.Response(r.codec, e)
		if err != nil {
			return p, fmt.Errorf("page %s: %w", r.schema.Name, err)
		}
		p.Records[i] = out
	}
	return p, nil
}

// Find returns the entity whose id equals id, or store.ErrNotFound.
func (r *Repository) Find(ctx context.Context, id any) (entity.Entity, error) {
	f, err := r.idField()
	if err != nil {
		return entity.Entity{}, err
	}
	key, err := r.bindKey(f, id)
	if err != nil {
		return entity.Entity{}, err
	}

	sql := querysql.ForSchema(r.schema).Find(f.Column)
	row, err := store.QueryOne(ctx, r.q, sql, key)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("find %s %v: %w", r.schema.Name, id, err)
	}
	return entity.Parse(r.schema, row), nil
}

// Insert stores e and returns the stored entity. An Undefined uuid id is
// generated as a v7 UUID; an Undefined int id is assigned by the database.
func (r *Repository) Insert(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	if f, err := r.idField(); err == nil && f.Type == schema.TypeUUID && e.Get(f.Name).IsUndefined() {
		id, err := uuid.NewV7()
		if err != nil {
			return entity.Entity{}, fmt.Errorf("insert %s: generate id: %w", r.schema.Name, err)
		}
		if e, err = e.Set(f.Name, id); err != nil {
			return entity.Entity{}, fmt.Errorf("insert %s: %w", r.schema.Name, err)
		}
	}

	cols, vals := r.bindings(e, false)
	if len(cols) == 0 {
		return entity.Entity{}, fmt.Errorf("insert %s: no defined fields", r.schema.Name)
	}

	sql, args, err := sq.Insert(r.schema.Table).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + r.returning()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return entity.Entity{}, fmt.Errorf("insert %s: %w", r.schema.Name, err)
	}

	row, err := store.QueryOne(ctx, r.q, sql, args...)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("insert %s: %w", r.schema.Name, err)
	}
	out := entity.Parse(r.schema, row)
	r.logger.Info("entity inserted", "entity", r.schema.Name, "id", out.Get(IDField).ValueOr(nil))
	return out, nil
}

// Update writes every non-Undefined field of e except the id to the row
// with e's id, and returns the stored entity or store.ErrNotFound.
func (r *Repository) Update(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	f, err := r.idField()
	if err != nil {
		return entity.Entity{}, err
	}
	id, ok := e.Get(f.Name).Take()
	if !ok {
		return entity.Entity{}, fmt.Errorf("update %s: id is not set", r.schema.Name)
	}

	cols, vals := r.bindings(e, true)
	if len(cols) == 0 {
		return r.Find(ctx, id)
	}
	set := make(map[string]any, len(cols))
	for i, c := range cols {
		set[c] = vals[i]
	}
	key, err := r.bindKey(f, id)
	if err != nil {
		return entity.Entity{}, err
	}

	sql, args, err := sq.Update(r.schema.Table).
		SetMap(set).
		Where(sq.Eq{f.Column: key}).
		Suffix("RETURNING " + r.returning()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return entity.Entity{}, fmt.Errorf("update %s: %w", r.schema.Name, err)
	}

	row, err := store.QueryOne(ctx, r.q, sql, args...)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("update %s %v: %w", r.schema.Name, id, err)
	}
	r.logger.Info("entity updated", "entity", r.schema.Name, "id", id, "fields", len(cols))
	return entity.Parse(r.schema, row), nil
}

// Delete removes the row with the given id, or returns store.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id any) error {
	f, err := r.idField()
	if err != nil {
		return err
	}
	key, err := r.bindKey(f, id)
	if err != nil {
		return err
	}

	sql, args, err := sq.Delete(r.schema.Table).
		Where(sq.Eq{f.Column: key}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.schema.Name, err)
	}

	n, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s %v: %w", r.schema.Name, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %v: %w", r.schema.Name, id, store.ErrNotFound)
	}
	r.logger.Info("entity deleted", "entity", r.schema.Name, "id", id)
	return nil
}

func (r *Repository) query(p paging.Page[entity.Entity]) querysql.Query {
	return querysql.ForSchema(r.schema).WithSpec(p.Filters, p.Orders, r.defaultOrder)
}

func (r *Repository) known(col string) bool {
	_, ok := r.schema.KnownColumn(col)
	return ok
}

func (r *Repository) idField() (schema.Field, error) {
	f, ok := r.schema.Field(IDField)
	if !ok {
		return schema.Field{}, fmt.Errorf("%s: %w", r.schema.Name, ErrNoID)
	}
	return f, nil
}

// bindKey coerces a caller-supplied id to the driver form of the id field.
func (r *Repository) bindKey(f schema.Field, id any) (any, error) {
	v, err := entity.Coerce(f, id)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid id %v: %w", r.schema.Name, id, err)
	}
	return bindValue(v), nil
}

// bindings returns the columns and driver values of every non-Undefined
// field in schema order.
func (r *Repository) bindings(e entity.Entity, skipID bool) ([]string, []any) {
	var cols []string
	var vals []any
	for f, v := range e.All() {
		if v.IsUndefined() || (skipID && f.Name == IDField) {
			continue
		}
		cols = append(cols, f.Column)
		vals = append(vals, bindNull(v))
	}
	return cols, vals
}

// returning lists every column under its renamed alias so RETURNING rows
// parse like SELECT rows.
func (r *Repository) returning() string {
	parts := make([]string, len(r.schema.Fields))
	for i, f := range r.schema.Fields {
		parts[i] = f.Column + " AS " + r.schema.Renamed(f)
	}
	return strings.Join(parts, ",")
}

func bindNull(v nulls.Null[any]) any {
	x, ok := v.Take()
	if !ok {
		return nil
	}
	return bindValue(x)
}

// bindValue converts a canonical field value to a form both drivers accept.
func bindValue(v any) any {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case json.RawMessage:
		return string(x)
	default:
		return v
	}
}
