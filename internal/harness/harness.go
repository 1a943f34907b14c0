package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/rowkit/internal/compiler"
	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/logging"
	"github.com/roach88/rowkit/internal/paging"
	"github.com/roach88/rowkit/internal/repo"
	"github.com/roach88/rowkit/internal/schema"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/views"
)

// testMasterKey is the hex master key every scenario encrypts with.
const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// Harness is the scenario execution engine.
type Harness struct {
	store  *store.SQLite
	repo   *repo.Repository
	codec  *crypt.Codec
	schema *schema.Schema
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used by the repository under test.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load schemas and migrate every table
// 2. Insert setup rows through the form pipeline
// 3. Run each flow step and check its expect clause
// 4. Evaluate assertions
//
// A returned error means the scenario could not run; mismatches are
// reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	h := &Harness{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.setup(ctx, scenario); err != nil {
		return nil, err
	}
	defer h.store.Close()

	for i, row := range scenario.Setup {
		if err := h.insert(ctx, row); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		trace, err := h.runStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
		result.AddStep(trace)
		if step.Expect != nil {
			for _, msg := range checkExpect(trace, step.Expect) {
				result.AddError(fmt.Sprintf("flow[%d]: %s", i, msg))
			}
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluateAssertion(ctx, result.Trace, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}

	return result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	schemas, err := compiler.LoadFiles(scenario.Schemas)
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	for _, verr := range compiler.Validate(schemas) {
		if !verr.Warning {
			return fmt.Errorf("invalid schemas: %s", verr.Error())
		}
	}
	s, ok := compiler.Find(schemas, scenario.Entity)
	if !ok {
		return fmt.Errorf("entity %q not found in schemas", scenario.Entity)
	}
	h.schema = s

	ring, err := crypt.NewKeyring(1, map[int]string{1: testMasterKey})
	if err != nil {
		return fmt.Errorf("failed to create keyring: %w", err)
	}
	h.codec = crypt.NewCodec(ring)

	db, err := store.OpenSQLite(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	for _, sc := range schemas {
		if _, err := store.Migrate(ctx, db, sc); err != nil {
			db.Close()
			return fmt.Errorf("failed to migrate %s: %w", sc.Name, err)
		}
	}
	h.store = db

	opts := []repo.Option{
		repo.WithLogger(h.logger),
		repo.WithDefaultOrder(scenario.DefaultOrder),
	}
	if scenario.MinPerPage > 0 {
		opts = append(opts, repo.WithMinPerPage(scenario.MinPerPage))
	}
	h.repo = repo.New(db, s, h.codec, opts...)
	return nil
}

// insert runs a setup row through sanitize, validate and seal before
// storing it.
func (h *Harness) insert(ctx context.Context, row map[string]any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	form, err := entity.Decode(h.schema, data)
	if err != nil {
		return err
	}
	form = views.Sanitize(form)
	if err := views.Validate(form).Err(); err != nil {
		return err
	}
	stored, err := views.FromForm(h.codec, form)
	if err != nil {
		return err
	}
	_, err = h.repo.Insert(ctx, stored)
	return err
}

func (h *Harness) runStep(ctx context.Context, n int, step FlowStep) (StepTrace, error) {
	filters, err := rawSpec(step.Filters)
	if err != nil {
		return StepTrace{}, err
	}
	orders, err := rawSpec(step.Orders)
	if err != nil {
		return StepTrace{}, err
	}

	req := paging.Page[entity.Entity]{
		Page:    step.Page,
		PerPage: step.PerPage,
		Search:  step.Search,
		Filters: filters,
		Orders:  orders,
	}
	resp, err := h.repo.PageResponse(ctx, req)
	if err != nil {
		return StepTrace{}, err
	}

	// Statements for the page actually read.
	req.Page, req.PerPage = resp.Page, resp.PerPage
	stmts := h.repo.Statements(req)

	records := make([]map[string]any, len(resp.Records))
	for i, e := range resp.Records {
		if records[i], err = toMap(e); err != nil {
			return StepTrace{}, err
		}
	}

	args := stmts.SelectArgs
	if args == nil {
		args = []any{}
	}
	return StepTrace{
		Step:          n,
		SQL:           stmts.Select,
		Args:          args,
		Warnings:      stmts.Warnings,
		Page:          resp.Page,
		PerPage:       resp.PerPage,
		FilteredCount: resp.FilteredCount,
		TotalCount:    resp.TotalCount,
		Records:       records,
	}, nil
}

// find reads one row in its response projection.
func (h *Harness) find(ctx context.Context, id any) (map[string]any, error) {
	e, err := h.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := views.Response(h.codec, e)
	if err != nil {
		return nil, err
	}
	return toMap(out)
}

// toMap converts an entity to its JSON object form.
func toMap(e entity.Entity) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
