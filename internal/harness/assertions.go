package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rowkit/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", step.Step, step.SQL, step.Args)
		}
	}

	return buf.String()
}

// evaluateAssertion dispatches on assertion type.
func (h *Harness) evaluateAssertion(ctx context.Context, trace []StepTrace, a Assertion) error {
	switch a.Type {
	case AssertSQLContains:
		return assertSQLContains(trace, a)
	case AssertWarningContains:
		return assertWarningContains(trace, a)
	case AssertFinalState:
		return h.assertFinalState(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func stepAt(trace []StepTrace, n int) (StepTrace, error) {
	if n < 1 || n > len(trace) {
		return StepTrace{}, fmt.Errorf("step %d out of range (trace has %d steps)", n, len(trace))
	}
	return trace[n-1], nil
}

// assertSQLContains checks the page SELECT of a step for a substring.
func assertSQLContains(trace []StepTrace, a Assertion) error {
	step, err := stepAt(trace, a.Step)
	if err != nil {
		return err
	}
	if strings.Contains(step.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("step %d SQL containing %q", a.Step, a.Text),
		Actual:   step.SQL,
		Trace:    trace,
	}
}

// assertWarningContains checks that some warning of a step has a substring.
func assertWarningContains(trace []StepTrace, a Assertion) error {
	step, err := stepAt(trace, a.Step)
	if err != nil {
		return err
	}
	for _, w := range step.Warnings {
		if strings.Contains(w, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWarningContains,
		Expected: fmt.Sprintf("step %d warning containing %q", a.Step, a.Text),
		Actual:   fmt.Sprintf("%q", step.Warnings),
		Trace:    trace,
	}
}

// assertFinalState reads a row after the flow and compares its response
// fields. An expected null matches an absent field.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	got, err := h.find(ctx, a.ID)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row with id %v", a.ID),
			Actual:   "not found",
		}
	}
	if err != nil {
		return err
	}

	if mismatch := matchRecord(got, a.Expect); mismatch != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row %v with %v", a.ID, a.Expect),
			Actual:   mismatch,
		}
	}
	return nil
}

// checkExpect compares a step against its expect clause and returns one
// message per mismatch.
func checkExpect(step StepTrace, e *ExpectClause) []string {
	var msgs []string
	if e.Page != nil && *e.Page != step.Page {
		msgs = append(msgs, fmt.Sprintf("page: expected %d, got %d", *e.Page, step.Page))
	}
	if e.PerPage != nil && *e.PerPage != step.PerPage {
		msgs = append(msgs, fmt.Sprintf("per_page: expected %d, got %d", *e.PerPage, step.PerPage))
	}
	if e.FilteredCount != nil && *e.FilteredCount != step.FilteredCount {
		msgs = append(msgs, fmt.Sprintf("filtered_count: expected %d, got %d", *e.FilteredCount, step.FilteredCount))
	}
	if e.TotalCount != nil && *e.TotalCount != step.TotalCount {
		msgs = append(msgs, fmt.Sprintf("total_count: expected %d, got %d", *e.TotalCount, step.TotalCount))
	}
	if e.Count != nil && *e.Count != len(step.Records) {
		msgs = append(msgs, fmt.Sprintf("count: expected %d, got %d", *e.Count, len(step.Records)))
	}

	if len(e.Records) > len(step.Records) {
		msgs = append(msgs, fmt.Sprintf("records: expected at least %d, got %d", len(e.Records), len(step.Records)))
		return msgs
	}
	for i, want := range e.Records {
		if mismatch := matchRecord(step.Records[i], want); mismatch != "" {
			msgs = append(msgs, fmt.Sprintf("records[%d]: %s", i, mismatch))
		}
	}
	return msgs
}

// matchRecord checks that every key of want appears in got with an equal
// value (subset semantics). Returns a description of the first mismatch.
func matchRecord(got, want map[string]any) string {
	for key, w := range want {
		g, ok := got[key]
		if w == nil {
			if ok && g != nil {
				return fmt.Sprintf("%s: expected null, got %v", key, g)
			}
			continue
		}
		if !ok {
			return fmt.Sprintf("%s: missing", key)
		}
		if !valuesEqual(g, w) {
			return fmt.Sprintf("%s: expected %v, got %v", key, w, g)
		}
	}
	return ""
}

// valuesEqual compares values by their JSON text, so a YAML int matches a
// decoded JSON number.
func valuesEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
