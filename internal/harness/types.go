package harness

// StepTrace records one executed page request.
type StepTrace struct {
	Step          int              `json:"step"`
	SQL           string           `json:"sql"`
	Args          []any            `json:"args"`
	Warnings      []string         `json:"warnings,omitempty"`
	Page          int              `json:"page"`
	PerPage       int              `json:"perPage"`
	FilteredCount int64            `json:"filteredCount"`
	TotalCount    int64            `json:"totalCount"`
	Records       []map[string]any `json:"records"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one entry per flow step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step trace.
func (r *Result) AddStep(s StepTrace) {
	r.Trace = append(r.Trace, s)
}
