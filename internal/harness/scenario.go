package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schemas lists schema files (.cue, .yaml) to load. Relative paths are
	// resolved against the scenario file location.
	Schemas []string `yaml:"schemas"`

	// Entity names the schema under test.
	Entity string `yaml:"entity"`

	// DefaultOrder is used when a request has no valid order.
	DefaultOrder string `yaml:"default_order,omitempty"`

	// MinPerPage overrides the per-page floor.
	MinPerPage int `yaml:"min_per_page,omitempty"`

	// Setup rows are form input, keyed by camelCase or snake_case field
	// names, inserted before the flow.
	Setup []map[string]any `yaml:"setup,omitempty"`

	// Flow contains the page requests.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate statements and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one page request.
type FlowStep struct {
	Page    int    `yaml:"page"`
	PerPage int    `yaml:"per_page"`
	Search  string `yaml:"search,omitempty"`

	// Filters and Orders are raw JSON strings or YAML lists.
	Filters any `yaml:"filters,omitempty"`
	Orders  any `yaml:"orders,omitempty"`

	// Expect specifies the expected page. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected page values. Unset fields are not checked.
type ExpectClause struct {
	Page          *int   `yaml:"page,omitempty"`
	PerPage       *int   `yaml:"per_page,omitempty"`
	FilteredCount *int64 `yaml:"filtered_count,omitempty"`
	TotalCount    *int64 `yaml:"total_count,omitempty"`

	// Count is the expected number of records on the page.
	Count *int `yaml:"count,omitempty"`

	// Records are matched in order with subset semantics: only the listed
	// keys (camelCase wire names) are compared.
	Records []map[string]any `yaml:"records,omitempty"`
}

// Assertion validates statements or final state.
type Assertion struct {
	// Type is one of sql_contains, warning_contains, final_state.
	Type string `yaml:"type"`

	// Step is the 1-based flow step (sql_contains, warning_contains).
	Step int `yaml:"step,omitempty"`

	// Text is the expected substring (sql_contains, warning_contains).
	Text string `yaml:"text,omitempty"`

	// ID selects the row (final_state).
	ID any `yaml:"id,omitempty"`

	// Expect holds expected response fields (final_state). A key mapped to
	// null expects an absent or null field.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains     = "sql_contains"
	AssertWarningContains = "warning_contains"
	AssertFinalState      = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Relative schema paths resolve against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with relative schema paths
// resolved against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve schema paths relative to the scenario BEFORE validation
	for i, p := range scenario.Schemas {
		if !filepath.IsAbs(p) {
			scenario.Schemas[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Schemas) == 0 {
		return fmt.Errorf("at least one schema file is required")
	}
	if s.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}
	for i, step := range s.Flow {
		if _, err := rawSpec(step.Filters); err != nil {
			return fmt.Errorf("flow[%d].filters: %w", i, err)
		}
		if _, err := rawSpec(step.Orders); err != nil {
			return fmt.Errorf("flow[%d].orders: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Flow)); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLContains, AssertWarningContains:
		if a.Step < 1 || a.Step > steps {
			return fmt.Errorf("assertions[%d]: step must be between 1 and %d for %s", index, steps, a.Type)
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertFinalState:
		if a.ID == nil {
			return fmt.Errorf("assertions[%d]: id is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// rawSpec returns a filter or order spec as the JSON string clients send.
func rawSpec(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []any:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("must be a JSON string or a list, got %T", v)
	}
}
