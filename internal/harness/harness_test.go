package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_ScenariosPass(t *testing.T) {
	for _, name := range []string{"active_customers", "page_clamp", "filter_warnings"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(loadTestScenario(t, name).Flow))
		})
	}
}

func TestRun_Golden(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "active_customers"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRun_SetupSanitizesAndSeals(t *testing.T) {
	s := loadTestScenario(t, "active_customers")
	result, err := Run(s)
	require.NoError(t, err)

	records := result.Trace[0].Records
	require.Len(t, records, 2)
	assert.Equal(t, "Grace Hopper", records[0]["name"])
	assert.Equal(t, "grace@example.com", records[0]["email"])
}

func TestRun_PageClamped(t *testing.T) {
	result, err := Run(loadTestScenario(t, "page_clamp"))
	require.NoError(t, err)

	step := result.Trace[0]
	assert.Equal(t, 3, step.Page)
	assert.Equal(t, 3, step.PerPage)
	assert.Equal(t, []any{3, 6}, step.Args)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := loadTestScenario(t, "active_customers")
	wrong := int64(99)
	s.Flow[0].Expect.FilteredCount = &wrong
	s.Flow[0].Expect.Records[0]["name"] = "Nobody"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "filtered_count: expected 99, got 2")
	assert.Contains(t, result.Errors[1], "records[0]: name")
}

func TestRun_AssertionFailureReported(t *testing.T) {
	s := loadTestScenario(t, "active_customers")
	s.Assertions = append(s.Assertions, Assertion{Type: AssertFinalState, ID: 42, Expect: map[string]any{"name": "x"}})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")
}

func TestRun_InvalidSetupRow(t *testing.T) {
	s := loadTestScenario(t, "active_customers")
	s.Setup = append(s.Setup, map[string]any{"email": "missing@name.io"})

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[3]")
	assert.Contains(t, err.Error(), "is required")
}

func TestRun_UnknownEntity(t *testing.T) {
	s := loadTestScenario(t, "active_customers")
	s.Entity = "Ghost"

	_, err := Run(s)
	assert.ErrorContains(t, err, `entity "Ghost" not found`)
}

func TestRun_Isolation(t *testing.T) {
	s := loadTestScenario(t, "active_customers")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.EqualValues(t, 3, second.Trace[0].TotalCount)
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	data, err := TraceSnapshot{ScenarioName: "x", Trace: []StepTrace{}}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario_name\": \"x\",\n  \"trace\": []\n}\n", string(data))
}

func TestGoldenFileExists(t *testing.T) {
	_, err := os.Stat(filepath.Join("testdata", "golden", "active_customers.golden"))
	assert.NoError(t, err)
}
