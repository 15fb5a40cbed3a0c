package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Cases, len(scenario.Cases))
		})
	}
}

func TestRun_ReportsCycleWarnings(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/relations.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "category")
}

func TestRun_FailedExpectations(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.cue")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`schema: user: { allowed: ["id"] }`), 0o644))

	scenario := &Scenario{
		Name:        "failing",
		Description: "expectations that do not hold",
		Schemas:     []string{schemaPath},
		Setup: []TableSetup{{
			Table:   "user",
			Records: []map[string]any{{"id": 1}, {"id": 2}},
		}},
		Cases: []Case{
			{
				Name:   "wrong_condition",
				Schema: "user",
				Input:  map[string]any{"id": "1"},
				Expect: Expect{Condition: "and(eq(id, 2))", Records: []int64{2}},
			},
			{
				Name:   "unexpected_skip",
				Schema: "user",
				Input:  map[string]any{"name": "x"},
			},
			{
				Name:   "missing_error",
				Schema: "user",
				Input:  map[string]any{"id": "1"},
				Expect: Expect{Error: "KEY_NOT_ALLOWED"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "wrong_condition: expectation failed: condition")
	assert.Contains(t, result.Errors[1], "wrong_condition: expectation failed: records")
	assert.Contains(t, result.Errors[2], "unexpected_skip: expectation failed: skipped")
	assert.Contains(t, result.Errors[3], "missing_error: expectation failed: error")
}

func TestRun_SchemaLoadFailure(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.cue")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`schema: user: { relations: { p: "missing" } }`), 0o644))

	_, err := Run(&Scenario{
		Name:    "broken",
		Schemas: []string{schemaPath},
		Cases:   []Case{{Name: "c", Schema: "user"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schemas")
}

func TestCheckExpectations(t *testing.T) {
	outcome := CaseOutcome{
		Name:      "c",
		Condition: "and()",
		SQL:       "SELECT 1",
		Skipped:   []string{"KEY_INVALID"},
		Records:   []int64{},
	}

	assert.Empty(t, CheckExpectations(Case{Expect: Expect{
		Condition: "and()",
		SQL:       "SELECT 1",
		Skipped:   []string{"KEY_INVALID"},
		NoRecords: true,
	}}, outcome))

	errs := CheckExpectations(Case{Expect: Expect{Skipped: []string{"KEY_INVALID"}, Records: []int64{1}}}, outcome)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: [1]")
	assert.Contains(t, errs[0], "Actual: []")

	noTable := outcome
	noTable.Records = nil
	errs = CheckExpectations(Case{Expect: Expect{Skipped: []string{"KEY_INVALID"}, NoRecords: true}}, noTable)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: no table")
}
