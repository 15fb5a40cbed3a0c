package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qfilter/internal/value"
)

// Snapshot captures every case outcome of a scenario execution.
type Snapshot struct {
	ScenarioName string
	Cases        []CaseOutcome
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	cases := make([]any, len(s.Cases))
	for i, c := range s.Cases {
		skipped := make([]any, len(c.Skipped))
		for j, code := range c.Skipped {
			skipped[j] = code
		}
		m := map[string]any{
			"name":    c.Name,
			"skipped": skipped,
		}
		if c.Error != "" {
			m["error"] = c.Error
		}
		if c.Condition != "" {
			m["condition"] = c.Condition
		}
		if c.SQL != "" {
			m["sql"] = c.SQL
			params := make([]any, len(c.Params))
			copy(params, c.Params)
			m["params"] = params
		}
		if c.Records != nil {
			records := make([]any, len(c.Records))
			for j, id := range c.Records {
				records[j] = id
			}
			m["records"] = records
		}
		cases[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"cases":         cases,
	}
}

// RunWithGolden executes a scenario and compares its outcomes against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Cases: result.Cases}
	data, err := value.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
