package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qfilter/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Cases    int      `json:"cases"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r TestResult) String() string {
	if r.Total == 0 {
		return "No scenarios found."
	}
	var sb strings.Builder
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(&sb, "✓ %s (%d cases)\n", s.Name, s.Cases)
		} else {
			fmt.Fprintf(&sb, "✗ %s\n", s.Name)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(&sb, "  %s\n", e)
		}
		for _, w := range s.Warnings {
			fmt.Fprintf(&sb, "  ! %s\n", w)
		}
	}
	fmt.Fprintf(&sb, "\n%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return sb.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run filter scenarios",
		Long: `Run YAML filter scenarios. Each case is parsed, compiled to SQL, and
when its table is seeded, run against both SQLite and the in-memory
evaluator, which must agree.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  qfilter test ./scenarios
  qfilter test ./scenarios --filter "rel*"
  qfilter test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, "E005", fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return formatter.Fail(ExitCommandError, "E001", fmt.Sprintf("invalid filter pattern: %v", err), nil)
		}
	}

	scenarios, err := harness.LoadScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E001", fmt.Sprintf("failed to load scenarios: %v", err), nil)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, scenario := range scenarios {
		if opts.Filter != "" {
			if matched, _ := filepath.Match(opts.Filter, scenario.Name); !matched {
				continue
			}
		}
		formatter.VerboseLog("Running scenario %s", scenario.Name)

		sr := runScenario(scenario)
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// runScenario executes one scenario. Execution errors count as failures.
func runScenario(scenario *harness.Scenario) ScenarioResult {
	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Pass:   false,
			Cases:  len(scenario.Cases),
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}
	return ScenarioResult{
		Name:     scenario.Name,
		Pass:     result.Pass,
		Cases:    len(result.Cases),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
}
