package harness

import (
	"fmt"
	"slices"
	"strings"
)

// ExpectationError is returned when an expectation fails.
// It includes the case outcome to help debug the failure.
type ExpectationError struct {
	Kind     string      // Expectation kind for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Outcome  CaseOutcome // Full outcome for debugging context
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Kind)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Outcome.Condition != "" {
		fmt.Fprintf(&buf, "\nCondition: %s\n", e.Outcome.Condition)
	}
	if len(e.Outcome.Skipped) > 0 {
		fmt.Fprintf(&buf, "Skipped: %s\n", strings.Join(e.Outcome.Skipped, ", "))
	}
	return buf.String()
}

// CheckExpectations evaluates every expectation set on c against outcome.
// Returns a list of error messages for failed expectations.
func CheckExpectations(c Case, outcome CaseOutcome) []string {
	var errs []string
	for _, check := range []func(Expect, CaseOutcome) error{
		checkError,
		checkCondition,
		checkSQL,
		checkSkipped,
		checkRecords,
	} {
		if err := check(c.Expect, outcome); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// checkError requires the strict error code when one is expected and
// forbids any error otherwise.
func checkError(expect Expect, outcome CaseOutcome) error {
	if expect.Error == outcome.Error {
		return nil
	}
	want := expect.Error
	if want == "" {
		want = "no error"
	}
	got := outcome.Error
	if got == "" {
		got = "no error"
	}
	return &ExpectationError{Kind: "error", Expected: want, Actual: got, Outcome: outcome}
}

func checkCondition(expect Expect, outcome CaseOutcome) error {
	if expect.Condition == "" || expect.Condition == outcome.Condition {
		return nil
	}
	return &ExpectationError{
		Kind:     "condition",
		Expected: expect.Condition,
		Actual:   outcome.Condition,
		Outcome:  outcome,
	}
}

func checkSQL(expect Expect, outcome CaseOutcome) error {
	if expect.SQL == "" || expect.SQL == outcome.SQL {
		return nil
	}
	return &ExpectationError{Kind: "sql", Expected: expect.SQL, Actual: outcome.SQL, Outcome: outcome}
}

// checkSkipped compares skipped codes in order. An unset expectation
// still requires nothing to be skipped, unless the case expects an error.
func checkSkipped(expect Expect, outcome CaseOutcome) error {
	if expect.Error != "" {
		return nil
	}
	want := expect.Skipped
	if want == nil {
		want = []string{}
	}
	if slices.Equal(want, outcome.Skipped) {
		return nil
	}
	return &ExpectationError{
		Kind:     "skipped",
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", outcome.Skipped),
		Outcome:  outcome,
	}
}

func checkRecords(expect Expect, outcome CaseOutcome) error {
	switch {
	case expect.NoRecords:
		if outcome.Records == nil || len(outcome.Records) > 0 {
			return &ExpectationError{Kind: "records", Expected: "[]", Actual: formatIDs(outcome.Records), Outcome: outcome}
		}
	case len(expect.Records) > 0:
		if !slices.Equal(expect.Records, outcome.Records) {
			return &ExpectationError{
				Kind:     "records",
				Expected: formatIDs(expect.Records),
				Actual:   formatIDs(outcome.Records),
				Outcome:  outcome,
			}
		}
	}
	return nil
}

func formatIDs(ids []int64) string {
	if ids == nil {
		return "no table"
	}
	return fmt.Sprintf("%v", ids)
}
