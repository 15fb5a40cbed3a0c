package harness

// CaseOutcome is what running one case produced.
type CaseOutcome struct {
	Name      string   `json:"name"`
	Condition string   `json:"condition,omitempty"`
	SQL       string   `json:"sql,omitempty"`
	Params    []any    `json:"params,omitempty"`
	Skipped   []string `json:"skipped"`
	Error     string   `json:"error,omitempty"`

	// Records are the selected ids; nil when no table was seeded.
	Records []int64 `json:"records,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation held.
	Pass bool `json:"pass"`

	// Cases holds one outcome per case, in scenario order.
	Cases []CaseOutcome `json:"cases"`

	// Warnings are schema-level notices such as relation cycles.
	Warnings []string `json:"warnings,omitempty"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
