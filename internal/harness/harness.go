package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"

	"github.com/roach88/qfilter/internal/compiler"
	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/eval"
	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/querysql"
	"github.com/roach88/qfilter/internal/querystring"
	"github.com/roach88/qfilter/internal/store"
)

// Harness is the scenario execution engine.
type Harness struct {
	parser *filter.Parser
	store  *store.Store
	tables map[string][]map[string]any
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Compile the scenario's CUE schemas into a registry
//  2. Seed setup tables
//  3. Parse, compile and execute each case
//  4. Check each case against its expectations
func Run(scenario *Scenario) (*Result, error) {
	loaded, errs := compiler.LoadFiles(scenario.Schemas, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schemas: %w", errors.Join(errs...))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := []filter.Option{filter.WithLogger(logger)}
	if scenario.MaxDepth > 0 {
		opts = append(opts, filter.WithMaxDepth(scenario.MaxDepth))
	}

	h := &Harness{
		parser: filter.NewParser(loaded.Registry, opts...),
		store:  st,
		tables: make(map[string][]map[string]any),
		logger: logger,
	}

	ctx := context.Background()
	for _, setup := range scenario.Setup {
		if err := st.Load(ctx, setup.Table, setup.Records); err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", setup.Table, err)
		}
		h.tables[setup.Table] = append(h.tables[setup.Table], setup.Records...)
	}

	result := NewResult()
	for _, w := range loaded.Warnings {
		result.Warnings = append(result.Warnings, w.Message)
	}

	for _, c := range scenario.Cases {
		outcome, err := h.runCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		result.Cases = append(result.Cases, outcome)
		for _, msg := range CheckExpectations(c, outcome) {
			result.AddError(fmt.Sprintf("%s: %s", c.Name, msg))
		}
	}
	return result, nil
}

// runCase parses one case and runs it through both interpreters.
// Parse errors from strict schemas are outcomes, not failures.
func (h *Harness) runCase(ctx context.Context, c Case) (CaseOutcome, error) {
	outcome := CaseOutcome{Name: c.Name, Skipped: []string{}}

	input, relations, err := caseInput(c)
	if err != nil {
		return outcome, err
	}

	res, err := h.parser.Parse(input, c.Schema, relations)
	if err != nil {
		var fe *filter.Error
		if !errors.As(err, &fe) {
			return outcome, err
		}
		outcome.Error = string(fe.Code)
		return outcome, nil
	}

	outcome.Condition = condition.Format(res.Condition)
	for _, skipped := range res.Skipped {
		outcome.Skipped = append(outcome.Skipped, string(skipped.Code))
	}

	table := c.Table
	if table == "" {
		table = c.Schema
	}

	sql, params, err := querysql.NewSQLCompiler().Compile(querysql.Select{From: table, Filter: res.Condition})
	if err != nil {
		return outcome, fmt.Errorf("compile sql: %w", err)
	}
	outcome.SQL = sql
	outcome.Params = params

	records, seeded := h.tables[table]
	if !seeded {
		return outcome, nil
	}

	rows, err := h.store.Find(ctx, table, res.Condition)
	if err != nil {
		return outcome, fmt.Errorf("query %s: %w", table, err)
	}
	outcome.Records = recordIDs(rows)

	matched, err := eval.Filter(res.Condition, records)
	if err != nil {
		return outcome, fmt.Errorf("evaluate: %w", err)
	}
	inMemory := recordIDs(matched)
	slices.Sort(inMemory)
	if !slices.Equal(inMemory, outcome.Records) {
		return outcome, fmt.Errorf("sqlite selected %v but evaluation selected %v", outcome.Records, inMemory)
	}
	return outcome, nil
}

// caseInput returns the filter object and relations of a case.
func caseInput(c Case) (any, []string, error) {
	if c.Query == "" {
		return c.Input, c.Relations, nil
	}
	values, err := url.ParseQuery(c.Query)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid query: %w", err)
	}
	return querystring.Decode(values), querystring.Relations(values), nil
}

// recordIDs extracts the integer ids of rows.
func recordIDs(rows []map[string]any) []int64 {
	ids := []int64{}
	for _, row := range rows {
		switch id := row["id"].(type) {
		case int64:
			ids = append(ids, id)
		case int:
			ids = append(ids, int64(id))
		}
	}
	return ids
}
