package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a filter conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schemas lists paths to CUE schema files to compile.
	// Paths are relative to the scenario file location.
	Schemas []string `yaml:"schemas"`

	// Setup seeds SQLite tables before the cases run.
	Setup []TableSetup `yaml:"setup,omitempty"`

	// Cases are the queries to run, in order.
	Cases []Case `yaml:"cases"`

	// MaxDepth overrides the parser's relation depth limit when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`
}

// TableSetup seeds one table. Every record needs an id.
type TableSetup struct {
	Table   string           `yaml:"table"`
	Records []map[string]any `yaml:"records"`
}

// Case is a single filter query with its expected outcome.
type Case struct {
	// Name identifies the case within its scenario.
	Name string `yaml:"name"`

	// Schema is the registry name the query is parsed against.
	Schema string `yaml:"schema"`

	// Query is a raw URL query string ("filter[name]=~ada&include=profile").
	Query string `yaml:"query,omitempty"`

	// Input is the filter object, used when Query is empty.
	Input map[string]any `yaml:"input,omitempty"`

	// Relations are the accepted relation paths for Input.
	Relations []string `yaml:"relations,omitempty"`

	// Table is the table records are read from; defaults to Schema.
	Table string `yaml:"table,omitempty"`

	// Expect specifies the expected outcome. Only fields that are set
	// are checked.
	Expect Expect `yaml:"expect"`
}

// Expect lists the checks for a case.
type Expect struct {
	Condition string   `yaml:"condition,omitempty"`
	SQL       string   `yaml:"sql,omitempty"`
	Skipped   []string `yaml:"skipped,omitempty"`
	Error     string   `yaml:"error,omitempty"`
	Records   []int64  `yaml:"records,omitempty"`

	// NoRecords asserts an empty result (records: [] cannot be told apart
	// from an absent key).
	NoRecords bool `yaml:"no_records,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Schema paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "case:" vs "cases:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve schema paths relative to the scenario BEFORE validation
	base := filepath.Dir(path)
	for i, schemaPath := range scenario.Schemas {
		if !filepath.IsAbs(schemaPath) {
			scenario.Schemas[i] = filepath.Join(base, schemaPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	var scenarios []*Scenario
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schemas) == 0 {
		return fmt.Errorf("schemas list is required and must be non-empty")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for _, schemaPath := range s.Schemas {
		if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", schemaPath)
		}
	}

	for i, setup := range s.Setup {
		if setup.Table == "" {
			return fmt.Errorf("setup[%d]: table is required", i)
		}
		if len(setup.Records) == 0 {
			return fmt.Errorf("setup[%d]: records are required", i)
		}
	}

	names := make(map[string]bool)
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		names[c.Name] = true

		if c.Schema == "" {
			return fmt.Errorf("cases[%d]: schema is required", i)
		}
		if c.Query != "" && c.Input != nil {
			return fmt.Errorf("cases[%d]: query and input are mutually exclusive", i)
		}
		if c.Query != "" && len(c.Relations) > 0 {
			return fmt.Errorf("cases[%d]: relations come from the include parameter when query is set", i)
		}
		if c.Expect.Error != "" && (c.Expect.Condition != "" || len(c.Expect.Records) > 0) {
			return fmt.Errorf("cases[%d].expect: error excludes condition and records", i)
		}
		if len(c.Expect.Records) > 0 && c.Expect.NoRecords {
			return fmt.Errorf("cases[%d].expect: records and no_records are mutually exclusive", i)
		}
	}
	return nil
}
