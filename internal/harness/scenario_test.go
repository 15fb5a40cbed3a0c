package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content next to an empty schema file and returns
// the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(`schema: user: {}`), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: ok
description: "valid scenario"
schemas: [schema.cue]
cases:
  - name: one
    schema: user
    input: { name: Ada }
    expect:
      condition: 'and(eq(name, "Ada"))'
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schema.cue"), s.Schemas[0], "paths resolve against the scenario file")
	require.Len(t, s.Cases, 1)
	assert.Equal(t, map[string]any{"name": "Ada"}, s.Cases[0].Input)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\ncase: []\n",
			wantErr: "field case not found",
		},
		{
			name:    "missing description",
			content: "name: x\nschemas: [schema.cue]\ncases: [{name: a, schema: user}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing schema file",
			content: "name: x\ndescription: d\nschemas: [nope.cue]\ncases: [{name: a, schema: user}]\n",
			wantErr: "schema file not found",
		},
		{
			name:    "no cases",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\ncases: []\n",
			wantErr: "cases list is required",
		},
		{
			name:    "duplicate case",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\ncases: [{name: a, schema: user}, {name: a, schema: user}]\n",
			wantErr: "duplicate case name",
		},
		{
			name:    "query and input",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\ncases: [{name: a, schema: user, query: 'filter[a]=1', input: {a: 1}}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "error with condition",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\ncases: [{name: a, schema: user, expect: {error: KEY_INVALID, condition: 'and()'}}]\n",
			wantErr: "error excludes condition",
		},
		{
			name:    "setup without records",
			content: "name: x\ndescription: d\nschemas: [schema.cue]\nsetup: [{table: user}]\ncases: [{name: a, schema: user}]\n",
			wantErr: "records are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
