// Package harness runs filter scenarios against compiled schemas.
//
// A scenario names the CUE schema files it needs, optionally seeds SQLite
// tables, and lists query cases with their expected outcome. Each case is
// parsed, compiled to SQL and (when tables are seeded) executed, so one
// scenario exercises the grammar, the group tree and both interpreters.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schemas:
//	  - schemas/user.cue
//	setup:
//	  - table: user
//	    records:
//	      - { id: 1, name: Ada }
//	cases:
//	  - name: or_groups
//	    schema: user
//	    query: "filter[0:id]=1&filter[1:name]=~ada"
//	    expect:
//	      condition: 'or(eq(id, 1), regex(name, "^ada"))'
//	      records: [1]
//
// A case supplies its input either as a raw query string (decoded like an
// HTTP request, including the include parameter) or as a YAML object under
// input, with relations listed separately.
//
// # Expectations
//
//   - condition: the parsed tree in condition.Format notation
//   - sql: the full compiled SELECT
//   - skipped: error codes dropped in permissive mode, in order
//   - error: the error code a strict schema raises
//   - records: ids of the rows the filter selects, checked against both
//     SQLite and in-memory evaluation
//
// # Golden Files
//
// RunWithGolden snapshots every case outcome as canonical JSON under
// testdata/golden/{scenario.Name}.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
