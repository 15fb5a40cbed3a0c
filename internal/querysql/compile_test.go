package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

func field(op condition.Operator, path string, v value.Value) condition.Field {
	return condition.NewField(op, path, v)
}

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(Select{
		From:    "users",
		Columns: []string{"id", "name"},
		Filter:  field(condition.Equal, "name", value.String("ada")),
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "name" = ? ORDER BY "id" ASC COLLATE BINARY`, sql)
	// Verify parameterized query (no interpolation)
	assert.NotContains(t, sql, "ada")
	assert.Equal(t, []any{"ada"}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name  string
		query Select
	}{
		{"no filter", Select{From: "users"}},
		{"with filter", Select{From: "users", Filter: condition.NewAnd()}},
		{"custom order", Select{From: "users", OrderBy: "created_at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _, err := compiler.Compile(tt.query)
			require.NoError(t, err)
			assert.Contains(t, sql, "ORDER BY")
			assert.Contains(t, sql, "COLLATE BINARY")
		})
	}
}

func TestCompile_RejectsUnsafeIdentifiers(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.Compile(Select{From: `users"; DROP TABLE users; --`})
	assert.ErrorContains(t, err, "invalid identifier")

	_, _, err = compiler.Compile(Select{From: "users", Filter: field(condition.Equal, "na me", value.Int(1))})
	assert.ErrorContains(t, err, "invalid identifier")

	_, _, err = compiler.Compile(Select{From: "users", Columns: []string{"*"}})
	assert.ErrorContains(t, err, "invalid identifier")
}

func TestWhere_Fields(t *testing.T) {
	tests := []struct {
		name       string
		cond       condition.Condition
		wantSQL    string
		wantParams []any
	}{
		{"eq", field(condition.Equal, "id", value.Int(1)), `"id" = ?`, []any{int64(1)}},
		{"eq null", field(condition.Equal, "email", value.Null{}), `"email" IS NULL`, nil},
		{"ne", field(condition.NotEqual, "name", value.String("x")), `"name" IS NOT ?`, []any{"x"}},
		{"ne null", field(condition.NotEqual, "email", value.Null{}), `"email" IS NOT NULL`, nil},
		{"eq bool", field(condition.Equal, "active", value.Bool(true)), `"active" = ?`, []any{true}},
		{"lt", field(condition.LessThan, "age", value.Int(18)), `"age" < ?`, []any{int64(18)}},
		{"lte", field(condition.LessThanEqual, "age", value.Float(1.5)), `"age" <= ?`, []any{1.5}},
		{"gt", field(condition.GreaterThan, "age", value.Int(18)), `"age" > ?`, []any{int64(18)}},
		{"gte", field(condition.GreaterThanEqual, "name", value.String("m")), `"name" >= ?`, []any{"m"}},
		{"regex", field(condition.Regex, "name", value.String("^ada")), `"name" REGEXP ?`, []any{"^ada"}},
		{"in", field(condition.In, "id", value.Array{value.Int(1), value.Int(2)}), `"id" IN (?, ?)`, []any{int64(1), int64(2)}},
		{"in with null", field(condition.In, "id", value.Array{value.Null{}, value.Int(0)}), `("id" IN (?) OR "id" IS NULL)`, []any{int64(0)}},
		{"in only null", field(condition.In, "id", value.Array{value.Null{}}), `"id" IS NULL`, nil},
		{"in empty", field(condition.In, "id", value.Array{}), `1 = 0`, nil},
		{"nin", field(condition.NotIn, "id", value.Array{value.Int(1)}), `("id" IS NULL OR "id" NOT IN (?))`, []any{int64(1)}},
		{"nin with null", field(condition.NotIn, "id", value.Array{value.Int(1), value.Null{}}), `("id" IS NOT NULL AND "id" NOT IN (?))`, []any{int64(1)}},
		{"nin empty", field(condition.NotIn, "id", value.Array{}), `1 = 1`, nil},
		{"relation path", field(condition.Equal, "profile.address.zip", value.String("1234")), `"profile.address"."zip" = ?`, []any{"1234"}},
		{"pointer", &condition.Field{Operator: condition.Equal, Field: "id", Value: value.Int(1)}, `"id" = ?`, []any{int64(1)}},
	}

	compiler := NewSQLCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compiler.Where(tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestWhere_Compounds(t *testing.T) {
	compiler := NewSQLCompiler()

	tree := condition.NewOr(
		condition.NewAnd(
			field(condition.Equal, "id", value.Int(1)),
			condition.NewOr(field(condition.Equal, "name", value.String("foo")), field(condition.Equal, "name", value.String("bar"))),
		),
		field(condition.Equal, "id", value.Int(15)),
	)

	sql, params, err := compiler.Where(tree)
	require.NoError(t, err)
	assert.Equal(t, `("id" = ? AND ("name" = ? OR "name" = ?)) OR "id" = ?`, sql)
	assert.Equal(t, []any{int64(1), "foo", "bar", int64(15)}, params)

	sql, _, err = compiler.Where(condition.NewAnd(condition.NewOr(field(condition.Equal, "id", value.Int(1)))))
	require.NoError(t, err)
	assert.Equal(t, `"id" = ?`, sql, "single children need no parentheses")

	sql, _, err = compiler.Where(condition.NewAnd())
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)

	sql, _, err = compiler.Where(condition.NewOr())
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)

	sql, _, err = compiler.Where(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
}

func TestWhere_ColumnOverride(t *testing.T) {
	compiler := NewSQLCompiler()
	compiler.Columns["profile.age"] = "p.age"

	sql, _, err := compiler.Where(field(condition.GreaterThan, "profile.age", value.Int(18)))
	require.NoError(t, err)
	assert.Equal(t, "p.age > ?", sql)
}

func TestWhere_Errors(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name    string
		cond    condition.Condition
		wantErr string
	}{
		{"eq with list", field(condition.Equal, "id", value.Array{value.Int(1)}), "list cannot be used"},
		{"in with scalar", field(condition.In, "id", value.Int(1)), "must be a list"},
		{"regex with number", field(condition.Regex, "id", value.Int(1)), "must be a string"},
		{"unknown operator", field("like", "id", value.Int(1)), "unsupported operator"},
		{"unknown logic", condition.Compound{Operator: "xor"}, "unknown logic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compiler.Where(tt.cond)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
