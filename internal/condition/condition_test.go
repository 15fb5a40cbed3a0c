package condition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qfilter/internal/value"
)

func TestOperator_Negate(t *testing.T) {
	assert.Equal(t, NotEqual, Equal.Negate())
	assert.Equal(t, Equal, NotEqual.Negate())
	assert.Equal(t, NotIn, In.Negate())
	assert.Equal(t, In, NotIn.Negate())

	// Ordering operators and regex are unaffected.
	assert.Equal(t, LessThan, LessThan.Negate())
	assert.Equal(t, GreaterThanEqual, GreaterThanEqual.Negate())
	assert.Equal(t, Regex, Regex.Negate())
}

func TestOperator_Valid(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operator("like").Valid())
	assert.False(t, Operator("").Valid())
}

func TestWrap(t *testing.T) {
	a := NewField(Equal, "id", value.Int(1))
	b := NewField(Equal, "id", value.Int(2))

	assert.Equal(t, a, Wrap(Or, []Condition{a}))
	assert.Equal(t, NewOr(a, b), Wrap(Or, []Condition{a, b}))
	assert.Equal(t, Compound{Operator: And, Children: []Condition{}}, Wrap(And, nil))
}

func TestNewAnd_EmptyIsNonNil(t *testing.T) {
	and := NewAnd()
	assert.NotNil(t, and.Children)
	assert.Empty(t, and.Children)
}

func TestMarshalCanonical_Tree(t *testing.T) {
	tree := NewOr(
		NewAnd(
			NewField(Equal, "id", value.Int(1)),
			NewField(In, "name", value.Array{value.String("foo"), value.Null{}}),
		),
		NewField(Regex, "email", value.String("^abc")),
	)

	data, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[{"children":[{"field":"id","operator":"eq","value":1},{"field":"name","operator":"in","value":["foo",null]}],"operator":"and"},{"field":"email","operator":"regex","value":"^abc"}],"operator":"or"}`,
		string(data))

	viaJSON, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(viaJSON))
}

func TestFromAny_RoundTrip(t *testing.T) {
	tree := NewAnd(
		NewField(LessThan, "age", value.Int(18)),
		NewOr(
			NewField(Equal, "profile.city", value.String("Berlin")),
			NewField(NotIn, "role", value.Array{value.String("admin"), value.Int(0)}),
		),
	)

	data, err := MarshalCanonical(tree)
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	decoded, err := FromAny(raw)
	require.NoError(t, err)
	assert.Equal(t, tree, decoded)
}

func TestFromAny_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"not an object", "eq", "must be an object"},
		{"unknown operator", map[string]any{"operator": "like", "field": "a"}, "unknown operator"},
		{"missing field", map[string]any{"operator": "eq", "value": 1}, "field is required"},
		{"bad children", map[string]any{"operator": "and", "children": "x"}, "children must be a list"},
		{"bad child", map[string]any{"operator": "or", "children": []any{1}}, "children[0]"},
		{"bad value", map[string]any{"operator": "eq", "field": "a", "value": map[string]any{}}, "eq a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormat(t *testing.T) {
	tree := NewOr(
		NewAnd(NewField(Equal, "id", value.Int(1)), NewOr(
			NewField(Equal, "name", value.String("foo")),
			NewField(Equal, "name", value.String("bar")),
		)),
		NewField(Equal, "id", value.Int(15)),
	)
	assert.Equal(t, `or(and(eq(id, 1), or(eq(name, "foo"), eq(name, "bar"))), eq(id, 15))`, Format(tree))
	assert.Equal(t, "and()", Format(NewAnd()))
}

func TestValidate_Valid(t *testing.T) {
	result := Validate(NewAnd(
		NewField(Equal, "id", value.Int(1)),
		NewField(In, "id", value.Array{value.Int(1), value.Int(2)}),
		NewField(Regex, "name", value.String("abc$")),
		&Field{Operator: GreaterThan, Field: "age", Value: value.Int(3)},
	))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidate_Warnings(t *testing.T) {
	result := Validate(NewOr(
		NewField(In, "id", value.Int(1)),
		NewField(Equal, "id", value.Array{value.Int(1)}),
		NewField(Regex, "name", value.Int(1)),
		NewField(Equal, "", value.Int(1)),
		NewField(Operator("like"), "x", value.String("y")),
		Field{Operator: Equal, Field: "nil"},
		Compound{Operator: Logic("xor")},
		nil,
	))
	assert.False(t, result.Valid)
	assert.Len(t, result.Warnings, 8)
	assert.Contains(t, result.Warnings[0], "$.or[0]")
	assert.Contains(t, result.Warnings[0], "requires a list")
}

func TestNormalize_ReorderAndCollapse(t *testing.T) {
	a := NewField(Equal, "a", value.Int(1))
	b := NewField(Equal, "b", value.Int(2))
	c := NewField(Equal, "c", value.Int(3))

	left := NewAnd(a, NewAnd(b, c))
	right := NewAnd(NewAnd(c), b, a)
	assert.True(t, Equivalent(left, right))

	assert.Equal(t, a, Normalize(NewOr(a)))
	assert.Equal(t, a, Normalize(&a))

	assert.False(t, Equivalent(NewAnd(a, b), NewOr(a, b)))
	assert.False(t, Equivalent(NewAnd(a, NewOr(b, c)), NewAnd(a, b, c)))
}
