package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

func TestParseValue_Text(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOp condition.Operator
		want   value.Value
	}{
		{"integer", "1", condition.Equal, value.Int(1)},
		{"integral decimal", "1.0", condition.Equal, value.Int(1)},
		{"float", "1.5", condition.Equal, value.Float(1.5)},
		{"string", "abc", condition.Equal, value.String("abc")},
		{"trimmed string", " abc ", condition.Equal, value.String("abc")},
		{"boolean", "true", condition.Equal, value.Bool(true)},
		{"boolean case-insensitive", "FALSE", condition.Equal, value.Bool(false)},
		{"null", "null", condition.Equal, value.Null{}},
		{"not equal", "!abc", condition.NotEqual, value.String("abc")},
		{"not null", "!null", condition.NotEqual, value.Null{}},
		{"double negation keeps one bang", "!!foo", condition.NotEqual, value.String("!foo")},
		{"double negation on a number", "!!1", condition.NotEqual, value.String("!1")},
		{"less than", "<5", condition.LessThan, value.Int(5)},
		{"less than or equal", "<=5", condition.LessThanEqual, value.Int(5)},
		{"greater than", ">5", condition.GreaterThan, value.Int(5)},
		{"greater than or equal", ">=2.5", condition.GreaterThanEqual, value.Float(2.5)},
		{"ordering keeps commas", ">a,b", condition.GreaterThan, value.String("a,b")},
		{"ordering operand is not split", "<1,2", condition.LessThan, value.String("1,2")},
		{"negated ordering ignores negation", "!>5", condition.GreaterThan, value.Int(5)},
		{"in list", "a,b", condition.In, value.Array{value.String("a"), value.String("b")}},
		{"not in list", "!1,2", condition.NotIn, value.Array{value.Int(1), value.Int(2)}},
		{"in list keeps null and zero", "null,0,1,2,3", condition.In, value.Array{value.Null{}, value.Int(0), value.Int(1), value.Int(2), value.Int(3)}},
		{"in list drops empty and false", "a,,false,b", condition.In, value.Array{value.String("a"), value.String("b")}},
		{"trailing comma makes a list", "x,", condition.In, value.Array{value.String("x")}},
		{"escaped comma", `a\,b`, condition.Equal, value.String("a,b")},
		{"escaped comma in list", `a\,b,c`, condition.In, value.Array{value.String("a,b"), value.String("c")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, got, err := ParseValue(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, op)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue_Like(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"~abc", "^abc"},
		{"abc~", "abc$"},
		{"~abc~", "abc"},
		{"!~abc", "^(?!abc).+"},
		{"!abc~", "^(?!.*abc$).*"},
		{"!~abc~", "^(?!.*abc).*"},
		{"~a.b", `^a\.b`},
		{"~a,b~", "a,b"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			op, got, err := ParseValue(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, condition.Regex, op)
			assert.Equal(t, value.String(tt.want), got)
		})
	}
}

func TestParseValue_NonText(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		wantOp condition.Operator
		want   value.Value
	}{
		{"int", 5, condition.Equal, value.Int(5)},
		{"float", 2.5, condition.Equal, value.Float(2.5)},
		{"bool", true, condition.Equal, value.Bool(true)},
		{"nil", nil, condition.Equal, value.Null{}},
		{"string value", value.String("!x"), condition.NotEqual, value.String("x")},
		{"array coerces strings", []any{"1", "a", "", false, nil}, condition.In, value.Array{value.Int(1), value.String("a"), value.Null{}}},
		{"array elements are not split", []any{"a,b"}, condition.In, value.Array{value.String("a,b")}},
		{"array elements keep operators", []any{"<5"}, condition.In, value.Array{value.String("<5")}},
		{"string slice", []string{"x", "y"}, condition.In, value.Array{value.String("x"), value.String("y")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, got, err := ParseValue(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, op)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		code Code
	}{
		{"empty string", "", CodeValueInvalid},
		{"bare negation", "!", CodeValueInvalid},
		{"only commas", ",", CodeValueInvalid},
		{"empty like", "~", CodeValueInvalid},
		{"empty negated like", "!~~", CodeValueInvalid},
		{"operator without operand", "<", CodeValueInvalid},
		{"empty array", []any{}, CodeValueInvalid},
		{"array of falsy values", []any{"", false}, CodeValueInvalid},
		{"nested array", []any{[]any{1}}, CodeValueNormalization},
		{"bytes", []byte("blob"), CodeValueNormalization},
		{"object", map[string]any{"a": 1}, CodeValueNormalization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseValue(tt.raw)
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSplitUnescaped(t *testing.T) {
	parts, split := splitUnescaped(`a,b\,c,`)
	assert.True(t, split)
	assert.Equal(t, []string{"a", `b\,c`, ""}, parts)

	_, split = splitUnescaped(`a\,b`)
	assert.False(t, split)
}
