package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

const (
	negationPrefix = "!"
	likeMarker     = "~"
)

// orderingPrefixes are tested longest first so "<" never swallows "<=".
var orderingPrefixes = []struct {
	prefix string
	op     condition.Operator
}{
	{"<=", condition.LessThanEqual},
	{"<", condition.LessThan},
	{">=", condition.GreaterThanEqual},
	{">", condition.GreaterThan},
}

var numberPattern = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)

// ParseValue determines the comparison operator of a raw operand and
// coerces the residual text into a typed value.
//
// Textual operands follow this grammar, applied in order:
//
//	!x          negation of eq/like/in (one leading "!" is stripped)
//	~x, x~, ~x~ like: anchored case-insensitive pattern (regex operator)
//	<=x <x >=x >x ordering operators
//	a,b,c       comma list (in / nin); "\," escapes a literal comma
//	x           equality; "true"/"false"/"null"/numbers are coerced
//
// Non-string scalars compare for equality; arrays become an "in" list.
// Empty results are rejected with a VALUE_INVALID error; operand types
// without a Value representation fail with VALUE_NORMALIZATION.
func ParseValue(raw any) (condition.Operator, value.Value, error) {
	switch v := raw.(type) {
	case string:
		return parseText(v)
	case value.String:
		return parseText(string(v))
	}

	val, err := value.FromAny(raw)
	if err != nil {
		return "", nil, newValueNormalizationError(err)
	}

	if arr, ok := val.(value.Array); ok {
		items, err := coerceList(arr)
		if err != nil {
			return "", nil, err
		}
		if len(items) == 0 {
			return "", nil, newValueInvalidError("list operand is empty")
		}
		return condition.In, items, nil
	}
	return condition.Equal, val, nil
}

func parseText(s string) (condition.Operator, value.Value, error) {
	negated := false
	if rest, ok := strings.CutPrefix(s, negationPrefix); ok {
		negated = true
		// Only one negation is stripped; "!!x" compares against "!x".
		s = rest
	}

	if pattern, ok, err := likePattern(s, negated); ok || err != nil {
		if err != nil {
			return "", nil, err
		}
		return condition.Regex, value.String(pattern), nil
	}

	for _, p := range orderingPrefixes {
		rest, ok := strings.CutPrefix(s, p.prefix)
		if !ok {
			continue
		}
		// Ordering operands are never split: "<1,2" compares against "1,2".
		operand := coerceScalar(rest)
		if operand == value.String("") {
			return "", nil, newValueInvalidError(fmt.Sprintf("operator %s has no operand", p.op))
		}
		return p.op, operand, nil
	}

	op := condition.Equal
	operand := coerce(s)
	if arr, ok := operand.(value.Array); ok {
		if len(arr) == 0 {
			return "", nil, newValueInvalidError("list operand is empty")
		}
		op = condition.In
	} else if operand == value.String("") {
		return "", nil, newValueInvalidError("operand is empty")
	}

	if negated {
		op = op.Negate()
	}
	return op, operand, nil
}

// likePattern detects "~" markers and builds the anchored pattern.
// ok is false when s is not a like expression.
func likePattern(s string, negated bool) (pattern string, ok bool, err error) {
	start := strings.HasPrefix(s, likeMarker)
	body := strings.TrimPrefix(s, likeMarker)
	end := strings.HasSuffix(body, likeMarker) && !strings.HasSuffix(body, `\`+likeMarker)
	if end {
		body = strings.TrimSuffix(body, likeMarker)
	}
	if !start && !end {
		return "", false, nil
	}
	if body == "" {
		return "", true, newValueInvalidError("like operand is empty")
	}

	quoted := regexp.QuoteMeta(body)
	switch {
	case start && end && negated:
		return "^(?!.*" + quoted + ").*", true, nil
	case start && end:
		return quoted, true, nil
	case start && negated:
		return "^(?!" + quoted + ").+", true, nil
	case start:
		return "^" + quoted, true, nil
	case negated:
		return "^(?!.*" + quoted + "$).*", true, nil
	default:
		return quoted + "$", true, nil
	}
}

// coerce converts text into a typed operand, splitting on unescaped commas.
func coerce(s string) value.Value {
	parts, split := splitUnescaped(s)
	if !split {
		return coerceScalar(s)
	}

	items := make(value.Array, 0, len(parts))
	for _, part := range parts {
		if v := coerceScalar(part); value.Truthy(v) {
			items = append(items, v)
		}
	}
	return items
}

// coerceScalar converts a single textual operand without list splitting.
// The empty string is terminal and returned unchanged.
func coerceScalar(s string) value.Value {
	if s == "" {
		return value.String("")
	}

	trimmed := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(trimmed, "true"):
		return value.Bool(true)
	case strings.EqualFold(trimmed, "false"):
		return value.Bool(false)
	case strings.EqualFold(trimmed, "null"):
		return value.Null{}
	}

	if numberPattern.MatchString(trimmed) {
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return value.Int(i)
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if v, err := value.Number(f); err == nil {
				return v
			}
		}
	}

	return value.String(strings.ReplaceAll(trimmed, `\,`, ","))
}

// coerceList normalizes an array operand element by element: strings are
// coerced as scalars, nested arrays are rejected, and falsy elements other
// than 0 and null are dropped.
func coerceList(arr value.Array) (value.Array, error) {
	items := make(value.Array, 0, len(arr))
	for i, elem := range arr {
		switch v := elem.(type) {
		case value.Array:
			return nil, newValueNormalizationError(fmt.Errorf("array[%d]: nested lists are not supported", i))
		case value.String:
			elem = coerceScalar(string(v))
		}
		if value.Truthy(elem) {
			items = append(items, elem)
		}
	}
	return items, nil
}

// splitUnescaped splits s on commas not preceded by a backslash.
// split is false when s has no such comma.
func splitUnescaped(s string) (parts []string, split bool) {
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ',' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 1
		split = true
	}
	if !split {
		return nil, false
	}
	return append(parts, s[start:]), true
}
