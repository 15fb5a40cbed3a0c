// Package eval interprets condition trees against in-memory records.
//
// A record is a decoded JSON or YAML document. Field paths are resolved
// segment by segment; when a segment holds a list of objects (a to-many
// relation) or scalars, the predicate matches if any element matches.
// Missing fields compare as null.
package eval

import (
	"fmt"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

// Match reports whether rec satisfies c.
func Match(c condition.Condition, rec map[string]any) (bool, error) {
	switch node := c.(type) {
	case condition.Field:
		return matchField(node, rec)
	case *condition.Field:
		return matchField(*node, rec)
	case condition.Compound:
		return matchCompound(node, rec)
	case *condition.Compound:
		return matchCompound(*node, rec)
	case nil:
		return true, nil
	default:
		return false, fmt.Errorf("unsupported condition type: %T", c)
	}
}

// Filter returns the records that satisfy c, preserving order.
func Filter(c condition.Condition, records []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(records))
	for i, rec := range records {
		ok, err := Match(c, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func matchCompound(c condition.Compound, rec map[string]any) (bool, error) {
	switch c.Operator {
	case condition.And:
		for _, child := range c.Children {
			ok, err := Match(child, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case condition.Or:
		for _, child := range c.Children {
			ok, err := Match(child, rec)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown logic %q", c.Operator)
	}
}

func matchField(f condition.Field, rec map[string]any) (bool, error) {
	candidates := Lookup(rec, f.Field)
	if len(candidates) == 0 {
		candidates = []any{nil}
	}

	// Negative operators hold only if no candidate matches the positive form.
	positive, negate := f.Operator, false
	switch f.Operator {
	case condition.NotEqual:
		positive, negate = condition.Equal, true
	case condition.NotIn:
		positive, negate = condition.In, true
	}

	for _, raw := range candidates {
		v, err := value.FromAny(raw)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", f.Field, err)
		}
		ok, err := compare(positive, v, f.Value)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", f.Field, err)
		}
		if ok {
			return !negate, nil
		}
	}
	return negate, nil
}

func compare(op condition.Operator, actual, operand value.Value) (bool, error) {
	switch op {
	case condition.Equal:
		return equal(actual, operand), nil
	case condition.In:
		list, ok := operand.(value.Array)
		if !ok {
			return false, fmt.Errorf("%s operand must be a list, got %T", op, operand)
		}
		for _, elem := range list {
			if equal(actual, elem) {
				return true, nil
			}
		}
		return false, nil
	case condition.LessThan, condition.LessThanEqual, condition.GreaterThan, condition.GreaterThanEqual:
		cmp, ok := order(actual, operand)
		if !ok {
			return false, nil
		}
		switch op {
		case condition.LessThan:
			return cmp < 0, nil
		case condition.LessThanEqual:
			return cmp <= 0, nil
		case condition.GreaterThan:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case condition.Regex:
		pattern, ok := operand.(value.String)
		if !ok {
			return false, fmt.Errorf("regex operand must be a string, got %T", operand)
		}
		switch actual.(type) {
		case value.Null, value.Array:
			return false, nil
		}
		return MatchRegex(string(pattern), value.Text(actual))
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

// equal compares scalars, treating Int and Float numerically.
func equal(a, b value.Value) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
		return false
	}
	return value.Equal(a, b)
}

// order returns the sign of a-b for two numbers or two strings.
func order(a, b value.Value) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(value.String)
	bs, bok := b.(value.String)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(string(as), string(bs)), true
}

func number(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// Lookup resolves a dotted path in rec. A flat key equal to the whole
// remaining path takes precedence over descending into nested objects.
// Lists fan out, so the result may hold several values.
func Lookup(rec map[string]any, path string) []any {
	if v, ok := rec[path]; ok {
		if list, ok := v.([]any); ok {
			return list
		}
		return []any{v}
	}

	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return nil
	}
	child, ok := rec[head]
	if !ok {
		return nil
	}

	var out []any
	switch c := child.(type) {
	case map[string]any:
		out = append(out, Lookup(c, rest)...)
	case []any:
		for _, elem := range c {
			if m, ok := elem.(map[string]any); ok {
				out = append(out, Lookup(m, rest)...)
			}
		}
	}
	return out
}
