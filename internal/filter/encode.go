package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

// maxBranches is the number of OR siblings one digit can address.
const maxBranches = 10

// ErrUnencodable is returned for trees the flat representation cannot
// express.
var ErrUnencodable = errors.New("condition cannot be encoded")

// Flatten assigns every field predicate of c to a group, producing the
// bucket map MergeGroups inverts.
//
// AND children share their parent's group. OR children each get the
// parent group plus one sibling digit. An AND holding more than one OR is
// distributed over the first OR so every group has at most one set of
// branches; an OR with more than ten children nests its tail under the
// last digit.
func Flatten(c condition.Condition) (Buckets, error) {
	b := Buckets{}
	if err := flattenInto(b, "", c); err != nil {
		return nil, err
	}
	return b, nil
}

func flattenInto(b Buckets, group string, c condition.Condition) error {
	switch n := c.(type) {
	case condition.Field:
		b.Add(group, n)
		return nil
	case *condition.Field:
		b.Add(group, *n)
		return nil
	case condition.Compound:
		return flattenCompound(b, group, n)
	case *condition.Compound:
		return flattenCompound(b, group, *n)
	default:
		return fmt.Errorf("%w: unknown condition type %T", ErrUnencodable, c)
	}
}

func flattenCompound(b Buckets, group string, c condition.Compound) error {
	switch c.Operator {
	case condition.And:
		return flattenAnd(b, group, c.Children)
	case condition.Or:
		return flattenOr(b, group, c.Children)
	default:
		return fmt.Errorf("%w: unknown logic %q", ErrUnencodable, c.Operator)
	}
}

func flattenAnd(b Buckets, group string, children []condition.Condition) error {
	var fields []condition.Condition
	var ors []condition.Compound

	for _, child := range lift(condition.And, children) {
		or, ok := asCompound(child)
		if !ok || or.Operator != condition.Or {
			fields = append(fields, child)
			continue
		}
		branches := lift(condition.Or, or.Children)
		if len(branches) == 0 {
			return fmt.Errorf("%w: empty OR is always false", ErrUnencodable)
		}
		ors = append(ors, condition.NewOr(branches...))
	}

	for _, f := range fields {
		if err := flattenInto(b, group, f); err != nil {
			return err
		}
	}

	switch len(ors) {
	case 0:
		return nil
	case 1:
		return flattenOr(b, group, ors[0].Children)
	}

	// (a | b) & rest  ==  (a & rest) | (b & rest)
	rest := make([]condition.Condition, 0, len(ors)-1)
	for _, or := range ors[1:] {
		rest = append(rest, or)
	}
	distributed := make([]condition.Condition, 0, len(ors[0].Children))
	for _, branch := range ors[0].Children {
		conj := append([]condition.Condition{branch}, rest...)
		distributed = append(distributed, condition.NewAnd(conj...))
	}
	return flattenOr(b, group, distributed)
}

func flattenOr(b Buckets, group string, children []condition.Condition) error {
	branches := lift(condition.Or, children)
	if len(branches) == 0 {
		return fmt.Errorf("%w: empty OR is always false", ErrUnencodable)
	}

	if len(branches) > maxBranches {
		tail := condition.NewOr(branches[maxBranches-1:]...)
		branches = append(branches[:maxBranches-1:maxBranches-1], tail)
	}

	for i, branch := range branches {
		before := b.Len()
		if err := flattenInto(b, fmt.Sprintf("%s%d", group, i), branch); err != nil {
			return err
		}
		// A branch without fields is always true and would vanish on decode.
		if b.Len() == before {
			return fmt.Errorf("%w: OR branch without fields is always true", ErrUnencodable)
		}
	}
	return nil
}

// lift inlines children that are compounds with the same logic. Empty
// ones vanish, which is correct since they are the identity of logic.
func lift(logic condition.Logic, children []condition.Condition) []condition.Condition {
	out := make([]condition.Condition, 0, len(children))
	for _, child := range children {
		c, ok := asCompound(child)
		if ok && c.Operator == logic {
			out = append(out, lift(logic, c.Children)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

// asCompound unwraps c if it is a Compound.
func asCompound(c condition.Condition) (condition.Compound, bool) {
	switch n := c.(type) {
	case condition.Compound:
		return n, true
	case *condition.Compound:
		return *n, true
	default:
		return condition.Compound{}, false
	}
}

// Encode renders c as flat filter input: composite keys mapped to textual
// operands that parse back to the same predicates.
func Encode(c condition.Condition) (map[string]string, error) {
	buckets, err := Flatten(c)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, buckets.Len())
	for _, group := range sortedKeys(buckets) {
		for _, f := range buckets[group] {
			key := Key{Group: group, Name: f.Field}
			if i := strings.LastIndex(f.Field, "."); i >= 0 {
				key.Path = f.Field[:i]
				key.Name = f.Field[i+1:]
			}
			raw := BuildKey(key)
			if _, dup := out[raw]; dup {
				return nil, fmt.Errorf("%w: %s appears twice in group %q", ErrUnencodable, f.Field, group)
			}

			text, err := FormatValue(f.Operator, f.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", raw, err)
			}
			out[raw] = text
		}
	}
	return out, nil
}

// FormatValue renders an operator and operand in the textual value
// grammar. It fails when the rendering would not parse back to the same
// operator and operand.
func FormatValue(op condition.Operator, v value.Value) (string, error) {
	var text string
	switch op {
	case condition.Equal:
		text = formatScalar(v)
	case condition.NotEqual:
		text = negationPrefix + formatScalar(v)
	case condition.In:
		text = formatList(v)
	case condition.NotIn:
		text = negationPrefix + formatList(v)
	case condition.LessThan:
		text = "<" + formatScalar(v)
	case condition.LessThanEqual:
		text = "<=" + formatScalar(v)
	case condition.GreaterThan:
		text = ">" + formatScalar(v)
	case condition.GreaterThanEqual:
		text = ">=" + formatScalar(v)
	case condition.Regex:
		s, ok := v.(value.String)
		if !ok {
			return "", fmt.Errorf("%w: regex operand must be a string", ErrUnencodable)
		}
		text = formatLike(string(s))
	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrUnencodable, op)
	}

	gotOp, got, err := ParseValue(text)
	if err != nil || gotOp != op || !value.Equal(got, v) {
		return "", fmt.Errorf("%w: %s %s does not survive rendering as %q", ErrUnencodable, op, value.Text(v), text)
	}
	return text, nil
}

func formatScalar(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return strings.ReplaceAll(string(s), ",", `\,`)
	}
	return value.Text(v)
}

func formatList(v value.Value) string {
	arr, ok := v.(value.Array)
	if !ok {
		return formatScalar(v)
	}
	parts := make([]string, len(arr))
	for i, elem := range arr {
		parts[i] = formatScalar(elem)
	}
	text := strings.Join(parts, ",")
	if len(arr) == 1 {
		// A trailing comma keeps a single element a list.
		text += ","
	}
	return text
}

// formatLike maps an anchored pattern back to its "~" form. Patterns that
// did not come from the like grammar fail the round-trip check in
// FormatValue.
func formatLike(pattern string) string {
	if inner, ok := cutAffixes(pattern, "^(?!.*", ").*"); ok {
		if body, end := cutUnescapedSuffix(inner, "$"); end {
			return negationPrefix + unquoteMeta(body) + likeMarker
		}
		return negationPrefix + likeMarker + unquoteMeta(inner) + likeMarker
	}
	if inner, ok := cutAffixes(pattern, "^(?!", ").+"); ok {
		return negationPrefix + likeMarker + unquoteMeta(inner)
	}
	if body, ok := strings.CutPrefix(pattern, "^"); ok {
		return likeMarker + unquoteMeta(body)
	}
	if body, ok := cutUnescapedSuffix(pattern, "$"); ok {
		return unquoteMeta(body) + likeMarker
	}
	return likeMarker + unquoteMeta(pattern) + likeMarker
}

func cutAffixes(s, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) || len(s) < len(prefix)+len(suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}

func cutUnescapedSuffix(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, suffix) || strings.HasSuffix(s, `\`+suffix) {
		return s, false
	}
	return strings.TrimSuffix(s, suffix), true
}

// unquoteMeta is the inverse of regexp.QuoteMeta.
func unquoteMeta(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
