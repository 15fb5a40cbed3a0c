package condition

import (
	"fmt"
	"strings"

	"github.com/roach88/qfilter/internal/value"
)

// ToMap converts a condition tree into nested maps suitable for canonical
// JSON, YAML, or golden-file comparison.
//
//	Field    → {"operator": "eq", "field": "id", "value": 1}
//	Compound → {"operator": "and", "children": [...]}
func ToMap(c Condition) (map[string]any, error) {
	switch node := c.(type) {
	case Field:
		return fieldToMap(node), nil
	case *Field:
		return fieldToMap(*node), nil
	case Compound:
		return compoundToMap(node)
	case *Compound:
		return compoundToMap(*node)
	default:
		return nil, fmt.Errorf("unsupported condition type: %T", c)
	}
}

func fieldToMap(f Field) map[string]any {
	var v value.Value = f.Value
	if v == nil {
		v = value.Null{}
	}
	return map[string]any{
		"operator": string(f.Operator),
		"field":    f.Field,
		"value":    v,
	}
}

func compoundToMap(c Compound) (map[string]any, error) {
	children := make([]any, 0, len(c.Children))
	for i, child := range c.Children {
		m, err := ToMap(child)
		if err != nil {
			return nil, fmt.Errorf("children[%d]: %w", i, err)
		}
		children = append(children, m)
	}
	return map[string]any{
		"operator": string(c.Operator),
		"children": children,
	}, nil
}

// MarshalCanonical produces deterministic JSON for a condition tree.
func MarshalCanonical(c Condition) ([]byte, error) {
	m, err := ToMap(c)
	if err != nil {
		return nil, err
	}
	return value.MarshalCanonical(m)
}

// FromAny decodes the map form produced by ToMap (after a JSON or YAML
// round trip) back into a condition tree.
func FromAny(v any) (Condition, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("condition must be an object, got %T", v)
	}

	op, _ := m["operator"].(string)
	switch Logic(op) {
	case And, Or:
		raw, ok := m["children"].([]any)
		if !ok && m["children"] != nil {
			return nil, fmt.Errorf("%s: children must be a list", op)
		}
		children := make([]Condition, 0, len(raw))
		for i, child := range raw {
			c, err := FromAny(child)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			children = append(children, c)
		}
		return Compound{Operator: Logic(op), Children: children}, nil
	}

	if !Operator(op).Valid() {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	field, ok := m["field"].(string)
	if !ok || field == "" {
		return nil, fmt.Errorf("%s: field is required", op)
	}
	val, err := value.FromAny(m["value"])
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, field, err)
	}
	return Field{Operator: Operator(op), Field: field, Value: val}, nil
}

// Format renders a condition tree as a compact functional expression,
// e.g. or(and(eq(id, 1), lt(age, 18)), eq(id, 15)).
func Format(c Condition) string {
	var sb strings.Builder
	format(&sb, c)
	return sb.String()
}

func format(sb *strings.Builder, c Condition) {
	switch node := c.(type) {
	case Field:
		formatField(sb, node)
	case *Field:
		formatField(sb, *node)
	case Compound:
		formatCompound(sb, node)
	case *Compound:
		formatCompound(sb, *node)
	default:
		fmt.Fprintf(sb, "<%T>", c)
	}
}

func formatField(sb *strings.Builder, f Field) {
	data, err := value.MarshalCanonical(f.Value)
	if err != nil {
		data = []byte("?")
	}
	fmt.Fprintf(sb, "%s(%s, %s)", f.Operator, f.Field, data)
}

func formatCompound(sb *strings.Builder, c Compound) {
	sb.WriteString(string(c.Operator))
	sb.WriteByte('(')
	for i, child := range c.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(sb, child)
	}
	sb.WriteByte(')')
}
