package condition

import (
	"slices"
	"strings"
)

// Normalize rewrites a condition tree into a canonical form so that two
// trees that differ only by associative/commutative reordering of AND/OR
// children, or by single-child compounds, compare equal.
//
// The rewrite:
//  1. collapses compounds with exactly one child into that child
//  2. lifts children of a nested compound with the same operator
//  3. sorts children by their canonical JSON encoding
//
// The top-level node is returned as-is when it is a Field; an empty
// compound stays an empty compound.
func Normalize(c Condition) Condition {
	switch node := c.(type) {
	case *Field:
		return *node
	case *Compound:
		return normalizeCompound(*node)
	case Compound:
		return normalizeCompound(node)
	default:
		return c
	}
}

func normalizeCompound(c Compound) Condition {
	children := make([]Condition, 0, len(c.Children))
	for _, child := range c.Children {
		n := Normalize(child)
		if nested, ok := n.(Compound); ok && nested.Operator == c.Operator {
			children = append(children, nested.Children...)
			continue
		}
		children = append(children, n)
	}

	if len(children) == 1 {
		return children[0]
	}

	slices.SortStableFunc(children, func(a, b Condition) int {
		return strings.Compare(sortKey(a), sortKey(b))
	})
	return Compound{Operator: c.Operator, Children: children}
}

func sortKey(c Condition) string {
	data, err := MarshalCanonical(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// Equivalent reports whether two trees are equal modulo reordering of
// AND/OR children and collapse of single-child compounds.
func Equivalent(a, b Condition) bool {
	return sortKey(Normalize(a)) == sortKey(Normalize(b))
}
