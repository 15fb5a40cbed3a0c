package filter

import (
	"github.com/roach88/qfilter/internal/condition"
)

// Buckets maps a group digit string to the field predicates in that group.
// The implicit top-level group is "".
type Buckets map[string][]condition.Field

// Add appends fields to the group, concatenating with existing entries.
func (b Buckets) Add(group string, fields ...condition.Field) {
	b[group] = append(b[group], fields...)
}

// Merge concatenates other into b group by group.
func (b Buckets) Merge(other Buckets) {
	for group, fields := range other {
		b.Add(group, fields...)
	}
}

// Len returns the total number of field predicates across all groups.
func (b Buckets) Len() int {
	n := 0
	for _, fields := range b {
		n += len(fields)
	}
	return n
}

// MergeGroups reconstructs the predicate tree from flattened groups.
//
// A group's digit string is its path through the OR branch points of the
// tree. Each trie node reduces to the AND of its own fields and the OR of
// its children's results; nodes are reduced deepest level first so every
// child is finished before its parent. Groups with no fields and no
// surviving children vanish.
//
// The result is always a Compound: zero buckets yield an empty AND, and a
// lone predicate is wrapped in a single-child AND.
func MergeGroups(buckets Buckets) condition.Compound {
	if buckets.Len() == 0 {
		return condition.NewAnd()
	}

	t := newGroupTrie(buckets)
	results := make([]condition.Condition, len(t.nodes))
	for depth := t.height(); depth >= 0; depth-- {
		for _, id := range t.levels[depth] {
			results[id] = t.reduce(id, results)
		}
	}

	switch root := results[0].(type) {
	case condition.Compound:
		return root
	case condition.Field:
		return condition.NewAnd(root)
	default:
		return condition.NewAnd()
	}
}

// reduce combines node id's fields with its already reduced children.
func (t *groupTrie) reduce(id int, results []condition.Condition) condition.Condition {
	n := t.nodes[id]

	var branches []condition.Condition
	for _, child := range n.children {
		if r := results[child]; r != nil {
			branches = append(branches, r)
		}
	}

	parts := make([]condition.Condition, 0, len(n.fields)+1)
	for _, f := range n.fields {
		parts = append(parts, f)
	}

	switch len(branches) {
	case 0:
	case 1:
		// A single branch is not an OR; its conjuncts join this group.
		if c, ok := branches[0].(condition.Compound); ok && c.Operator == condition.And {
			parts = append(parts, c.Children...)
		} else {
			parts = append(parts, branches[0])
		}
	default:
		parts = append(parts, condition.NewOr(branches...))
	}

	if len(parts) == 0 {
		return nil
	}
	return condition.Wrap(condition.And, parts)
}
