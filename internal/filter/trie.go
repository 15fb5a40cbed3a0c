package filter

import (
	"sort"

	"github.com/roach88/qfilter/internal/condition"
)

// groupTrie indexes group digit strings by prefix.
//
// Nodes live in an arena and refer to each other by index. Node 0 is
// always the root (the implicit "" group). A node exists for every
// distinct prefix of every bucket key, so internal-only nodes carry no
// fields.
type groupTrie struct {
	nodes  []groupNode
	index  map[string]int
	levels [][]int // node ids by depth, each level in prefix order
}

type groupNode struct {
	prefix   string
	parent   int
	depth    int
	children []int
	fields   []condition.Field
	bucket   bool
}

func newGroupTrie(buckets Buckets) *groupTrie {
	t := &groupTrie{index: make(map[string]int)}
	t.insert("")

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		id := t.insert(k)
		t.nodes[id].bucket = true
		t.nodes[id].fields = append(t.nodes[id].fields, buckets[k]...)
	}

	for i := range t.nodes {
		children := t.nodes[i].children
		sort.Slice(children, func(a, b int) bool {
			return t.nodes[children[a]].prefix < t.nodes[children[b]].prefix
		})
	}
	for _, level := range t.levels {
		sort.Slice(level, func(a, b int) bool {
			return t.nodes[level[a]].prefix < t.nodes[level[b]].prefix
		})
	}
	return t
}

// insert adds prefix and all its ancestors, returning the id of prefix.
func (t *groupTrie) insert(prefix string) int {
	if id, ok := t.index[prefix]; ok {
		return id
	}

	parent := -1
	if prefix != "" {
		parent = t.insert(prefix[:len(prefix)-1])
	}

	id := len(t.nodes)
	depth := len(prefix)
	t.nodes = append(t.nodes, groupNode{prefix: prefix, parent: parent, depth: depth})
	t.index[prefix] = id
	if parent >= 0 {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	for len(t.levels) <= depth {
		t.levels = append(t.levels, nil)
	}
	t.levels[depth] = append(t.levels[depth], id)
	return id
}

// lookup returns the node for prefix.
func (t *groupTrie) lookup(prefix string) (groupNode, bool) {
	id, ok := t.index[prefix]
	if !ok {
		return groupNode{}, false
	}
	return t.nodes[id], true
}

// height is the depth of the deepest node.
func (t *groupTrie) height() int {
	return len(t.levels) - 1
}
