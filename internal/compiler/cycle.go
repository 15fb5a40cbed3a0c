package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/qfilter/internal/schema"
)

// CycleWarning represents a cycle in the relation graph.
//
// Cycles are warnings, not errors: a parser bounds relation recursion by
// its maximum depth, so user → profile → user is legal and simply stops
// descending at the limit.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["user", "profile", "user"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on the relation graph of a
// registry.
//
// The algorithm:
//  1. Build schema → target schema edges from relation aliases
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// A DAG (no cycles) returns an empty warning list. Warnings are sorted by
// their first schema name.
func AnalyzeCycles(reg *schema.Registry) []CycleWarning {
	graph := buildRelationGraph(reg)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// relationGraph maps schema name → target schema names, in relation order.
type relationGraph map[string][]string

// buildRelationGraph adds one edge per relation alias whose target is
// registered. Dangling aliases are reported by Validate, not here.
func buildRelationGraph(reg *schema.Registry) relationGraph {
	graph := make(relationGraph)
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		graph[name] = []string{}
		for _, rel := range s.Relations() {
			if _, ok := reg.Get(rel[1]); ok {
				graph[name] = append(graph[name], rel[1])
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph relationGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is deterministic.
func tarjanSCC(graph relationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning. The path starts at
// the alphabetically first member.
func cycleSCCToWarning(scc []string, graph relationGraph) CycleWarning {
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)

	if len(sorted) == 1 {
		name := sorted[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-referencing relation: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(sorted, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Relation cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start or runs out of unvisited members.
func reconstructCyclePath(scc []string, graph relationGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
