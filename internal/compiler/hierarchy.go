package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spanrule/internal/stream"
)

// CycleError reports types whose parent chain loops back on itself.
type CycleError struct {
	Path []string `json:"path"` // ["A", "B", "A"]
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("type hierarchy cycle: %s", strings.Join(e.Path, " → "))
}

// parentGraph maps a type to its parent. Only edges between declared
// types are kept.
type parentGraph map[string][]string

func buildParentGraph(decls []stream.TypeDecl) parentGraph {
	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		declared[d.Name] = true
	}
	graph := make(parentGraph, len(decls))
	for _, d := range decls {
		if graph[d.Name] == nil {
			graph[d.Name] = []string{}
		}
		if declared[d.Parent] {
			graph[d.Name] = append(graph[d.Name], d.Parent)
		}
	}
	return graph
}

// findCycles returns one CycleError per strongly connected component that
// is a cycle, ordered by the first type of the component in decls.
func findCycles(decls []stream.TypeDecl) []*CycleError {
	graph := buildParentGraph(decls)
	order := make(map[string]int, len(decls))
	for i, d := range decls {
		if _, ok := order[d.Name]; !ok {
			order[d.Name] = i
		}
	}

	var out []*CycleError
	for _, scc := range tarjanSCC(graph, decls) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		slices.SortFunc(scc, func(a, b string) int { return order[a] - order[b] })
		out = append(out, &CycleError{Path: reconstructCyclePath(scc, graph)})
	}
	slices.SortFunc(out, func(a, b *CycleError) int { return order[a.Path[0]] - order[b.Path[0]] })
	return out
}

// tarjanSCC finds strongly connected components, visiting roots in
// declaration order.
func tarjanSCC(graph parentGraph, decls []stream.TypeDecl) [][]string {
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

	for _, d := range decls {
		if _, visited := indices[d.Name]; !visited {
			strongConnect(d.Name)
		}
	}
	return sccs
}

// reconstructCyclePath follows parent edges from the first member of scc
// until it returns to it.
func reconstructCyclePath(scc []string, graph parentGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	for current := start; ; {
		var next string
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
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
		visited[next] = true
		current = next
	}
	return path
}

// parentsFirst orders decls so every declared parent precedes its
// children. decls must be acyclic; ties keep declaration order.
func parentsFirst(decls []stream.TypeDecl) []stream.TypeDecl {
	byName := make(map[string]stream.TypeDecl, len(decls))
	for _, d := range decls {
		byName[d.Name] = d
	}
	done := make(map[string]bool, len(decls))
	out := make([]stream.TypeDecl, 0, len(decls))

	var visit func(stream.TypeDecl)
	visit = func(d stream.TypeDecl) {
		if done[d.Name] {
			return
		}
		done[d.Name] = true
		if p, ok := byName[d.Parent]; ok {
			visit(p)
		}
		out = append(out, d)
	}
	for _, d := range decls {
		visit(d)
	}
	return out
}
