package graph

import (
	"slices"

	"github.com/roach88/varscope/internal/ir"
)

type tarjanFrame struct {
	node string
	next int
}

// Components returns the strongly connected components of g that contain a
// cycle: two or more members, or a single member that references itself.
//
// Uses Tarjan's algorithm with an explicit call stack. Members keep g.Nodes
// order and components are ordered by their first member.
func Components(g *ir.DependencyGraph) [][]string {
	comps := [][]string{}
	if g == nil {
		return comps
	}

	var (
		index   int
		stack   []string
		indices = make(map[string]int, len(g.Nodes))
		lowlink = make(map[string]int, len(g.Nodes))
		onStack = make(map[string]bool, len(g.Nodes))
	)
	visit := func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
	}

	for _, start := range g.Nodes {
		if _, seen := indices[start]; seen {
			continue
		}
		visit(start)
		calls := []tarjanFrame{{node: start}}

		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			edges := g.Edges[top.node]
			if top.next < len(edges) {
				w := edges[top.next]
				top.next++
				if _, seen := indices[w]; !seen {
					visit(w)
					calls = append(calls, tarjanFrame{node: w})
				} else if onStack[w] {
					lowlink[top.node] = min(lowlink[top.node], indices[w])
				}
				continue
			}

			v := top.node
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}
			if lowlink[v] != indices[v] {
				continue
			}

			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 || slices.Contains(g.Edges[v], v) {
				comps = append(comps, comp)
			}
		}
	}

	position := make(map[string]int, len(g.Nodes))
	for i, name := range g.Nodes {
		position[name] = i
	}
	byPosition := func(a, b string) int { return position[a] - position[b] }
	for _, comp := range comps {
		slices.SortFunc(comp, byPosition)
	}
	slices.SortFunc(comps, func(a, b []string) int { return byPosition(a[0], b[0]) })
	return comps
}

// CycleMembers returns the set of names that lie on any cycle of g.
func CycleMembers(g *ir.DependencyGraph) map[string]bool {
	members := make(map[string]bool)
	for _, comp := range Components(g) {
		for _, name := range comp {
			members[name] = true
		}
	}
	return members
}

// Membership maps every name on a cycle of g to a cycle that explains it.
//
// DetectCycles reports one path per back edge, so a member reached only
// through an already finished node appears on no path. Such a member maps
// to the first reported cycle of its component; names on a path map to the
// first path naming them.
func Membership(g *ir.DependencyGraph, cycles []Cycle) map[string]Cycle {
	out := make(map[string]Cycle)
	for _, c := range cycles {
		for _, name := range c.Path {
			if _, ok := out[name]; !ok {
				out[name] = c
			}
		}
	}
	for _, comp := range Components(g) {
		var explain *Cycle
		for _, name := range comp {
			if c, ok := out[name]; ok {
				explain = &c
				break
			}
		}
		if explain == nil {
			// Unreachable for cycles from DetectCycles(g): every cyclic
			// component contains a back edge.
			explain = &Cycle{Path: comp, Message: cycleMessage(comp)}
		}
		for _, name := range comp {
			if _, ok := out[name]; !ok {
				out[name] = *explain
			}
		}
	}
	return out
}
