package graph

import (
	"fmt"
	"strings"

	"github.com/roach88/varscope/internal/ir"
)

// Cycle is one circular reference chain.
//
// Path lists the members in traversal order, starting at the node the
// search re-entered: a -> b -> a is Path ["a", "b"]. A self reference is a
// single-element Path.
type Cycle struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Closed returns Path with its first member appended: ["a", "b", "a"].
func (c Cycle) Closed() []string {
	if len(c.Path) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Path)+1)
	out = append(out, c.Path...)
	return append(out, c.Path[0])
}

type frame struct {
	node string
	next int
}

const (
	unvisited = iota
	inProgress
	done
)

// DetectCycles finds the cycles in g with a depth-first search that keeps
// its own stack, so arbitrarily long chains cannot exhaust the goroutine
// stack.
//
// A cycle is reported when an edge reaches a node still in progress; the
// cycle is the current path from that node. Members reached only through
// finished nodes lie on no reported path; Components and Membership find
// them. Each distinct cycle is reported
// once regardless of which member the search entered it through. Search
// order follows g.Nodes, so output is deterministic.
func DetectCycles(g *ir.DependencyGraph) []Cycle {
	cycles := []Cycle{}
	if g == nil {
		return cycles
	}
	state := make(map[string]int, len(g.Nodes))
	seen := make(map[string]bool)

	for _, start := range g.Nodes {
		if state[start] != unvisited {
			continue
		}
		stack := []frame{{node: start}}
		position := map[string]int{start: 0}
		state[start] = inProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.Edges[top.node]
			if top.next >= len(edges) {
				state[top.node] = done
				delete(position, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			next := edges[top.next]
			top.next++

			switch state[next] {
			case unvisited:
				state[next] = inProgress
				position[next] = len(stack)
				stack = append(stack, frame{node: next})
			case inProgress:
				path := make([]string, 0, len(stack)-position[next])
				for _, f := range stack[position[next]:] {
					path = append(path, f.node)
				}
				key := canonicalKey(path)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, Cycle{Path: path, Message: cycleMessage(path)})
				}
			}
		}
	}
	return cycles
}

// canonicalKey identifies a cycle independent of its starting member by
// rotating the smallest name to the front.
func canonicalKey(path []string) string {
	minIdx := 0
	for i, name := range path {
		if name < path[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string{}, path[minIdx:]...), path[:minIdx]...)
	return strings.Join(rotated, "\x00")
}

func cycleMessage(path []string) string {
	if len(path) == 1 {
		return fmt.Sprintf("variable %s references itself", path[0])
	}
	closed := append(append([]string{}, path...), path[0])
	return fmt.Sprintf("circular dependency: %s", strings.Join(closed, " -> "))
}
