// Package graph builds the variable dependency graph for a resolution pass
// and detects circular references in it.
package graph

import (
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/template"
)

// LookupFunc returns the raw value of a visible variable.
type LookupFunc func(name string) (string, bool)

// ParseIssue records a variable whose value failed to parse. Such a
// variable is a leaf in the graph.
type ParseIssue struct {
	Name string
	Err  error
}

// Build returns the graph reachable from roots, following the references
// found in each variable's raw value. Undefined names and values without
// references are leaves.
//
// Nodes appear in breadth-first discovery order, roots first.
func Build(roots []string, lookup LookupFunc) (*ir.DependencyGraph, []ParseIssue) {
	g := ir.NewDependencyGraph()
	var issues []ParseIssue

	queue := make([]string, 0, len(roots))
	for _, root := range roots {
		if g.AddNode(root) {
			queue = append(queue, root)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		raw, ok := lookup(name)
		if !ok || !template.HasReferences(raw) {
			continue
		}
		refs, err := template.ReferencedVariables(raw)
		if err != nil {
			issues = append(issues, ParseIssue{Name: name, Err: err})
			continue
		}
		for _, ref := range refs {
			discovered := !g.Has(ref)
			g.AddEdge(name, ref)
			if discovered {
				queue = append(queue, ref)
			}
		}
	}
	return g, issues
}

// BuildAll returns the graph over every variable in vars, for whole-set
// static analysis.
func BuildAll(vars []ir.Variable) (*ir.DependencyGraph, []ParseIssue) {
	values := make(map[string]string, len(vars))
	roots := make([]string, 0, len(vars))
	for _, v := range vars {
		if _, dup := values[v.Name]; !dup {
			roots = append(roots, v.Name)
		}
		values[v.Name] = v.Value
	}
	return Build(roots, func(name string) (string, bool) {
		raw, ok := values[name]
		return raw, ok
	})
}
