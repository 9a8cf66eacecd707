// Package scope implements precedence-ordered variable lookup.
//
// Precedence, highest first: rule, profile, global, system. Disabled
// variables never reach a ResolutionContext, so they are invisible here.
// Every function is pure: output depends only on (name, context).
package scope

import (
	"sort"

	"github.com/roach88/varscope/internal/ir"
)

// Result is the outcome of a lookup. Scope and Variable are zero when
// Found is false.
type Result struct {
	Found    bool
	Value    string
	Scope    ir.Scope
	Variable ir.Variable
}

// Lookup returns the highest-precedence visible definition of name.
func Lookup(name string, ctx *ir.ResolutionContext) Result {
	if ctx == nil {
		return Result{}
	}
	for _, s := range ir.PrecedenceOrder {
		if v, ok := ctx.Find(s, name); ok {
			return Result{Found: true, Value: v.Value, Scope: s, Variable: v}
		}
	}
	return Result{}
}

// Visible returns the effective variable set after shadowing, sorted by name.
func Visible(ctx *ir.ResolutionContext) []ir.Variable {
	if ctx == nil {
		return []ir.Variable{}
	}
	seen := make(map[string]bool)
	out := []ir.Variable{}
	for _, s := range ir.PrecedenceOrder {
		for _, v := range ctx.Variables(s) {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shadow describes a name defined in more than one scope.
// Winner is the scope Lookup returns; Hidden lists the rest, highest first.
type Shadow struct {
	Name   string     `json:"name"`
	Winner ir.Scope   `json:"winner"`
	Hidden []ir.Scope `json:"hidden"`
}

// Shadowed returns every name defined in two or more scopes, sorted by name.
func Shadowed(ctx *ir.ResolutionContext) []Shadow {
	if ctx == nil {
		return []Shadow{}
	}
	scopes := make(map[string][]ir.Scope)
	for _, s := range ir.PrecedenceOrder {
		for _, v := range ctx.Variables(s) {
			scopes[v.Name] = append(scopes[v.Name], s)
		}
	}
	out := []Shadow{}
	for _, name := range ir.SortedKeys(scopes) {
		defined := scopes[name]
		if len(defined) < 2 {
			continue
		}
		out = append(out, Shadow{Name: name, Winner: defined[0], Hidden: defined[1:]})
	}
	return out
}
