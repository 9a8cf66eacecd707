package engine

import (
	"github.com/roach88/varscope/internal/graph"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/scope"
	"github.com/roach88/varscope/internal/template"
)

// LintIssue is one finding of a static check.
type LintIssue struct {
	Code     ErrorCode `json:"code"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
	Path     []string  `json:"path,omitempty"`
	Severity string    `json:"severity"`
}

// LintReport is the static analysis of every visible variable in a context.
type LintReport struct {
	Variables int            `json:"variables"`
	Issues    []LintIssue    `json:"issues"`
	Cycles    []graph.Cycle  `json:"cycles"`
	Shadowed  []scope.Shadow `json:"shadowed"`
}

// Clean reports whether the report has no error-severity issues.
// Shadowing alone is informational.
func (r LintReport) Clean() bool {
	for _, i := range r.Issues {
		if i.Severity == "error" {
			return false
		}
	}
	return true
}

// Lint checks every visible variable without expanding anything: malformed
// values, cycles, references to undefined names and unknown functions.
// Shadowed names are reported as info.
func (r *Resolver) Lint(rctx *ir.ResolutionContext) (LintReport, error) {
	if rctx == nil {
		return LintReport{}, ErrNilContext
	}
	vars := scope.Visible(rctx)
	g, parseIssues := graph.BuildAll(vars)
	report := LintReport{
		Variables: len(vars),
		Issues:    []LintIssue{},
		Cycles:    graph.DetectCycles(g),
		Shadowed:  scope.Shadowed(rctx),
	}

	for _, pi := range parseIssues {
		se := NewSyntaxError(pi.Name, pi.Err)
		report.Issues = append(report.Issues, LintIssue{Code: se.Code, Name: pi.Name, Message: se.Message, Severity: "error"})
	}
	onPath := make(map[string]bool)
	for _, c := range report.Cycles {
		report.Issues = append(report.Issues, LintIssue{Code: ErrCodeCircularDependency, Name: c.Path[0], Message: c.Message, Path: c.Closed(), Severity: "error"})
		for _, name := range c.Path {
			onPath[name] = true
		}
	}
	members := graph.Membership(g, report.Cycles)
	for _, name := range g.Nodes {
		c, ok := members[name]
		if !ok || onPath[name] {
			continue
		}
		report.Issues = append(report.Issues, LintIssue{Code: ErrCodeCircularDependency, Name: name, Message: name + " is part of " + c.Message, Path: c.Closed(), Severity: "error"})
	}

	defined := make(map[string]bool, len(vars))
	for _, v := range vars {
		defined[v.Name] = true
	}
	for _, name := range g.Nodes {
		if defined[name] {
			continue
		}
		for _, from := range g.Dependents[name] {
			uerr := NewUndefinedError(name, []string{from, name}, 0)
			report.Issues = append(report.Issues, LintIssue{Code: uerr.Code, Name: name, Message: uerr.Message + " (referenced by " + from + ")", Path: uerr.Path, Severity: "error"})
		}
	}

	for _, v := range vars {
		if !template.HasReferences(v.Value) {
			continue
		}
		segs, err := template.Parse(v.Value)
		if err != nil {
			continue
		}
		for _, seg := range segs {
			if seg.Kind != template.Function {
				continue
			}
			if _, ok := r.funcs.Lookup(seg.Name); !ok {
				report.Issues = append(report.Issues, LintIssue{
					Code:     ErrCodeFunctionInvocation,
					Name:     v.Name,
					Message:  "unknown function " + seg.Name + "()",
					Severity: "error",
				})
			}
		}
	}

	for _, s := range report.Shadowed {
		report.Issues = append(report.Issues, LintIssue{
			Code:     "SHADOWED",
			Name:     s.Name,
			Message:  "defined in " + string(s.Winner) + " and hidden in " + joinScopes(s.Hidden),
			Severity: "info",
		})
	}
	return report, nil
}

func joinScopes(scopes []ir.Scope) string {
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += ", "
		}
		out += string(s)
	}
	return out
}
