package trace

import (
	"fmt"
	"strings"

	"github.com/roach88/varscope/internal/ir"
)

// Summary renders tr as human-readable text for terminals.
func Summary(tr *ir.ResolutionTrace) string {
	var b strings.Builder
	status := "ok"
	if !tr.Success {
		status = "failed"
	}
	fmt.Fprintf(&b, "trace %s (%s, %s)\n", tr.ID, status, tr.Duration())
	fmt.Fprintf(&b, "  template: %q\n", tr.OriginalTemplate)
	fmt.Fprintf(&b, "  value:    %q\n", tr.FinalValue)
	if tr.Context.ProfileID != "" || tr.Context.RuleID != "" {
		fmt.Fprintf(&b, "  context:  profile=%s rule=%s\n", orDash(tr.Context.ProfileID), orDash(tr.Context.RuleID))
	}
	m := tr.Metrics
	fmt.Fprintf(&b, "  metrics:  variables=%d functions=%d max_depth=%d cache_hits=%d cache_misses=%d\n",
		m.VariableCount, m.FunctionCount, m.MaxDepth, m.CacheHits, m.CacheMisses)

	if len(tr.Steps) > 0 {
		b.WriteString("  steps:\n")
		for _, s := range tr.Steps {
			indent := strings.Repeat("  ", max(s.Depth-1, 0))
			fmt.Fprintf(&b, "    %3d %s%-10s %s", s.StepNumber, indent, s.Type, s.Name)
			if s.Scope != "" {
				fmt.Fprintf(&b, " [%s]", s.Scope)
			}
			if s.Output != "" {
				fmt.Fprintf(&b, " => %q", s.Output)
			}
			if s.Error != "" {
				fmt.Fprintf(&b, " !! %s", s.Error)
			}
			b.WriteString("\n")
		}
	}
	if len(tr.ResolvedVariables) > 0 {
		fmt.Fprintf(&b, "  resolved:   %s\n", strings.Join(tr.ResolvedVariables, ", "))
	}
	if len(tr.UnresolvedVariables) > 0 {
		fmt.Fprintf(&b, "  unresolved: %s\n", strings.Join(tr.UnresolvedVariables, ", "))
	}
	for _, e := range tr.Errors {
		fmt.Fprintf(&b, "  error [%s] %s\n", e.Code, e.Message)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// StepsOfType returns the steps in tr with the given type, in order.
func StepsOfType(tr *ir.ResolutionTrace, typ ir.StepType) []ir.ResolutionStep {
	var out []ir.ResolutionStep
	for _, s := range tr.Steps {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}
