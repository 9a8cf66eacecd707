package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/varscope/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []ir.ResolutionStep // Steps the assertion looked at
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, step := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s depth=%d", step.StepNumber, step.Type, step.Name, step.Depth)
		if step.ErrorCode != "" {
			fmt.Fprintf(&buf, " error=%s", step.ErrorCode)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result.
// Returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.traceSteps(a.Step), a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.traceSteps(a.Step), a)
		case AssertTraceCount:
			err = assertTraceCount(result.traceSteps(a.Step), a)
		case AssertDependency:
			err = assertDependency(result.edges(a.Step), a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks that a step named a.Name (of a.StepType, when
// given) was recorded.
func assertTraceContains(steps []ir.ResolutionStep, a Assertion) error {
	for _, step := range steps {
		if step.Name == a.Name && (a.StepType == "" || step.Type == a.StepType) {
			return nil
		}
	}

	want := a.Name
	if a.StepType != "" {
		want = fmt.Sprintf("%s step for %s", a.StepType, a.Name)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    steps,
	}
}

// assertTraceOrder checks that names first appear in the given order.
// Steps don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(steps []ir.ResolutionStep, a Assertion) error {
	positions := make(map[string]int)
	for i, step := range steps {
		if positions[step.Name] == 0 {
			positions[step.Name] = i + 1 // 1-indexed so 0 means absent
		}
	}

	for _, name := range a.Names {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all names present: %v", a.Names),
				Actual:   fmt.Sprintf("missing name: %s", name),
				Trace:    steps,
			}
		}
	}

	for i := 1; i < len(a.Names); i++ {
		prev, curr := a.Names[i-1], a.Names[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("names in order: %v", a.Names),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: steps,
			}
		}
	}
	return nil
}

// assertTraceCount checks the exact number of a.StepType steps, restricted
// to a.Name when given.
func assertTraceCount(steps []ir.ResolutionStep, a Assertion) error {
	count := 0
	for _, step := range steps {
		if step.Type == a.StepType && (a.Name == "" || step.Name == a.Name) {
			count++
		}
	}

	if count != a.Count {
		subject := string(a.StepType)
		if a.Name != "" {
			subject += " " + a.Name
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps", a.Count, subject),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    steps,
		}
	}
	return nil
}

// assertDependency checks that the edge a.From -> a.To was recorded.
func assertDependency(edges []ir.Edge, a Assertion) error {
	if slices.Contains(edges, ir.Edge{From: a.From, To: a.To}) {
		return nil
	}
	recorded := make([]string, len(edges))
	for i, e := range edges {
		recorded[i] = e.From + " -> " + e.To
	}
	return &AssertionError{
		Type:     AssertDependency,
		Expected: fmt.Sprintf("edge %s -> %s", a.From, a.To),
		Actual:   fmt.Sprintf("edges %v", recorded),
	}
}

// checkExpect compares one step's outcome against its expect clause.
func checkExpect(index int, exp *Expect, step StepResult) []string {
	if exp == nil {
		return nil
	}
	tr := step.Trace
	var failures []string
	fail := func(field string, want, got any) {
		failures = append(failures, fmt.Sprintf("step %d: %s: expected %v, got %v", index, field, want, got))
	}

	if exp.Value != nil && *exp.Value != step.Value {
		fail("value", fmt.Sprintf("%q", *exp.Value), fmt.Sprintf("%q", step.Value))
	}
	if exp.Success != nil && *exp.Success != tr.Success {
		fail("success", *exp.Success, tr.Success)
	}
	if exp.Resolved != nil && !slices.Equal(exp.Resolved, tr.ResolvedVariables) {
		fail("resolved", exp.Resolved, tr.ResolvedVariables)
	}
	if exp.Unresolved != nil && !slices.Equal(exp.Unresolved, tr.UnresolvedVariables) {
		fail("unresolved", exp.Unresolved, tr.UnresolvedVariables)
	}
	if exp.ErrorCodes != nil && !slices.Equal(exp.ErrorCodes, tr.ErrorCodes()) {
		fail("error_codes", exp.ErrorCodes, tr.ErrorCodes())
	}
	if exp.CacheHits != nil && *exp.CacheHits != tr.Metrics.CacheHits {
		fail("cache_hits", *exp.CacheHits, tr.Metrics.CacheHits)
	}
	return failures
}
