package harness

import (
	"github.com/roach88/varscope/internal/ir"
)

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult

	// Errors lists every failed expectation and assertion.
	Errors []string

	// Digest is the content hash of the canonical snapshot. Two runs of the
	// same scenario produce the same digest.
	Digest string
}

// StepResult is the outcome of one resolve call.
type StepResult struct {
	Template string
	Value    string
	Trace    *ir.ResolutionTrace
}

// NewResult creates a new result with Pass set to true.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds an error to the result and marks it as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddStep appends a step outcome.
func (r *Result) AddStep(tmpl, value string, tr *ir.ResolutionTrace) {
	r.Steps = append(r.Steps, StepResult{Template: tmpl, Value: value, Trace: tr})
}

// traceSteps returns the recorded steps for step index, or for every step
// when index is nil.
func (r *Result) traceSteps(index *int) []ir.ResolutionStep {
	if index != nil {
		return r.Steps[*index].Trace.Steps
	}
	var all []ir.ResolutionStep
	for _, s := range r.Steps {
		all = append(all, s.Trace.Steps...)
	}
	return all
}

// edges returns the recorded dependency edges for step index, or for every
// step when index is nil.
func (r *Result) edges(index *int) []ir.Edge {
	if index != nil {
		return r.Steps[*index].Trace.Dependencies
	}
	var all []ir.Edge
	for _, s := range r.Steps {
		all = append(all, s.Trace.Dependencies...)
	}
	return all
}
