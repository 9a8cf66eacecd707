package trace

import (
	"slices"
	"strings"
	"time"

	"github.com/roach88/varscope/internal/ir"
)

// Mask replaces secret values in recorded steps.
const Mask = "********"

// StepInput describes a step to record. Step numbers are assigned by the
// tracer.
type StepInput struct {
	Type      ir.StepType
	Name      string
	Input     string
	Output    string
	Scope     ir.Scope
	Depth     int
	Duration  time.Duration
	CacheHit  bool
	Error     string
	ErrorCode string
	Metadata  map[string]string
}

// Tracer accumulates the record of one resolve call.
type Tracer struct {
	clock *Clock
	now   func() time.Time

	trace    ir.ResolutionTrace
	edges    map[ir.Edge]bool
	secrets  []string
	finished bool
}

// New starts a trace. now supplies start/end timestamps; nil means
// time.Now.
func New(id, template string, summary ir.ContextSummary, now func() time.Time) *Tracer {
	if now == nil {
		now = time.Now
	}
	return &Tracer{
		clock: NewClock(),
		now:   now,
		edges: make(map[ir.Edge]bool),
		trace: ir.ResolutionTrace{
			ID:               id,
			OriginalTemplate: template,
			Steps:            []ir.ResolutionStep{},
			Errors:           []ir.TraceError{},
			Dependencies:     []ir.Edge{},
			StartTime:        now(),
			Context:          summary,
		},
	}
}

// ID returns the trace id.
func (t *Tracer) ID() string {
	return t.trace.ID
}

// AddSecret registers a value that must never appear in step input or
// output. Every later step has occurrences replaced by Mask.
//
// Secrets are kept longest first, so a secret that contains a shorter one
// is masked whole.
func (t *Tracer) AddSecret(value string) {
	if value == "" || slices.Contains(t.secrets, value) {
		return
	}
	i := 0
	for i < len(t.secrets) && len(t.secrets[i]) >= len(value) {
		i++
	}
	t.secrets = slices.Insert(t.secrets, i, value)
}

// RecordStep appends a step and updates the metrics it contributes to.
func (t *Tracer) RecordStep(in StepInput) ir.ResolutionStep {
	step := ir.ResolutionStep{
		StepNumber:    t.clock.Next(),
		Type:          in.Type,
		Name:          in.Name,
		Input:         t.mask(in.Input),
		Output:        t.mask(in.Output),
		Scope:         in.Scope,
		Depth:         in.Depth,
		ExecutionTime: in.Duration,
		CacheHit:      in.CacheHit,
		Error:         in.Error,
		ErrorCode:     in.ErrorCode,
		Metadata:      in.Metadata,
	}
	t.trace.Steps = append(t.trace.Steps, step)

	m := &t.trace.Metrics
	switch in.Type {
	case ir.StepVariable, ir.StepNested:
		m.VariableCount++
	case ir.StepFunction:
		m.FunctionCount++
	case ir.StepCacheHit:
		m.CacheHits++
	case ir.StepCacheMiss:
		m.CacheMisses++
	}
	t.NoteDepth(in.Depth)
	return step
}

// AddError records a resolution error.
func (t *Tracer) AddError(e ir.TraceError) {
	t.trace.Errors = append(t.trace.Errors, e)
}

// AddEdge records that from's value references to. Duplicates are ignored.
func (t *Tracer) AddEdge(from, to string) {
	e := ir.Edge{From: from, To: to}
	if t.edges[e] {
		return
	}
	t.edges[e] = true
	t.trace.Dependencies = append(t.trace.Dependencies, e)
}

// NoteDepth raises Metrics.MaxDepth to depth if it is larger.
func (t *Tracer) NoteDepth(depth int) {
	if depth > t.trace.Metrics.MaxDepth {
		t.trace.Metrics.MaxDepth = depth
	}
}

// Finish seals the trace. resolved and unresolved are de-duplicated with
// order preserved; a name present in both is kept only in unresolved.
// Success is true exactly when no errors were recorded.
//
// Calling Finish twice returns the same trace.
func (t *Tracer) Finish(finalValue string, resolved, unresolved []string) *ir.ResolutionTrace {
	if t.finished {
		return &t.trace
	}
	t.finished = true

	failed := make(map[string]bool, len(unresolved))
	t.trace.UnresolvedVariables = []string{}
	for _, name := range unresolved {
		if !failed[name] {
			failed[name] = true
			t.trace.UnresolvedVariables = append(t.trace.UnresolvedVariables, name)
		}
	}
	seen := make(map[string]bool, len(resolved))
	t.trace.ResolvedVariables = []string{}
	for _, name := range resolved {
		if !seen[name] && !failed[name] {
			seen[name] = true
			t.trace.ResolvedVariables = append(t.trace.ResolvedVariables, name)
		}
	}

	t.trace.FinalValue = t.mask(finalValue)
	t.trace.Success = len(t.trace.Errors) == 0
	t.trace.EndTime = t.now()
	return &t.trace
}

func (t *Tracer) mask(s string) string {
	for _, secret := range t.secrets {
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}
