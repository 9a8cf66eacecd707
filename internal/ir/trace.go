package ir

import "time"

// StepType categorizes a resolution step.
type StepType string

const (
	StepVariable  StepType = "variable"
	StepFunction  StepType = "function"
	StepNested    StepType = "nested"
	StepCacheHit  StepType = "cache_hit"
	StepCacheMiss StepType = "cache_miss"
)

// ResolutionStep is one immutable record in a trace.
// StepNumber is strictly increasing within a trace.
type ResolutionStep struct {
	StepNumber    int64             `json:"step_number"`
	Type          StepType          `json:"type"`
	Name          string            `json:"name"`
	Input         string            `json:"input"`
	Output        string            `json:"output"`
	Scope         Scope             `json:"scope,omitempty"`
	Depth         int               `json:"depth"`
	ExecutionTime time.Duration     `json:"execution_time_ns"`
	CacheHit      bool              `json:"cache_hit,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorCode     string            `json:"error_code,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ExecutionTimeMs returns the step duration in fractional milliseconds.
func (s ResolutionStep) ExecutionTimeMs() float64 {
	return float64(s.ExecutionTime) / float64(time.Millisecond)
}

// Span is a half-open byte range [Start, End) within a template.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TraceError is the serialisable form of a resolution error.
type TraceError struct {
	Code    string   `json:"code"`
	Name    string   `json:"name,omitempty"`
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
	Span    *Span    `json:"span,omitempty"`
}

// TraceMetrics summarizes a resolution pass.
type TraceMetrics struct {
	VariableCount int `json:"variable_count"`
	FunctionCount int `json:"function_count"`
	MaxDepth      int `json:"max_depth"`
	CacheHits     int `json:"cache_hits"`
	CacheMisses   int `json:"cache_misses"`
}

// ContextSummary describes the context a trace was produced against.
type ContextSummary struct {
	ProfileID      string        `json:"profile_id,omitempty"`
	RuleID         string        `json:"rule_id,omitempty"`
	Fingerprint    string        `json:"fingerprint"`
	VariableCounts map[Scope]int `json:"variable_counts"`
}

// Edge is one dependency edge: From's value references To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ResolutionTrace is the complete record of one resolve call.
//
// INVARIANTS:
//   - ResolvedVariables and UnresolvedVariables are disjoint
//   - Success == (len(Errors) == 0)
type ResolutionTrace struct {
	ID                  string           `json:"id"`
	OriginalTemplate    string           `json:"original_template"`
	FinalValue          string           `json:"final_value"`
	Success             bool             `json:"success"`
	Steps               []ResolutionStep `json:"steps"`
	ResolvedVariables   []string         `json:"resolved_variables"`
	UnresolvedVariables []string         `json:"unresolved_variables"`
	Errors              []TraceError     `json:"errors"`
	Dependencies        []Edge           `json:"dependencies"`
	Metrics             TraceMetrics     `json:"metrics"`
	StartTime           time.Time        `json:"start_time"`
	EndTime             time.Time        `json:"end_time"`
	Context             ContextSummary   `json:"context"`
}

// Duration returns EndTime - StartTime.
func (t *ResolutionTrace) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// ErrorCodes returns the code of every error in order.
func (t *ResolutionTrace) ErrorCodes() []string {
	codes := make([]string, len(t.Errors))
	for i, e := range t.Errors {
		codes[i] = e.Code
	}
	return codes
}
