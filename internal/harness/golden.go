package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/varscope/internal/ir"
)

// Snapshot converts a result into a map for canonical JSON serialization.
//
// Only behavior is captured: timestamps, durations, fingerprints and error
// messages are left out so that goldens survive wording changes.
func Snapshot(name string, result *Result) map[string]any {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = map[string]any{
			"template": s.Template,
			"value":    s.Value,
			"trace":    traceSnapshot(s.Trace),
		}
	}
	return map[string]any{
		"scenario_name": name,
		"steps":         steps,
	}
}

func traceSnapshot(tr *ir.ResolutionTrace) map[string]any {
	steps := make([]any, len(tr.Steps))
	for i, st := range tr.Steps {
		m := map[string]any{
			"n":     st.StepNumber,
			"type":  string(st.Type),
			"name":  st.Name,
			"depth": st.Depth,
		}
		if st.Output != "" {
			m["output"] = st.Output
		}
		if st.Scope != "" {
			m["scope"] = string(st.Scope)
		}
		if st.ErrorCode != "" {
			m["error_code"] = st.ErrorCode
		}
		steps[i] = m
	}

	errs := make([]any, len(tr.Errors))
	for i, e := range tr.Errors {
		errs[i] = map[string]any{"code": e.Code, "name": e.Name}
	}
	deps := make([]any, len(tr.Dependencies))
	for i, e := range tr.Dependencies {
		deps[i] = map[string]any{"from": e.From, "to": e.To}
	}

	return map[string]any{
		"id":           tr.ID,
		"final_value":  tr.FinalValue,
		"success":      tr.Success,
		"steps":        steps,
		"resolved":     tr.ResolvedVariables,
		"unresolved":   tr.UnresolvedVariables,
		"errors":       errs,
		"dependencies": deps,
		"metrics": map[string]any{
			"variable_count": tr.Metrics.VariableCount,
			"function_count": tr.Metrics.FunctionCount,
			"max_depth":      tr.Metrics.MaxDepth,
			"cache_hits":     tr.Metrics.CacheHits,
			"cache_misses":   tr.Metrics.CacheMisses,
		},
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshotJSON, err := ir.MarshalCanonical(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshotJSON)
	return nil
}
