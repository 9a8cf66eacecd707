package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/varscope/internal/cache"
	"github.com/roach88/varscope/internal/engine"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/logger"
	"github.com/roach88/varscope/internal/store"
	"github.com/roach88/varscope/internal/testutil"
	"github.com/roach88/varscope/internal/varfile"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and trace ids.
type Harness struct {
	store    *store.Store
	resolver *engine.Resolver
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
	scenario *Scenario
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Create fresh in-memory database and a resolver wired to it
//  2. Store the scenario's variables
//  3. For each step: apply writes, load the context, resolve
//  4. Check expect clauses and assertions
//  5. Return result with pass/fail, traces, errors, and digest
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	log := logger.Discard()

	var c cache.Cache
	if !scenario.NoCache {
		c = cache.NewInMemory(cache.Config{Now: clock.Now})
	}
	resolver := engine.New(
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("trace")),
		engine.WithNow(clock.Now),
		engine.WithLogger(log),
		engine.WithCache(c),
		engine.WithMaxDepth(scenario.MaxDepth),
	)
	st.SetInvalidator(resolver)

	h := &Harness{
		store:    st,
		resolver: resolver,
		clock:    clock,
		logger:   log,
		scenario: scenario,
	}

	ctx := context.Background()
	if err := h.apply(ctx, &scenario.Variables); err != nil {
		return nil, fmt.Errorf("failed to store variables: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for i, step := range scenario.Steps {
		for _, msg := range checkExpect(i, step.Expect, result.Steps[i]) {
			result.AddError(msg)
		}
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	digest, err := ir.TraceDigest(Snapshot(scenario.Name, result))
	if err != nil {
		return nil, fmt.Errorf("failed to digest traces: %w", err)
	}
	result.Digest = digest
	return result, nil
}

// executeStep applies the step's writes and resolves its template.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Set != nil {
		if err := h.apply(ctx, step.Set); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	for _, ref := range step.Delete {
		owner := ref.OwnerID
		if owner == "" {
			owner = h.defaultOwner(ref.Scope)
		}
		if err := h.store.DeleteVariable(ctx, ref.Scope, owner, ref.Name); err != nil {
			return fmt.Errorf("delete %s: %w", ref.Name, err)
		}
	}

	profileID := firstNonEmpty(step.ProfileID, h.scenario.Variables.ProfileID)
	ruleID := firstNonEmpty(step.RuleID, h.scenario.Variables.RuleID)
	rctx, err := h.store.LoadContext(ctx, profileID, ruleID)
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}

	res, err := h.resolver.Resolve(step.Template, rctx)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	result.AddStep(step.Template, res.Value, res.Trace)

	h.logger.Info("step resolved",
		"step", i,
		"trace_id", res.Trace.ID,
		"success", res.Trace.Success,
	)
	return nil
}

// apply writes every variable of doc. Missing profile and rule ids default
// to the scenario's.
func (h *Harness) apply(ctx context.Context, doc *varfile.Document) error {
	d := *doc
	d.ProfileID = firstNonEmpty(d.ProfileID, h.scenario.Variables.ProfileID)
	d.RuleID = firstNonEmpty(d.RuleID, h.scenario.Variables.RuleID)
	set, err := d.Set(h.scenario.Name)
	if err != nil {
		return err
	}
	for _, v := range set.Owned() {
		v.UpdatedAt = h.clock.Now()
		if err := h.store.PutVariable(ctx, v); err != nil {
			return fmt.Errorf("put %s: %w", v.Key(), err)
		}
	}
	return nil
}

func (h *Harness) defaultOwner(sc ir.Scope) string {
	switch sc {
	case ir.ScopeProfile:
		return h.scenario.Variables.ProfileID
	case ir.ScopeRule:
		return h.scenario.Variables.RuleID
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
