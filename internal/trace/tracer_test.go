package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varscope/internal/ir"
)

func fixedNow() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

// =============================================================================
// Clock and ids
// =============================================================================

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.Equal(t, byte('7'), a[14])
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("t1", "t2")
	assert.Equal(t, "t1", g.Generate())
	assert.Equal(t, "t2", g.Generate())
	assert.Equal(t, "t2", g.Generate())
	assert.Equal(t, "trace-fixed", NewFixedGenerator().Generate())
}

// =============================================================================
// Tracer
// =============================================================================

func TestTracer_StepsAndMetrics(t *testing.T) {
	tr := New("id-1", "${A}", ir.ContextSummary{Fingerprint: "fp"}, fixedNow())

	s1 := tr.RecordStep(StepInput{Type: ir.StepCacheMiss, Name: "A", Depth: 1})
	s2 := tr.RecordStep(StepInput{Type: ir.StepVariable, Name: "A", Input: "${B}", Output: "b", Scope: ir.ScopeGlobal, Depth: 1})
	tr.RecordStep(StepInput{Type: ir.StepCacheHit, Name: "B", Depth: 2, CacheHit: true})
	tr.RecordStep(StepInput{Type: ir.StepFunction, Name: "uuid", Output: "x", Depth: 1})
	tr.AddEdge("A", "B")
	tr.AddEdge("A", "B")

	assert.Equal(t, int64(1), s1.StepNumber)
	assert.Equal(t, int64(2), s2.StepNumber)

	out := tr.Finish("b x", []string{"A"}, nil)
	assert.Equal(t, "id-1", out.ID)
	assert.True(t, out.Success)
	assert.Len(t, out.Steps, 4)
	assert.Equal(t, ir.TraceMetrics{VariableCount: 1, FunctionCount: 1, MaxDepth: 2, CacheHits: 1, CacheMisses: 1}, out.Metrics)
	assert.Equal(t, []ir.Edge{{From: "A", To: "B"}}, out.Dependencies)
	assert.True(t, out.EndTime.After(out.StartTime))
	assert.Equal(t, "fp", out.Context.Fingerprint)

	for i := 1; i < len(out.Steps); i++ {
		assert.Greater(t, out.Steps[i].StepNumber, out.Steps[i-1].StepNumber)
	}
}

func TestTracer_FinishKeepsSetsDisjoint(t *testing.T) {
	tr := New("id", "", ir.ContextSummary{}, fixedNow())
	tr.AddError(ir.TraceError{Code: "UNDEFINED_VARIABLE", Name: "X", Message: "x"})

	out := tr.Finish("", []string{"A", "X", "A", "B"}, []string{"X", "X"})
	assert.Equal(t, []string{"A", "B"}, out.ResolvedVariables)
	assert.Equal(t, []string{"X"}, out.UnresolvedVariables)
	assert.False(t, out.Success)
	assert.Equal(t, []string{"UNDEFINED_VARIABLE"}, out.ErrorCodes())
}

func TestTracer_FinishEmptySlicesNotNil(t *testing.T) {
	out := New("id", "plain", ir.ContextSummary{}, nil).Finish("plain", nil, nil)
	assert.NotNil(t, out.ResolvedVariables)
	assert.NotNil(t, out.UnresolvedVariables)
	assert.NotNil(t, out.Errors)
	assert.NotNil(t, out.Steps)
	assert.True(t, out.Success)
}

func TestTracer_FinishIdempotent(t *testing.T) {
	tr := New("id", "", ir.ContextSummary{}, fixedNow())
	first := tr.Finish("a", []string{"A"}, nil)
	second := tr.Finish("b", nil, []string{"A"})
	assert.Same(t, first, second)
	assert.Equal(t, "a", second.FinalValue)
}

func TestTracer_MasksSecrets(t *testing.T) {
	tr := New("id", "${AUTH}", ir.ContextSummary{}, fixedNow())
	tr.AddSecret("s3cr3t")
	tr.AddSecret("")

	step := tr.RecordStep(StepInput{Type: ir.StepVariable, Name: "TOKEN", Input: "s3cr3t", Output: "s3cr3t"})
	assert.Equal(t, Mask, step.Input)
	assert.Equal(t, Mask, step.Output)

	step = tr.RecordStep(StepInput{Type: ir.StepVariable, Name: "AUTH", Input: "Bearer ${TOKEN}", Output: "Bearer s3cr3t"})
	assert.Equal(t, "Bearer ${TOKEN}", step.Input)
	assert.Equal(t, "Bearer "+Mask, step.Output)

	out := tr.Finish("Bearer s3cr3t", []string{"AUTH", "TOKEN"}, nil)
	assert.Equal(t, "Bearer "+Mask, out.FinalValue)
}

func TestTracer_MasksLongestSecretFirst(t *testing.T) {
	tr := New("id", "${S}", ir.ContextSummary{}, fixedNow())
	tr.AddSecret("pub")
	tr.AddSecret("pub-tail")
	tr.AddSecret("pub")

	step := tr.RecordStep(StepInput{Type: ir.StepNested, Name: "S", Input: "${A}-tail", Output: "x pub-tail pub"})
	assert.Equal(t, "x "+Mask+" "+Mask, step.Output)
	assert.Equal(t, "${A}-tail", step.Input)
}

// =============================================================================
// Summary
// =============================================================================

func TestSummary(t *testing.T) {
	tr := New("trace-1", "Bearer ${TOKEN}", ir.ContextSummary{ProfileID: "p1"}, fixedNow())
	tr.RecordStep(StepInput{Type: ir.StepVariable, Name: "TOKEN", Output: "abc", Scope: ir.ScopeProfile, Depth: 1})
	tr.RecordStep(StepInput{Type: ir.StepVariable, Name: "NOPE", Depth: 1, Error: "undefined variable NOPE", ErrorCode: "UNDEFINED_VARIABLE"})
	tr.AddError(ir.TraceError{Code: "UNDEFINED_VARIABLE", Name: "NOPE", Message: "undefined variable NOPE"})
	out := tr.Finish("Bearer abc", []string{"TOKEN"}, []string{"NOPE"})

	s := Summary(out)
	assert.Contains(t, s, "trace trace-1 (failed")
	assert.Contains(t, s, "profile=p1 rule=-")
	assert.Contains(t, s, `TOKEN [profile] => "abc"`)
	assert.Contains(t, s, "!! undefined variable NOPE")
	assert.Contains(t, s, "unresolved: NOPE")
	assert.Contains(t, s, "error [UNDEFINED_VARIABLE]")

	require.Len(t, StepsOfType(out, ir.StepVariable), 2)
	assert.Empty(t, StepsOfType(out, ir.StepFunction))
}
