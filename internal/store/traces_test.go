package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varscope/internal/ir"
)

func testTrace(id string, start time.Time, success bool) *ir.ResolutionTrace {
	tr := &ir.ResolutionTrace{
		ID:               id,
		OriginalTemplate: "${host}/api",
		FinalValue:       "example.com/api",
		Success:          success,
		Steps: []ir.ResolutionStep{
			{StepNumber: 1, Type: ir.StepVariable, Name: "host", Input: "host", Output: "example.com", Scope: ir.ScopeGlobal, Depth: 1},
		},
		ResolvedVariables:   []string{"host"},
		UnresolvedVariables: []string{},
		Errors:              []ir.TraceError{},
		Dependencies:        []ir.Edge{},
		StartTime:           start,
		EndTime:             start.Add(3 * time.Millisecond),
		Context:             ir.ContextSummary{ProfileID: "p1", Fingerprint: "fp"},
	}
	if !success {
		tr.Errors = []ir.TraceError{{Code: "UNDEFINED_VARIABLE", Name: "host", Message: "variable host is not defined in any scope"}}
	}
	return tr
}

func TestSaveTrace_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tr := testTrace("t1", testTime, true)
	require.NoError(t, s.SaveTrace(ctx, tr))
	require.NoError(t, s.SaveTrace(ctx, tr), "second save should be a no-op")

	got, err := s.GetTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tr.FinalValue, got.FinalValue)
	assert.Equal(t, tr.Steps, got.Steps)
	assert.Equal(t, 3*time.Millisecond, got.Duration())
}

func TestSaveTrace_RequiresID(t *testing.T) {
	s := createTestStore(t)
	err := s.SaveTrace(context.Background(), &ir.ResolutionTrace{})
	assert.Error(t, err)
}

func TestGetTrace_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetTrace(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTraces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrace(ctx, testTrace("old", testTime, true)))
	require.NoError(t, s.SaveTrace(ctx, testTrace("new", testTime.Add(time.Minute), false)))
	other := testTrace("other", testTime.Add(2*time.Minute), true)
	other.Context.ProfileID = "p2"
	other.Context.RuleID = "r9"
	require.NoError(t, s.SaveTrace(ctx, other))

	all, err := s.ListTraces(ctx, TraceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "other", all[0].ID)
	assert.Equal(t, 1, all[0].StepCount)

	p1, err := s.ListTraces(ctx, TraceFilter{ProfileID: "p1"})
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "new", p1[0].ID)
	assert.False(t, p1[0].Success)
	assert.Equal(t, 1, p1[0].ErrorCount)

	failed, err := s.ListTraces(ctx, TraceFilter{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "new", failed[0].ID)

	byRule, err := s.ListTraces(ctx, TraceFilter{RuleID: "r9"})
	require.NoError(t, err)
	require.Len(t, byRule, 1)
	assert.Equal(t, "other", byRule[0].ID)

	none, err := s.ListTraces(ctx, TraceFilter{ProfileID: "p2", FailedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, none)

	limited, err := s.ListTraces(ctx, TraceFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPruneTraces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrace(ctx, testTrace("old", testTime, true)))
	require.NoError(t, s.SaveTrace(ctx, testTrace("new", testTime.Add(time.Hour), true)))

	n, err := s.PruneTraces(ctx, testTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetTrace(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTrace(ctx, "new")
	assert.NoError(t, err)
}
