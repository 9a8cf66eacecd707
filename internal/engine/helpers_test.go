package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/trace"
)

func v(name, value string) ir.Variable {
	return ir.Variable{Name: name, Value: value, Enabled: true}
}

func globals(vars ...ir.Variable) *ir.ResolutionContext {
	return ir.MustResolutionContext(ir.ContextSpec{Global: vars})
}

func testNow() func() time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Microsecond)
		return t
	}
}

func newTestResolver(opts ...Option) *Resolver {
	base := []Option{
		WithIDGenerator(trace.NewFixedGenerator("trace-1", "trace-2", "trace-3")),
		WithNow(testNow()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func stepTypes(tr *ir.ResolutionTrace) []ir.StepType {
	out := make([]ir.StepType, len(tr.Steps))
	for i, s := range tr.Steps {
		out[i] = s.Type
	}
	return out
}
