package engine

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/varscope/internal/cache"
	"github.com/roach88/varscope/internal/funcs"
	"github.com/roach88/varscope/internal/graph"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/scope"
	"github.com/roach88/varscope/internal/template"
	"github.com/roach88/varscope/internal/trace"
)

// DefaultMaxDepth is the default nested reference budget.
const DefaultMaxDepth = 10

// DefaultConcurrency bounds ResolveHeaders fan-out.
const DefaultConcurrency = 8

// Resolver expands templates against a ResolutionContext.
//
// Thread-safety model:
//   - Resolve(): safe from any goroutine; each call owns its graph and tracer
//   - the cache is the only state shared between calls
//   - options must not be changed after New
type Resolver struct {
	maxDepth    int
	cache       cache.Cache
	funcs       *funcs.Registry
	ids         trace.IDGenerator
	now         func() time.Time
	logger      *slog.Logger
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the nested reference budget.
//
// Default: 10 (DefaultMaxDepth). Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		r.maxDepth = depth
	}
}

// WithCache replaces the default in-memory cache. nil disables caching.
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithFunctions replaces the built-in function registry.
func WithFunctions(reg *funcs.Registry) Option {
	return func(r *Resolver) {
		r.funcs = reg
	}
}

// WithIDGenerator sets the trace id source.
func WithIDGenerator(g trace.IDGenerator) Option {
	return func(r *Resolver) {
		r.ids = g
	}
}

// WithNow sets the wall clock used for trace timestamps, step durations and
// the default timestamp() function.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithConcurrency bounds the goroutines ResolveHeaders runs at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// New creates a Resolver. Without options it uses a 16-shard in-memory
// cache, the built-in functions, UUIDv7 trace ids and maxDepth 10.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxDepth:    DefaultMaxDepth,
		cache:       cache.NewInMemory(cache.DefaultConfig()),
		ids:         trace.UUIDv7Generator{},
		now:         time.Now,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDepth < 1 {
		r.maxDepth = DefaultMaxDepth
	}
	if r.concurrency < 1 {
		r.concurrency = DefaultConcurrency
	}
	if r.funcs == nil {
		r.funcs = funcs.NewDefaultRegistry(funcs.WithNow(r.now))
	}
	return r
}

// MaxDepth returns the configured nested reference budget.
func (r *Resolver) MaxDepth() int {
	return r.maxDepth
}

// Cache returns the shared cache, or nil when caching is disabled.
func (r *Resolver) Cache() cache.Cache {
	return r.cache
}

// Functions returns the function registry.
func (r *Resolver) Functions() *funcs.Registry {
	return r.funcs
}

// Invalidate drops cached values for name and everything built from it.
// Callers must invalidate before a changed value becomes visible to new
// resolve calls.
func (r *Resolver) Invalidate(name string, s ir.Scope, ownerID string) int {
	if r.cache == nil {
		return 0
	}
	n := r.cache.Invalidate(name, s, ownerID)
	r.logger.Debug("cache invalidated", "name", name, "scope", s, "owner_id", ownerID, "removed", n)
	return n
}

// ValidateTemplate reports every syntax error in tmpl.
func (r *Resolver) ValidateTemplate(tmpl string) template.ValidationResult {
	return template.Validate(tmpl)
}

// ReferencedVariables returns the variable names tmpl references directly.
func (r *Resolver) ReferencedVariables(tmpl string) ([]string, error) {
	return template.ReferencedVariables(tmpl)
}

// Result is the outcome of a resolve call.
// Value always has a usable string: failed references become markers.
//
// Markers locates every placeholder the resolver substituted into Value.
// Literal text that happens to spell a marker is not listed.
type Result struct {
	Value   string
	Trace   *ir.ResolutionTrace
	Errors  []*ResolutionError
	Markers []Marker
}

// Success reports whether every reference resolved.
func (r *Result) Success() bool {
	return len(r.Errors) == 0
}

// Resolve expands tmpl against rctx.
//
// The algorithm:
//  1. Parse tmpl; a syntax error yields one TEMPLATE_SYNTAX error and the
//     template unchanged
//  2. Build the dependency graph reachable from the template's variables
//     and mark every cycle member unresolved before expanding anything
//  3. Expand references in template order: variables via cache then scope
//     lookup then recursive expansion; functions via the registry, uncached
//  4. Substitute values, or markers for failed references
//  5. Seal the trace
//
// Reference failures never produce a Go error; only a nil context does.
func (r *Resolver) Resolve(tmpl string, rctx *ir.ResolutionContext) (*Result, error) {
	if rctx == nil {
		return nil, ErrNilContext
	}
	p := &pass{
		r:         r,
		ctx:       rctx,
		fp:        rctx.Fingerprint(),
		guard:     newDepthGuard(r.maxDepth),
		tracer:    trace.New(r.ids.Generate(), tmpl, rctx.Summary(), r.now),
		cycleErrs: map[string]*ResolutionError{},
		reported:  map[string]bool{},
	}
	value := p.run(tmpl)
	tr := p.tracer.Finish(value, p.resolved, p.unresolved)

	r.logger.Debug("template resolved",
		"trace_id", tr.ID,
		"success", tr.Success,
		"steps", len(tr.Steps),
		"errors", len(tr.Errors),
		"cache_hits", tr.Metrics.CacheHits,
		"duration", tr.Duration(),
	)
	return &Result{Value: value, Trace: tr, Errors: p.errs, Markers: p.markers}, nil
}

// pass is the per-call state of one Resolve.
type pass struct {
	r      *Resolver
	ctx    *ir.ResolutionContext
	fp     string
	guard  depthGuard
	tracer *trace.Tracer

	cycleErrs map[string]*ResolutionError
	path      []string

	resolved   []string
	unresolved []string
	errs       []*ResolutionError
	markers    []Marker
	reported   map[string]bool
}

// expansion is a fully expanded variable value.
// cacheable is false when the value embeds markers or function output.
// secrets are the secret values, at any nesting level, that value embeds.
type expansion struct {
	value     string
	height    int
	deps      []string
	secrets   []string
	markers   []Marker
	cacheable bool
}

func (e *expansion) addSecret(value string) {
	if value == "" || slices.Contains(e.secrets, value) {
		return
	}
	e.secrets = append(e.secrets, value)
}

func (e *expansion) addDep(name string) {
	for _, d := range e.deps {
		if d == name {
			return
		}
	}
	e.deps = append(e.deps, name)
}

func (p *pass) run(tmpl string) string {
	if !template.HasReferences(tmpl) {
		return tmpl
	}
	segs, err := template.Parse(tmpl)
	if err != nil {
		p.fail(NewSyntaxError("", err))
		return tmpl
	}

	g, _ := graph.Build(template.VariableNames(segs), p.lookupRaw)
	for _, e := range g.EdgeList() {
		p.tracer.AddEdge(e.From, e.To)
	}
	if cycles := graph.DetectCycles(g); len(cycles) > 0 {
		msgs := make([]string, 0, len(cycles))
		members := graph.Membership(g, cycles)
		for _, c := range cycles {
			msgs = append(msgs, c.Message)
			for _, name := range c.Path {
				p.markCycle(name, members[name])
			}
		}
		for _, name := range g.Nodes {
			if c, ok := members[name]; ok {
				p.markCycle(name, c)
			}
		}
		p.r.logger.Warn("circular variable references", "trace_id", p.tracer.ID(), "cycles", msgs)
	}

	var out strings.Builder
	for _, seg := range segs {
		switch seg.Kind {
		case template.Literal:
			out.WriteString(seg.Text)
		case template.Variable:
			exp, verr := p.variable(seg.Name, 1)
			if verr != nil {
				if verr.Code == ErrCodeDepthExceeded {
					p.fail(verr)
				}
				p.markers = writeMarker(&out, p.markers, seg.Name)
				continue
			}
			p.markers = append(p.markers, shiftMarkers(exp.markers, out.Len())...)
			out.WriteString(exp.value)
		case template.Function:
			if v, ok := p.function(seg, 1); ok {
				out.WriteString(v)
			} else {
				p.markers = writeMarker(&out, p.markers, seg.Name+"()")
			}
		}
	}
	return out.String()
}

// variable expands name at depth. A non-nil error means the caller writes
// a marker. Depth errors are attributed to the top-level reference and
// returned unrecorded so that only the outermost frame reports them; all
// other errors are recorded here.
func (p *pass) variable(name string, depth int) (expansion, *ResolutionError) {
	p.path = append(p.path, name)
	defer func() { p.path = p.path[:len(p.path)-1] }()

	if cerr, ok := p.cycleErrs[name]; ok {
		p.step(trace.StepInput{Type: ir.StepVariable, Name: name, Depth: depth}, cerr)
		return expansion{}, cerr
	}
	if derr := p.guard.check(p.path[0], depth, 1, p.chain()); derr != nil {
		p.step(trace.StepInput{Type: ir.StepVariable, Name: name, Depth: depth}, derr)
		return expansion{}, derr
	}

	res := scope.Lookup(name, p.ctx)
	if res.Found && res.Variable.IsSecret {
		p.tracer.AddSecret(res.Value)
	}

	if p.r.cache != nil {
		start := p.r.now()
		entry, hit := p.r.cache.Get(name, p.fp)
		if hit {
			for _, secret := range entry.Secrets {
				p.tracer.AddSecret(secret)
			}
			in := trace.StepInput{
				Type:     ir.StepCacheHit,
				Name:     name,
				Output:   entry.Value,
				Depth:    depth,
				Duration: p.r.now().Sub(start),
				CacheHit: true,
				Metadata: map[string]string{"height": strconv.Itoa(entry.Height)},
			}
			if derr := p.guard.check(p.path[0], depth, entry.Height, p.chain()); derr != nil {
				p.step(in, derr)
				return expansion{}, derr
			}
			p.tracer.RecordStep(in)
			p.resolved = append(p.resolved, name)
			return expansion{value: entry.Value, height: entry.Height, deps: entry.Dependencies, secrets: entry.Secrets, cacheable: true}, nil
		}
		p.tracer.RecordStep(trace.StepInput{Type: ir.StepCacheMiss, Name: name, Depth: depth, Duration: p.r.now().Sub(start)})
	}

	start := p.r.now()
	if !res.Found {
		uerr := NewUndefinedError(name, p.chain(), depth)
		p.step(trace.StepInput{Type: ir.StepVariable, Name: name, Depth: depth, Duration: p.r.now().Sub(start)}, uerr)
		p.fail(uerr)
		return expansion{}, uerr
	}

	raw := res.Value
	if !template.HasReferences(raw) {
		p.tracer.RecordStep(trace.StepInput{
			Type: ir.StepVariable, Name: name, Input: raw, Output: raw,
			Scope: res.Scope, Depth: depth, Duration: p.r.now().Sub(start),
		})
		exp := expansion{value: raw, height: 1, cacheable: true}
		if res.Variable.IsSecret {
			exp.addSecret(raw)
		}
		p.store(name, exp)
		p.resolved = append(p.resolved, name)
		return exp, nil
	}

	segs, perr := template.Parse(raw)
	if perr != nil {
		serr := NewSyntaxError(name, perr)
		serr.Path, serr.Depth = p.chain(), depth
		p.step(trace.StepInput{Type: ir.StepVariable, Name: name, Input: raw, Scope: res.Scope, Depth: depth}, serr)
		p.fail(serr)
		return expansion{}, serr
	}

	exp := expansion{height: 1, cacheable: true}
	var out strings.Builder
	for _, seg := range segs {
		switch seg.Kind {
		case template.Literal:
			out.WriteString(seg.Text)
		case template.Variable:
			exp.addDep(seg.Name)
			child, cerr := p.variable(seg.Name, depth+1)
			if cerr != nil {
				if cerr.Code == ErrCodeDepthExceeded {
					return expansion{}, cerr
				}
				exp.cacheable = false
				exp.markers = writeMarker(&out, exp.markers, seg.Name)
				continue
			}
			for _, d := range child.deps {
				exp.addDep(d)
			}
			for _, secret := range child.secrets {
				exp.addSecret(secret)
			}
			exp.height = max(exp.height, child.height+1)
			exp.cacheable = exp.cacheable && child.cacheable
			exp.markers = append(exp.markers, shiftMarkers(child.markers, out.Len())...)
			out.WriteString(child.value)
		case template.Function:
			exp.cacheable = false
			if v, ok := p.function(seg, depth+1); ok {
				out.WriteString(v)
			} else {
				exp.markers = writeMarker(&out, exp.markers, seg.Name+"()")
			}
		}
	}
	exp.value = out.String()
	if res.Variable.IsSecret {
		exp.addSecret(raw)
		exp.addSecret(exp.value)
		p.tracer.AddSecret(exp.value)
	}
	p.tracer.RecordStep(trace.StepInput{
		Type: ir.StepNested, Name: name, Input: raw, Output: exp.value,
		Scope: res.Scope, Depth: depth, Duration: p.r.now().Sub(start),
		Metadata: map[string]string{"height": strconv.Itoa(exp.height)},
	})
	p.store(name, exp)
	p.resolved = append(p.resolved, name)
	return exp, nil
}

// function invokes a call segment. On failure it records the error and
// returns the function marker.
func (p *pass) function(seg template.Segment, depth int) (string, bool) {
	start := p.r.now()
	out, err := p.r.funcs.Invoke(seg.Name, seg.Args)
	in := trace.StepInput{Type: ir.StepFunction, Name: seg.Name, Input: callText(seg), Output: out, Depth: depth, Duration: p.r.now().Sub(start)}
	if err != nil {
		ferr := NewFunctionError(seg.Name, depth, err)
		p.step(in, ferr)
		p.fail(ferr)
		return FunctionMarker(seg.Name), false
	}
	p.tracer.RecordStep(in)
	return out, true
}

func (p *pass) store(name string, exp expansion) {
	if p.r.cache == nil || !exp.cacheable {
		return
	}
	p.r.cache.Put(name, p.fp, cache.Entry{
		Value:        exp.value,
		Height:       exp.height,
		Dependencies: exp.deps,
		Secrets:      exp.secrets,
		StoredAt:     p.r.now(),
	})
}

// markCycle fails name as a member of cycle, once.
func (p *pass) markCycle(name string, cycle graph.Cycle) {
	if _, done := p.cycleErrs[name]; done {
		return
	}
	cerr := NewCycleError(name, cycle)
	p.cycleErrs[name] = cerr
	p.fail(cerr)
}

// step records in annotated with err.
func (p *pass) step(in trace.StepInput, err *ResolutionError) {
	in.Error = err.Message
	in.ErrorCode = string(err.Code)
	p.tracer.RecordStep(in)
}

// fail records err once per (code, name, message) and marks its name
// unresolved. Function failures are not variables and stay off the list.
func (p *pass) fail(err *ResolutionError) {
	key := string(err.Code) + "\x00" + err.Name + "\x00" + err.Message
	if p.reported[key] {
		return
	}
	p.reported[key] = true
	p.errs = append(p.errs, err)
	p.tracer.AddError(err.TraceError())
	if err.Name != "" && err.Code != ErrCodeFunctionInvocation {
		p.unresolved = append(p.unresolved, err.Name)
	}
}

func (p *pass) lookupRaw(name string) (string, bool) {
	res := scope.Lookup(name, p.ctx)
	return res.Value, res.Found
}

func (p *pass) chain() []string {
	return append([]string(nil), p.path...)
}

func callText(seg template.Segment) string {
	args := make([]string, len(seg.Args))
	for i, a := range seg.Args {
		args[i] = a.String()
	}
	return seg.Name + "(" + strings.Join(args, ", ") + ")"
}
