package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/varscope/internal/ir"
)

// Header is one request header whose value is a template.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderResult is the resolved form of one Header.
type HeaderResult struct {
	Name    string              `json:"name"`
	Value   string              `json:"value"`
	Markers []Marker            `json:"markers,omitempty"`
	Trace   *ir.ResolutionTrace `json:"trace"`
	Errors  []*ResolutionError  `json:"-"`
}

// ResolveHeaders resolves every header value concurrently against the same
// context. Results are returned in input order. Resolution failures are
// reported per header; the returned error is non-nil only for a nil
// context or a cancelled ctx.
func (r *Resolver) ResolveHeaders(ctx context.Context, headers []Header, rctx *ir.ResolutionContext) ([]HeaderResult, error) {
	if rctx == nil {
		return nil, ErrNilContext
	}
	results := make([]HeaderResult, len(headers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, h := range headers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.Resolve(h.Value, rctx)
			if err != nil {
				return fmt.Errorf("header %s: %w", h.Name, err)
			}
			results[i] = HeaderResult{Name: h.Name, Value: res.Value, Markers: res.Markers, Trace: res.Trace, Errors: res.Errors}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
