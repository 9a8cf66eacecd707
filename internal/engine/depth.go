package engine

// depthGuard enforces the nested reference budget.
//
// A top-level reference sits at depth 1. A value with height h placed at
// depth d occupies levels d through d+h-1; it is acceptable only when that
// last level is within max. Fresh lookups check height 1 before descending;
// cached values carry their height so a hit is accepted exactly when a
// fresh expansion would have been.
type depthGuard struct {
	max int
}

func newDepthGuard(max int) depthGuard {
	return depthGuard{max: max}
}

// reach returns the deepest level a value of height h at depth d occupies.
func (g depthGuard) reach(depth, height int) int {
	if height < 1 {
		height = 1
	}
	return depth + height - 1
}

// check returns a DEPTH_EXCEEDED error for name when the value would reach
// past the limit.
func (g depthGuard) check(name string, depth, height int, path []string) *ResolutionError {
	if reach := g.reach(depth, height); reach > g.max {
		return NewDepthError(name, reach, g.max, path)
	}
	return nil
}
