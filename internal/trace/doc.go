// Package trace records what a single resolve call did.
//
// A Tracer is created per call and never shared. It is a pure data
// producer: it accumulates steps, errors and dependency edges and hands
// back an immutable *ir.ResolutionTrace from Finish. Nothing it records
// feeds back into resolution.
//
// Step numbers come from a per-tracer monotonic Clock, so steps are
// strictly ordered within a trace even when timings collide.
package trace
