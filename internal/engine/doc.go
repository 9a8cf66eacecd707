// Package engine resolves varscope templates.
//
// A Resolver expands a template string against an immutable
// ResolutionContext, returning the final value and a trace of every lookup,
// function call and cache event.
//
// ARCHITECTURE:
//
// Per-call state:
// Each Resolve owns its dependency graph, tracer and error list. Nothing
// about one call is visible to another except through the cache.
//
// Resolution Flow:
//  1. template.Parse splits the template into literals and references
//  2. graph.Build walks the references transitively; graph.DetectCycles
//     names the cycles and graph.Membership extends them to every member
//     of a cyclic component, all failed before expansion starts
//  3. Each reference is expanded in template order, recursing into values
//     that themselves contain references
//  4. Failed references become {{UNRESOLVED:name}} markers in the output,
//     each located by Result.Markers
//
// FAILURE POLICY:
//
// Errors are local to the reference that caused them, except DEPTH_EXCEEDED,
// which fails the whole chain and is reported once on the top-level
// reference. A variable whose value contains a failed nested reference
// still resolves (with the marker inside) but is never cached.
//
// CACHING:
//
// Values are cached by (name, context fingerprint) together with their
// height, the number of levels their expansion needed, so the depth budget
// applies to cached and fresh values identically. Values built from a
// function call or containing a marker are never cached.
package engine
