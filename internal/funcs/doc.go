// Package funcs is the function library invoked by ${name(args)} references.
//
// Functions are synchronous and perform no I/O. They may depend on time or
// randomness, so their results are never cached: every occurrence in a
// template is a fresh invocation.
package funcs
