// Package store provides SQLite-backed storage for variable definitions
// and resolution traces.
//
// The engine never reads the store directly: callers load a
// ResolutionContext with LoadContext and pass it to the resolver. Writes
// notify an Invalidator (normally the resolver's cache) so no resolve call
// observes a changed value through a stale cache entry.
//
// # Tables
//
//   - variables: keyed by (scope, owner_id, name); owner_id is '' for
//     system and global scope
//   - traces: one row per saved resolve call, with the full trace as JSON
//
// # Ordering
//
//   - Variables are listed by scope precedence, then owner, then insertion
//     seq, so contexts load in a stable order
//   - Traces are listed newest first by start time, then id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
