// Package ir holds the data model shared by every varscope package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - ResolutionContext is immutable after construction and pre-filtered to
//     enabled variables, one explicit list per scope
//   - Traces are plain data: append-only steps, snake_case JSON tags
//   - Context fingerprints use RFC 8785 canonical JSON + SHA-256 with domain
//     separation so equal name/value mappings always hash equal
package ir
