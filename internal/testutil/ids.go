package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator produces prefix-1, prefix-2, ... trace ids.
//
// The same scenario with a fresh SequentialIDGenerator produces byte-identical
// traces, which is what golden comparison relies on.
//
// Implements trace.IDGenerator. Safe for concurrent use.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix defaults
// to "trace".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "trace"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
