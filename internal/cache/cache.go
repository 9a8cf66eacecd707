// Package cache holds resolved variable values across resolve calls.
//
// Entries are keyed by (variable name, context fingerprint). Only variable
// lookups are cached; function results never are.
package cache

import (
	"time"

	"github.com/roach88/varscope/internal/ir"
)

// Cache is the store the resolver consults before expanding a variable.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the entry for name under fingerprint, or false on a miss
	// or expiry.
	Get(name, fingerprint string) (Entry, bool)

	// Put stores entry, replacing any previous value.
	Put(name, fingerprint string, entry Entry)

	// Invalidate removes every entry for name, under any fingerprint, and
	// every entry whose value was built from name. It returns the number of
	// entries removed.
	Invalidate(name string, scope ir.Scope, ownerID string) int

	// Clear drops all entries.
	Clear()
}

// Entry is a fully expanded variable value.
//
// Height is the length of the reference chain needed to produce Value: 1
// for a value with no references, 1 + the tallest child otherwise. The
// resolver compares it against its depth budget so a cached value is
// accepted exactly when a fresh expansion would be.
//
// Dependencies lists every variable name Value was transitively built from.
// Secrets lists the secret values, raw or expanded, that Value embeds, so a
// trace recording a hit can mask them without re-expanding.
type Entry struct {
	Value        string
	Height       int
	Dependencies []string
	Secrets      []string
	StoredAt     time.Time
}

// DependsOn reports whether name is among the entry's dependencies.
func (e Entry) DependsOn(name string) bool {
	for _, d := range e.Dependencies {
		if d == name {
			return true
		}
	}
	return false
}

// Config controls the in-memory cache.
type Config struct {
	// Shards is the number of independently locked partitions.
	Shards int

	// TTL expires entries after the given age. Zero means entries live
	// until invalidated.
	TTL time.Duration

	// Now is the clock used for StoredAt and TTL checks.
	Now func() time.Time
}

// DefaultConfig returns 16 shards with no TTL.
func DefaultConfig() Config {
	return Config{
		Shards: 16,
		TTL:    0,
		Now:    time.Now,
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	Expirations   int64 `json:"expirations"`
	Entries       int   `json:"entries"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
