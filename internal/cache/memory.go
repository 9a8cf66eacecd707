package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/roach88/varscope/internal/ir"
)

// InMemory is a sharded in-process Cache.
//
// Names hash to a shard; every fingerprint for a name lives in the same
// shard, so invalidating one name locks one shard for the direct entries.
// Dependent entries may live anywhere and are found by scanning.
type InMemory struct {
	config Config
	shards []*shard

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
	expirations   atomic.Int64
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry // name -> fingerprint -> entry
}

var _ Cache = (*InMemory)(nil)

// NewInMemory creates an empty cache. Zero fields of config take their
// DefaultConfig values.
func NewInMemory(config Config) *InMemory {
	def := DefaultConfig()
	if config.Shards <= 0 {
		config.Shards = def.Shards
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	c := &InMemory{config: config, shards: make([]*shard, config.Shards)}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]map[string]Entry)}
	}
	return c
}

func (c *InMemory) shardFor(name string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get implements Cache.
func (c *InMemory) Get(name, fingerprint string) (Entry, bool) {
	s := c.shardFor(name)
	s.mu.RLock()
	entry, ok := s.entries[name][fingerprint]
	s.mu.RUnlock()

	if ok && c.expired(entry) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if cur, still := s.entries[name][fingerprint]; still && c.expired(cur) {
			delete(s.entries[name], fingerprint)
			if len(s.entries[name]) == 0 {
				delete(s.entries, name)
			}
			c.expirations.Add(1)
		}
		s.mu.Unlock()
		ok = false
	}

	if !ok {
		c.misses.Add(1)
		return Entry{}, false
	}
	c.hits.Add(1)
	entry.Dependencies = append([]string(nil), entry.Dependencies...)
	entry.Secrets = append([]string(nil), entry.Secrets...)
	return entry, true
}

// Put implements Cache.
func (c *InMemory) Put(name, fingerprint string, entry Entry) {
	entry.Dependencies = append([]string(nil), entry.Dependencies...)
	entry.Secrets = append([]string(nil), entry.Secrets...)
	if entry.StoredAt.IsZero() {
		entry.StoredAt = c.config.Now()
	}
	s := c.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	byFP, ok := s.entries[name]
	if !ok {
		byFP = make(map[string]Entry)
		s.entries[name] = byFP
	}
	byFP[fingerprint] = entry
}

// Invalidate implements Cache. scope and ownerID do not narrow the removal:
// a context holding any definition of name may now resolve differently.
func (c *InMemory) Invalidate(name string, scope ir.Scope, ownerID string) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		if byFP, ok := s.entries[name]; ok {
			removed += len(byFP)
			delete(s.entries, name)
		}
		for n, byFP := range s.entries {
			for fp, entry := range byFP {
				if entry.DependsOn(name) {
					delete(byFP, fp)
					removed++
				}
			}
			if len(byFP) == 0 {
				delete(s.entries, n)
			}
		}
		s.mu.Unlock()
	}
	c.invalidations.Add(int64(removed))
	return removed
}

// Clear implements Cache.
func (c *InMemory) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]map[string]Entry)
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (c *InMemory) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		for _, byFP := range s.entries {
			n += len(byFP)
		}
		s.mu.RUnlock()
	}
	return n
}

// Stats returns a snapshot of the counters.
func (c *InMemory) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Expirations:   c.expirations.Load(),
		Entries:       c.Len(),
	}
}

func (c *InMemory) expired(e Entry) bool {
	return c.config.TTL > 0 && c.config.Now().Sub(e.StoredAt) > c.config.TTL
}
