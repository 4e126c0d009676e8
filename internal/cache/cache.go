// Package cache provides the process-wide analysis result cache.
//
// The cache is an in-memory key/value store with a single uniform TTL.
// Payloads are stored msgpack-encoded and decoded into the caller's
// destination on every Get, so callers always receive an independent copy -
// mutating a returned payload can never corrupt the cached entry.
//
// Key namespaces keep per-symbol analyses and portfolio-wide opportunity
// lists independently invalidatable:
//
//	analysis:<symbol>
//	opportunities:<buy|sell>
package cache

import (
	"sync"
	"time"

	"github.com/kpetrou/signalfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Key namespaces for the two cached result families.
const (
	NamespaceAnalysis      = "analysis:"
	NamespaceOpportunities = "opportunities:"
)

// entry is a stored payload with its creation timestamp
type entry struct {
	payload   []byte
	createdAt time.Time
}

// EntryStats describes one live cache entry for observability
type EntryStats struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age"`
	CreatedAt time.Time     `json:"created_at"`
}

// Stats summarizes the cache contents
type Stats struct {
	Entries int          `json:"entries"`
	TTL     string       `json:"ttl"`
	Items   []EntryStats `json:"items"`
}

// Cache is a TTL-bounded in-memory store. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time // Injectable clock for tests
	log     zerolog.Logger
}

// New creates a cache with the given uniform TTL
func New(ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "cache").Logger(),
	}
}

// Set inserts or replaces the payload for key, stamping createdAt = now.
// The payload is msgpack-encoded at insert time.
func (c *Cache) Set(key string, payload interface{}) error {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: data, createdAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Get decodes the cached payload for key into dest.
// Returns domain.ErrCacheMiss when the key is absent; an expired entry is
// evicted and reported as a miss.
func (c *Cache) Get(key string, dest interface{}) error {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return domain.ErrCacheMiss
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it
		if cur, still := c.entries[key]; still && c.now().Sub(cur.createdAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return domain.ErrCacheMiss
	}

	return msgpack.Unmarshal(e.payload, dest)
}

// Invalidate removes a single key
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key in a namespace
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// InvalidateAll removes every entry
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Prune evicts expired entries eagerly and returns the number removed.
// The read path already evicts lazily; this keeps memory bounded when keys
// stop being requested.
func (c *Cache) Prune() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("Pruned expired cache entries")
	}
	return removed
}

// Stats returns the entry count and age of each live entry
func (c *Cache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]EntryStats, 0, len(c.entries))
	for key, e := range c.entries {
		items = append(items, EntryStats{
			Key:       key,
			Age:       now.Sub(e.createdAt),
			CreatedAt: e.createdAt,
		})
	}

	return Stats{
		Entries: len(items),
		TTL:     c.ttl.String(),
		Items:   items,
	}
}
