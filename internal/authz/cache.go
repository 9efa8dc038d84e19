package authz

import (
	"strings"
	"sync"
	"time"
)

// Cache stores resolved effective permission sets keyed by
// "userID:requestSignature". Implementations must be safe for concurrent
// use; the resolver invalidates by user-ID prefix on every mutation.
//
// Writes are versioned: callers capture the prefix generation before
// reading backing state and pass it to Set, which must discard any write
// whose generation predates the prefix's last InvalidatePrefix. A
// resolution that raced with a revocation therefore cannot reinstate the
// revoked state after the invalidation ran.
type Cache interface {
	Get(key string) ([]string, bool)
	Set(key string, codes []string, ttl time.Duration, generation uint64)
	Generation(prefix string) uint64
	InvalidatePrefix(prefix string)
}

type cacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// MemoryCache is a mutex-guarded in-memory Cache. Entries expire after
// their TTL and are dropped lazily on read.
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[string]cacheEntry
	generations map[string]uint64
	now         func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:     make(map[string]cacheEntry),
		generations: make(map[string]uint64),
		now:         time.Now,
	}
}

// keyPrefix returns the user-ID prefix of a cache key, up to and
// including the first separator.
func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1]
	}

	return key
}

// Get returns the cached codes for a key, if present and unexpired. The
// returned slice is a copy; callers may not mutate cached state.
func (c *MemoryCache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.expiresAt.After(c.now()) {
		c.mu.Lock()
		// re-check under the write lock; a Set may have raced in
		if current, still := c.entries[key]; still && !current.expiresAt.After(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		return nil, false
	}

	codes := make([]string, len(entry.codes))
	copy(codes, entry.codes)

	return codes, true
}

// Set stores codes under a key with the given TTL. Writes whose
// generation predates the key prefix's last invalidation are discarded.
func (c *MemoryCache) Set(key string, codes []string, ttl time.Duration, generation uint64) {
	stored := make([]string, len(codes))
	copy(stored, codes)

	c.mu.Lock()
	if generation >= c.generations[keyPrefix(key)] {
		c.entries[key] = cacheEntry{codes: stored, expiresAt: c.now().Add(ttl)}
	}
	c.mu.Unlock()
}

// Generation returns the current write generation for a prefix. Capture
// it before reading the backing store and pass it to Set.
func (c *MemoryCache) Generation(prefix string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.generations[prefix]
}

// InvalidatePrefix removes every entry whose key starts with the prefix
// and bumps the prefix's generation so in-flight writes cannot restore
// the removed entries.
func (c *MemoryCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.generations[prefix]++
	c.mu.Unlock()
}
