package authz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheSetGet(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("1:abc", []string{"invoice.read"}, time.Minute, 0)

	codes, ok := cache.Get("1:abc")
	assert.True(t, ok)
	assert.Equal(t, []string{"invoice.read"}, codes)

	_, ok = cache.Get("1:other")
	assert.False(t, ok)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set("1:abc", []string{"invoice.read"}, time.Minute, 0)

	codes, ok := cache.Get("1:abc")
	assert.True(t, ok)

	codes[0] = "mutated"

	again, ok := cache.Get("1:abc")
	assert.True(t, ok)
	assert.Equal(t, []string{"invoice.read"}, again)
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	cache := NewMemoryCache()

	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("1:abc", []string{"invoice.read"}, 5*time.Minute, 0)

	_, ok := cache.Get("1:abc")
	assert.True(t, ok)

	now = now.Add(5*time.Minute + time.Second)

	_, ok = cache.Get("1:abc")
	assert.False(t, ok, "entry must not outlive its TTL")
}

func TestMemoryCacheInvalidatePrefix(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("1:abc", []string{"a"}, time.Minute, 0)
	cache.Set("1:def", []string{"b"}, time.Minute, 0)
	cache.Set("12:abc", []string{"c"}, time.Minute, 0)

	cache.InvalidatePrefix("1:")

	_, ok := cache.Get("1:abc")
	assert.False(t, ok)

	_, ok = cache.Get("1:def")
	assert.False(t, ok)

	// user 12 shares the leading digit but not the prefix
	_, ok = cache.Get("12:abc")
	assert.True(t, ok)
}

func TestMemoryCacheDiscardsWritesFromBeforeInvalidation(t *testing.T) {
	cache := NewMemoryCache()

	stale := cache.Generation("1:")
	cache.InvalidatePrefix("1:")

	cache.Set("1:abc", []string{"payment.refund"}, time.Minute, stale)

	_, ok := cache.Get("1:abc")
	assert.False(t, ok, "a write captured before the invalidation must not land")

	cache.Set("1:abc", []string{"payment.refund"}, time.Minute, cache.Generation("1:"))

	_, ok = cache.Get("1:abc")
	assert.True(t, ok)

	// another user's invalidation does not affect this prefix
	cache.InvalidatePrefix("2:")

	_, ok = cache.Get("1:abc")
	assert.True(t, ok)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				cache.Set("1:key", []string{"invoice.read"}, time.Minute, cache.Generation("1:"))
				cache.Get("1:key")
				cache.InvalidatePrefix("1:")
			}
		}()
	}

	wg.Wait()
}
