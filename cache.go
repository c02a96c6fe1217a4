package derive

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// Cache is a concurrent memo table. Entries are populated on miss and are
// never evicted; the cache lives as long as the engine that owns it.
//
// Builders must be pure functions of the key. Concurrent misses on the same
// key are collapsed so that one canonical value is stored and shared; failed
// builds are not cached.
type Cache[V any] struct {
	entries sync.Map // string -> V
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	size    atomic.Int64
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// String returns a human-readable summary of the statistics.
func (s CacheStats) String() string {
	return fmt.Sprintf("entries=%d hits=%d misses=%d", s.Entries, s.Hits, s.Misses)
}

// Load returns the cached value for key, if present.
func (c *Cache[V]) Load(key string) (V, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Get returns the value cached under key, calling build on a miss.
func (c *Cache[V]) Get(key string, build func() (V, error)) (V, error) {
	if v, ok := c.Load(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have stored the value between Load and Do.
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		actual, loaded := c.entries.LoadOrStore(key, v)
		if !loaded {
			c.size.Add(1)
		}
		return actual, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return int(c.size.Load())
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.size.Load(),
	}
}

// CacheKey returns a stable key for an operation description. The value is
// encoded with msgpack using sorted map keys and hashed with sha256, so two
// structurally equal descriptions always produce the same key.
func CacheKey(v any) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("derive: encode cache key: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
