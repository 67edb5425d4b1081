package syncx

import "sync"

// Cache is a size-bounded concurrent map. When full, the oldest inserted key
// is evicted first.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	order []K
	limit int
}

// NewCache creates a cache holding at most limit entries (limit <= 0 means unbounded).
func NewCache[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V), limit: limit}
}

// Get returns the cached value for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[k]
	return v, ok
}

// Put stores v under k, evicting the oldest entry when the cache is full.
func (c *Cache[K, V]) Put(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[k]; !ok {
		if c.limit > 0 && len(c.order) >= c.limit {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, k)
	}
	c.items[k] = v
}

// GetOrCompute returns the cached value for k or stores the result of fn.
// fn runs outside the lock and may race with another caller for the same key;
// the last writer wins.
func (c *Cache[K, V]) GetOrCompute(k K, fn func() V) V {
	if v, ok := c.Get(k); ok {
		return v
	}
	v := fn()
	c.Put(k, v)
	return v
}

// Len reports the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
