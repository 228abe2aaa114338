package geo

import (
	"context"
	"sync"
)

// Cache memoizes labels by normalized text. It lives for one run only.
type Cache struct {
	mu    sync.RWMutex
	inMem map[string]string
}

func NewCache() *Cache {
	return &Cache{inMem: map[string]string{}}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.inMem[key]
	return v, ok
}

func (c *Cache) Put(key, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inMem[key] = label
}

type cachedResolver struct {
	next  LocationResolver
	cache *Cache
}

// Cached wraps next with a fresh Cache. Call it once per run so nothing
// is remembered between runs.
func Cached(next LocationResolver) LocationResolver {
	return &cachedResolver{next: next, cache: NewCache()}
}

func (r *cachedResolver) Resolve(ctx context.Context, text string) string {
	key := normalizeKey(text)
	if key == "" {
		return Unknown
	}
	if v, ok := r.cache.Get(key); ok {
		return v
	}
	label := r.next.Resolve(ctx, text)
	r.cache.Put(key, label)
	return label
}
