package metadata

import "github.com/godicom/srreport/pkg/cache"

type cacheKey struct {
	module  string
	imageID string
}

type cachedRecord struct {
	value any
	ok    bool
}

// CachedProvider decorates a Provider with an LRU cache. Absent modules
// are cached too, so repeated groups on the same broken image do not
// re-query the underlying provider.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache[cacheKey, cachedRecord]
}

// NewCached wraps p with an LRU cache of the given capacity.
func NewCached(p Provider, capacity int) *CachedProvider {
	return &CachedProvider{
		inner: p,
		cache: cache.New[cacheKey, cachedRecord](capacity),
	}
}

// Get implements Provider.
func (c *CachedProvider) Get(module, imageID string) (any, bool) {
	rec := c.cache.GetOrSet(cacheKey{module, imageID}, func() cachedRecord {
		v, ok := c.inner.Get(module, imageID)
		return cachedRecord{value: v, ok: ok}
	})
	return rec.value, rec.ok
}

// Stats exposes the underlying cache statistics.
func (c *CachedProvider) Stats() cache.Stats {
	return c.cache.Stats()
}
