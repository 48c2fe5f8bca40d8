package tarball

import "sync"

// memCacheEntry guards a single in-flight (or completed) download with a
// sync.Once plus a close-to-broadcast channel, the Go rendition of the
// "clone-on-await" future the spec describes (§5, §9 Design Notes): the
// first caller to reach a given integrity key performs the fetch, and every
// other concurrent caller for that same key blocks on closed until the
// result is ready, then reads the shared result.
type memCacheEntry struct {
	once   sync.Once
	closed chan struct{}
	result CasPaths
	err    error
}

// MemCache deduplicates concurrent downloads of the same tarball by its
// integrity string, so a package referenced by many dependents in the same
// install is fetched from the network at most once (§4.2 step 1, §5
// "at-most-once concurrent fetch semantics").
type MemCache struct {
	entries sync.Map // map[string]*memCacheEntry
}

// NewMemCache constructs an empty cache.
func NewMemCache() *MemCache {
	return &MemCache{}
}

// GetOrFetch returns the cached result for key, or calls fetch exactly once
// across all concurrent callers sharing key and caches (and returns) its
// result.
func (c *MemCache) GetOrFetch(key string, fetch func() (CasPaths, error)) (CasPaths, error) {
	actual, _ := c.entries.LoadOrStore(key, &memCacheEntry{closed: make(chan struct{})})
	entry := actual.(*memCacheEntry)

	entry.once.Do(func() {
		entry.result, entry.err = fetch()
		close(entry.closed)
	})

	<-entry.closed
	return entry.result, entry.err
}
