package projection

import (
	"container/list"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// renderCache is a thread-safe LRU cache for rendered charts. Entries are
// keyed by chart fingerprint, snapshot generation and selection, so a reload
// or a changed definition never serves a stale rendering.
type renderCache struct {
	mu       sync.Mutex
	capacity int
	cache    map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key  string
	resp *ChartResponse
}

// newRenderCache creates a cache with the given capacity. A capacity below 1
// returns nil, which disables caching.
func newRenderCache(capacity int) *renderCache {
	if capacity < 1 {
		return nil
	}
	return &renderCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func cacheKey(fingerprint string, generation uint64, sel map[string]string) string {
	var b strings.Builder
	b.WriteString(fingerprint)
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(generation, 10))

	dims := make([]string, 0, len(sel))
	for d := range sel {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	for _, d := range dims {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(d))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(sel[d]))
	}
	return b.String()
}

// Get retrieves a rendering. Returns nil if not found.
func (c *renderCache) Get(key string) *ChartResponse {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.cache[key]
	if !exists {
		return nil
	}

	// Move to front (most recently used)
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).resp
}

// Put adds a rendering, evicting the least recently used if full. Cached
// responses are shared between readers and must not be mutated.
func (c *renderCache) Put(key string, resp *ChartResponse) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.cache[key]; exists {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).resp = resp
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.cache, oldest.Value.(*cacheEntry).key)
			c.order.Remove(oldest)
		}
	}

	c.cache[key] = c.order.PushFront(&cacheEntry{key: key, resp: resp})
}

// Len returns the number of cached renderings.
func (c *renderCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
