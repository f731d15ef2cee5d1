package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/pipeline"
	"github.com/geoandina/droughtfire/internal/raster"
)

// CachedSource wraps a Source with an in-memory LRU cache keyed by band and
// window bounds. Assessments of nearby dates re-fetch heavily overlapping
// windows, so identical window requests are served from memory.
type CachedSource struct {
	inner   pipeline.Source
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a source.
func NewCachedSource(inner pipeline.Source, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) FetchSeries(ctx context.Context, band string, from, to time.Time) (*raster.TimeSeries, error) {
	key := fmt.Sprintf("%s|%s|%s", band, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if series, ok := c.cache.get(key); ok {
		c.metrics.SourceCacheTotal.WithLabelValues("hit").Inc()
		return series, nil
	}
	c.metrics.SourceCacheTotal.WithLabelValues("miss").Inc()

	series, err := c.inner.FetchSeries(ctx, band, from, to)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty series so windows awaiting late observations can
	// be retried.
	if !series.Empty() {
		c.cache.put(key, series)
	}
	return series, nil
}

// lruCache is a simple thread-safe LRU cache for time series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *raster.TimeSeries
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*raster.TimeSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *raster.TimeSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
