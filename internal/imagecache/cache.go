// Package imagecache implements a bounded in-memory cache of rendered images
// keyed by the content they encode.
//
// The cache is bounded twice: by the number of resident entries and by the
// summed cost of their images. Whenever either ceiling is exceeded, entries
// are evicted in least-recently-used order until both hold again.
package imagecache

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/discochess/qrcache/internal/stats"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultMaxEntries = 100
	DefaultMaxCost    = 50 * 1024 * 1024
)

// ErrInvalidConfig is returned by New for negative limits.
var ErrInvalidConfig = errors.New("imagecache: invalid config")

// Config holds the construction-time limits of a Cache.
type Config struct {
	// MaxEntries caps the number of resident entries. Zero means DefaultMaxEntries.
	MaxEntries int

	// MaxCost caps the summed cost of resident entries. Zero means DefaultMaxCost.
	MaxCost int64

	// Cost estimates an image's footprint. Nil means RGBACost.
	Cost CostFunc
}

// Info is a point-in-time snapshot of cache occupancy.
type Info struct {
	Count     int
	TotalCost int64
}

// Limits reports the ceilings a Cache was built with.
type Limits struct {
	MaxEntries int
	MaxCost    int64
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type entry struct {
	img  image.Image
	cost int64
}

// Cache is a thread-safe, count- and cost-bounded LRU image cache.
// The zero value is not usable; construct one with New.
type Cache struct {
	limits    Limits
	cost      CostFunc
	collector stats.Collector

	mu        sync.Mutex
	lru       *simplelru.LRU[string, entry]
	totalCost int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// clearing suppresses eviction accounting while Clear purges entries.
	clearing bool
}

// New creates a cache with the given limits.
// The collector is optional; if nil, a no-op collector is used.
func New(cfg Config, collector stats.Collector) (*Cache, error) {
	if cfg.MaxEntries < 0 || cfg.MaxCost < 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = DefaultMaxCost
	}
	if cfg.Cost == nil {
		cfg.Cost = RGBACost
	}
	if collector == nil {
		collector = stats.NewNoop()
	}

	c := &Cache{
		limits:    Limits{MaxEntries: cfg.MaxEntries, MaxCost: cfg.MaxCost},
		cost:      cfg.Cost,
		collector: collector,
	}

	l, err := simplelru.NewLRU[string, entry](cfg.MaxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// onEvict runs with c.mu held for every entry leaving the cache, whether by
// count pressure inside simplelru, cost pressure, Remove, or Clear.
func (c *Cache) onEvict(_ string, e entry) {
	c.totalCost -= e.cost
	if c.clearing {
		return
	}
	c.evictions.Add(1)
	c.collector.IncCounter(stats.MetricCacheEvictions, 1)
}

// Get returns the image stored under key and marks it most recently used.
func (c *Cache) Get(key string) (image.Image, bool) {
	c.mu.Lock()
	e, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		c.collector.IncCounter(stats.MetricCacheMisses, 1)
		return nil, false
	}
	c.hits.Add(1)
	c.collector.IncCounter(stats.MetricCacheHits, 1)
	return e.img, true
}

// Touch returns the image stored under key and marks it most recently used
// without recording a hit or miss.
func (c *Cache) Touch(key string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	return e.img, ok
}

// Contains reports whether key is resident without touching its recency.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// Set stores img under key, replacing any previous image, then evicts least
// recently used entries until both limits hold. An image whose cost alone
// exceeds MaxCost is evicted along with everything else.
func (c *Cache) Set(key string, img image.Image) {
	cost := c.cost(img)
	if cost < 0 {
		cost = 0
	}

	c.mu.Lock()
	// Replacement does not trigger the eviction callback, so retire the old
	// cost by hand before the new one lands.
	if old, ok := c.lru.Peek(key); ok {
		c.totalCost -= old.cost
	}
	c.lru.Add(key, entry{img: img, cost: cost})
	c.totalCost += cost

	for c.totalCost > c.limits.MaxCost {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	c.reportLocked()
	c.mu.Unlock()
}

// Remove deletes key from the cache and reports whether it was present.
// Removal is not counted as an eviction.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	c.clearing = true
	present := c.lru.Remove(key)
	c.clearing = false
	c.reportLocked()
	c.mu.Unlock()

	return present
}

// Clear drops every entry. Calling it on an empty cache is a no-op.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.clearing = true
	c.lru.Purge()
	c.clearing = false
	c.totalCost = 0
	c.reportLocked()
	c.mu.Unlock()
}

// Info returns the current entry count and total cost.
func (c *Cache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked()
}

// Limits returns the ceilings the cache was constructed with.
func (c *Cache) Limits() Limits {
	return c.limits
}

// Stats returns hit, miss and eviction counts since construction.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Keys returns resident keys from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

func (c *Cache) infoLocked() Info {
	return Info{Count: c.lru.Len(), TotalCost: c.totalCost}
}

// reportLocked publishes occupancy gauges. It runs with c.mu held so
// concurrent writers publish in the order they mutated the cache.
func (c *Cache) reportLocked() {
	info := c.infoLocked()
	c.collector.SetGauge(stats.MetricCacheEntries, int64(info.Count))
	c.collector.SetGauge(stats.MetricCacheCost, info.TotalCost)
}
