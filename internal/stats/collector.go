// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Cache metrics.
	MetricCacheHits      = "qrcache_cache_hits_total"
	MetricCacheMisses    = "qrcache_cache_misses_total"
	MetricCacheEvictions = "qrcache_cache_evictions_total"
	MetricCacheEntries   = "qrcache_cache_entries"
	MetricCacheCost      = "qrcache_cache_cost_bytes"

	// Client metrics.
	MetricRequests      = "qrcache_requests_total"
	MetricRenders       = "qrcache_renders_total"
	MetricRenderErrors  = "qrcache_render_errors_total"
	MetricRenderSeconds = "qrcache_render_seconds"
	MetricExports       = "qrcache_exports_total"
)

// Help returns the help text for a known metric name.
// Unknown names are returned unchanged.
func Help(name string) string {
	switch name {
	case MetricCacheHits:
		return "Number of image cache lookups that found a resident entry."
	case MetricCacheMisses:
		return "Number of image cache lookups that found nothing."
	case MetricCacheEvictions:
		return "Number of entries evicted by count or cost pressure."
	case MetricCacheEntries:
		return "Number of entries resident in the image cache."
	case MetricCacheCost:
		return "Estimated bytes held by resident image cache entries."
	case MetricRequests:
		return "Number of QR image requests served by the client."
	case MetricRenders:
		return "Number of QR images generated on cache miss."
	case MetricRenderErrors:
		return "Number of QR generation failures."
	case MetricRenderSeconds:
		return "Time spent generating a QR image."
	case MetricExports:
		return "Number of QR images written to a sink."
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
