package qrcache

import (
	"go.uber.org/zap"

	"github.com/discochess/qrcache/internal/imagecache"
	"github.com/discochess/qrcache/internal/render"
	"github.com/discochess/qrcache/internal/render/qrgen"
	"github.com/discochess/qrcache/internal/sink"
	"github.com/discochess/qrcache/internal/stats"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	cache       *imagecache.Cache
	cacheConfig imagecache.Config
	generator   render.Generator
	sink        sink.Sink
	stats       stats.Collector
	logger      *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		generator: qrgen.New(),
		stats:     stats.NewNoop(),
		logger:    zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithCache shares an existing image cache with the client.
// It takes precedence over WithCacheConfig. The client does not clear a
// shared cache on Close.
func WithCache(c *imagecache.Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
	})
}

// WithCacheConfig sets the limits of the cache the client creates.
// Zero fields take the imagecache defaults (100 entries, 50 MiB).
func WithCacheConfig(cfg imagecache.Config) Option {
	return optionFunc(func(o *options) {
		o.cacheConfig = cfg
	})
}

// WithGenerator sets the image generator used on cache misses.
// If not set, a qrgen generator with default settings is used.
func WithGenerator(g render.Generator) Option {
	return optionFunc(func(o *options) {
		o.generator = g
	})
}

// WithSink sets the destination for Export.
// The client takes ownership and closes it on Close.
func WithSink(s sink.Sink) Option {
	return optionFunc(func(o *options) {
		o.sink = s
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
