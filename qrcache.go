// Package qrcache renders QR codes for links and keeps recently rendered
// images in a bounded in-memory cache.
//
// Example usage:
//
//	client, err := qrcache.New(
//	    qrcache.WithCacheConfig(imagecache.Config{MaxEntries: 200}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	img, err := client.Image(ctx, "https://example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
package qrcache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/discochess/qrcache/internal/imagecache"
	"github.com/discochess/qrcache/internal/render"
	"github.com/discochess/qrcache/internal/sink"
	"github.com/discochess/qrcache/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("qrcache: client closed")

	// ErrNoSink indicates an export was requested without a sink.
	ErrNoSink = errors.New("qrcache: no sink configured")

	// ErrNoImage indicates the generator returned neither an image nor an error.
	ErrNoImage = errors.New("qrcache: generator returned no image")
)

// ContentTypePNG is the content type of exported images.
const ContentTypePNG = "image/png"

// Client renders QR images through a shared image cache.
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	cache     *imagecache.Cache
	generator render.Generator
	sink      sink.Sink
	stats     stats.Collector
	logger    *zap.Logger

	// ownsCache is false for caches supplied with WithCache.
	ownsCache bool

	renders singleflight.Group
	closed  atomic.Bool
}

// New creates a new Client with the given options.
// If no options are provided, sensible defaults are used.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	cache := cfg.cache
	owned := cache == nil
	if owned {
		var err error
		cache, err = imagecache.New(cfg.cacheConfig, cfg.stats)
		if err != nil {
			return nil, fmt.Errorf("creating image cache: %w", err)
		}
	}

	c := &Client{
		cache:     cache,
		generator: cfg.generator,
		sink:      cfg.sink,
		stats:     cfg.stats,
		logger:    cfg.logger,
		ownsCache: owned,
	}

	limits := cache.Limits()
	c.logger.Debug("client initialized",
		zap.Int("maxEntries", limits.MaxEntries),
		zap.Int64("maxCost", limits.MaxCost),
		zap.Bool("sink", c.sink != nil),
	)

	return c, nil
}

// Image returns the QR image for url, rendering and caching it on a miss.
// Concurrent misses for the same url share a single render.
func (c *Client) Image(ctx context.Context, url string) (image.Image, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.stats.IncCounter(stats.MetricRequests, 1)

	if img, ok := c.cache.Get(url); ok {
		return img, nil
	}

	v, err, shared := c.renders.Do(url, func() (any, error) {
		// Another caller may have filled the cache between our miss and
		// winning the flight. The miss is already counted.
		if img, ok := c.cache.Touch(url); ok {
			return img, nil
		}
		return c.generate(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared render", zap.String("url", url))
	}
	img, ok := v.(image.Image)
	if !ok || img == nil {
		return nil, ErrNoImage
	}
	return img, nil
}

// PNG returns the QR image for url encoded as PNG.
func (c *Client) PNG(ctx context.Context, url string) ([]byte, error) {
	img, err := c.Image(ctx, url)
	if err != nil {
		return nil, err
	}
	return render.PNGBytes(img)
}

// Export renders url and writes the PNG to the configured sink under
// ObjectName(url). It returns the object name.
func (c *Client) Export(ctx context.Context, url string) (string, error) {
	if c.sink == nil {
		return "", ErrNoSink
	}

	data, err := c.PNG(ctx, url)
	if err != nil {
		return "", err
	}

	name := ObjectName(url)
	if err := c.sink.Put(ctx, name, data, ContentTypePNG); err != nil {
		return "", fmt.Errorf("exporting %s: %w", url, err)
	}

	c.stats.IncCounter(stats.MetricExports, 1)
	c.logger.Debug("exported", zap.String("url", url), zap.String("object", name))
	return name, nil
}

// ExportAll exports every url with at most concurrency exports in flight.
// Names are returned in input order. The first failure cancels the rest.
func (c *Client) ExportAll(ctx context.Context, urls []string, concurrency int) ([]string, error) {
	if c.sink == nil {
		return nil, ErrNoSink
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	names := make([]string, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, url := range urls {
		g.Go(func() error {
			name, err := c.Export(ctx, url)
			if err != nil {
				return err
			}
			names[i] = name
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

// Info returns the current cache occupancy.
func (c *Client) Info() imagecache.Info {
	return c.cache.Info()
}

// Limits returns the cache ceilings.
func (c *Client) Limits() imagecache.Limits {
	return c.cache.Limits()
}

// Stats returns cache hit, miss and eviction counts.
func (c *Client) Stats() imagecache.Stats {
	return c.cache.Stats()
}

// Clear drops every cached image.
func (c *Client) Clear() {
	c.cache.Clear()
}

// Cache returns the image cache used by this client.
func (c *Client) Cache() *imagecache.Cache {
	return c.cache
}

// Close releases the sink and clears the cache if the client created it.
// A cache supplied with WithCache is left to its owner.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if c.ownsCache {
		c.cache.Clear()
	}

	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			return fmt.Errorf("closing sink: %w", err)
		}
	}

	return nil
}

// ObjectName returns the content-derived object name an exported image of
// url is stored under: a name-based (SHA-1) UUID in the URL namespace.
func ObjectName(url string) string {
	return "qr/" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String() + ".png"
}

// generate renders url and stores the result in the cache.
func (c *Client) generate(ctx context.Context, url string) (image.Image, error) {
	start := time.Now()
	img, err := c.generator.Generate(ctx, url)
	if err != nil {
		c.stats.IncCounter(stats.MetricRenderErrors, 1)
		return nil, fmt.Errorf("rendering %q: %w", url, err)
	}
	if img == nil {
		c.stats.IncCounter(stats.MetricRenderErrors, 1)
		return nil, fmt.Errorf("rendering %q: %w", url, ErrNoImage)
	}
	c.stats.ObserveHistogram(stats.MetricRenderSeconds, time.Since(start).Seconds())
	c.stats.IncCounter(stats.MetricRenders, 1)

	c.cache.Set(url, img)
	return img, nil
}
