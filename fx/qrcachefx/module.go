// Package qrcachefx provides an fx module for a cache-backed QR client.
package qrcachefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/qrcache"
	"github.com/discochess/qrcache/internal/imagecache"
	"github.com/discochess/qrcache/internal/render"
	"github.com/discochess/qrcache/internal/render/qrgen"
	"github.com/discochess/qrcache/internal/sink"
	"github.com/discochess/qrcache/internal/sink/destination"
	"github.com/discochess/qrcache/internal/stats"
	"github.com/discochess/qrcache/internal/stats/logger"
)

// Config holds configuration for the QR client.
type Config struct {
	// MaxEntries caps the number of cached images. Default is 100.
	MaxEntries int

	// MaxCost caps the estimated bytes of cached images. Default is 50 MiB.
	MaxCost int64

	// Size is the edge length of rendered codes in pixels. Default is 256.
	Size int

	// CostModel selects how image footprint is estimated: "rgba" (default)
	// or "native".
	CostModel string

	// ExportDest is an optional export destination
	// ("s3://bucket/prefix", "gs://bucket/prefix" or a directory).
	ExportDest string
}

// Module provides a *qrcache.Client and the *imagecache.Cache behind it.
// Requires a Config and a *zap.Logger to be provided. A stats.Collector may
// be supplied with fx.Decorate or fx.Replace; otherwise metrics are logged.
var Module = fx.Module("qrcache",
	fx.Provide(
		newStatsCollector,
		newCache,
		newGenerator,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("qrcache.stats"))
}

func newCache(cfg Config, collector stats.Collector, lc fx.Lifecycle) (*imagecache.Cache, error) {
	cost, err := imagecache.ParseCostFunc(cfg.CostModel)
	if err != nil {
		return nil, err
	}
	cache, err := imagecache.New(imagecache.Config{
		MaxEntries: cfg.MaxEntries,
		MaxCost:    cfg.MaxCost,
		Cost:       cost,
	}, collector)
	if err != nil {
		return nil, err
	}

	// Clients do not clear shared caches, so the module does.
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cache.Clear()
			return nil
		},
	})
	return cache, nil
}

func newGenerator(cfg Config) render.Generator {
	return qrgen.New(qrgen.WithSize(cfg.Size))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Cache     *imagecache.Cache
	Generator render.Generator
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *qrcache.Client
}

func newClient(p Params) (Result, error) {
	opts := []qrcache.Option{
		qrcache.WithCache(p.Cache),
		qrcache.WithGenerator(p.Generator),
		qrcache.WithStats(p.Collector),
		qrcache.WithLogger(p.Logger.Named("qrcache")),
	}

	if p.Config.ExportDest != "" {
		s, err := openSink(p.Config.ExportDest)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, qrcache.WithSink(s))
	}

	client, err := qrcache.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}

func openSink(dest string) (sink.Sink, error) {
	return destination.Open(context.Background(), dest)
}
