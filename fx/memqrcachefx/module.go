// Package memqrcachefx provides an fx module for a QR client that exports
// into memory. Useful for testing.
package memqrcachefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/qrcache"
	"github.com/discochess/qrcache/internal/sink/memsink"
	"github.com/discochess/qrcache/internal/stats"
	"github.com/discochess/qrcache/internal/stats/logger"
)

// Module provides a default-configured client exporting to an in-memory
// sink. Requires a *zap.Logger to be provided.
var Module = fx.Module("memqrcache",
	fx.Provide(
		newStatsCollector,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("qrcache.stats"))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided client and sink.
type Result struct {
	fx.Out

	Client *qrcache.Client
	Sink   *memsink.Sink // Exposed for test assertions
}

func newClient(p Params) (Result, error) {
	sink := memsink.New()
	client, err := qrcache.New(
		qrcache.WithSink(sink),
		qrcache.WithStats(p.Collector),
		qrcache.WithLogger(p.Logger.Named("qrcache")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{
		Client: client,
		Sink:   sink,
	}, nil
}
