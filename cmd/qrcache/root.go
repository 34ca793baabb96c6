package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/qrcache"
	"github.com/discochess/qrcache/internal/imagecache"
	"github.com/discochess/qrcache/internal/render/qrgen"
	"github.com/discochess/qrcache/internal/stats"
)

var (
	// Global flags.
	maxEntries    int
	maxCost       string
	size          int
	recoveryLevel string
	costModel     string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "qrcache",
	Short: "Render, export and serve QR codes for links",
	Long: `qrcache renders QR codes for URLs and keeps recently rendered images
in a bounded in-memory cache, limited by entry count and estimated bytes.

Examples:
  # Render a code to a file
  qrcache render https://example.com -o example.png

  # Export every URL in a file to an S3 bucket
  qrcache export --input links.txt --dest s3://my-bucket/qr

  # Serve codes over HTTP with Prometheus metrics
  qrcache serve --addr :8080`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&maxEntries, "max-entries", imagecache.DefaultMaxEntries, "maximum number of cached images")
	rootCmd.PersistentFlags().StringVar(&maxCost, "max-cost", humanize.IBytes(imagecache.DefaultMaxCost), "maximum estimated bytes of cached images (e.g. 50MiB)")
	rootCmd.PersistentFlags().IntVarP(&size, "size", "s", qrgen.DefaultSize, "edge length of rendered codes in pixels")
	rootCmd.PersistentFlags().StringVar(&recoveryLevel, "level", "medium", "error correction level: low, medium, high, highest")
	rootCmd.PersistentFlags().StringVar(&costModel, "cost", "rgba", "image cost model: rgba (4 bytes/pixel) or native (pixel format width)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger builds the CLI logger: development output when verbose,
// production JSON at warn level otherwise.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// newClient builds a client from the global flags plus extra options.
func newClient(logger *zap.Logger, collector stats.Collector, extra ...qrcache.Option) (*qrcache.Client, error) {
	level, err := qrgen.ParseRecoveryLevel(recoveryLevel)
	if err != nil {
		return nil, err
	}
	costLimit, err := humanize.ParseBytes(maxCost)
	if err != nil {
		return nil, fmt.Errorf("parsing --max-cost: %w", err)
	}
	cost, err := imagecache.ParseCostFunc(costModel)
	if err != nil {
		return nil, err
	}

	opts := []qrcache.Option{
		qrcache.WithCacheConfig(imagecache.Config{
			MaxEntries: maxEntries,
			MaxCost:    int64(costLimit),
			Cost:       cost,
		}),
		qrcache.WithGenerator(qrgen.New(
			qrgen.WithSize(size),
			qrgen.WithRecoveryLevel(level),
		)),
		qrcache.WithLogger(logger.Named("qrcache")),
	}
	if collector != nil {
		opts = append(opts, qrcache.WithStats(collector))
	}
	return qrcache.New(append(opts, extra...)...)
}
