// Package simulation replays access traces against the image cache to
// compare cache configurations.
package simulation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/discochess/qrcache/benchmark/workload"
	"github.com/discochess/qrcache/internal/imagecache"
)

// ErrInvalidCacheConfig is returned for malformed configuration strings.
var ErrInvalidCacheConfig = errors.New("simulation: invalid cache config")

// CacheConfig is one cache configuration under test.
type CacheConfig struct {
	Name       string
	MaxEntries int
	MaxCost    int64
}

// ParseCacheConfig parses "ENTRIES:COST", e.g. "100:50MiB". The name is
// the input string.
func ParseCacheConfig(s string) (CacheConfig, error) {
	entries, cost, ok := strings.Cut(s, ":")
	if !ok {
		return CacheConfig{}, fmt.Errorf("%w: %q, want ENTRIES:COST", ErrInvalidCacheConfig, s)
	}

	n, err := strconv.Atoi(entries)
	if err != nil || n <= 0 {
		return CacheConfig{}, fmt.Errorf("%w: entries %q", ErrInvalidCacheConfig, entries)
	}
	c, err := humanize.ParseBytes(cost)
	if err != nil || c == 0 {
		return CacheConfig{}, fmt.Errorf("%w: cost %q", ErrInvalidCacheConfig, cost)
	}

	return CacheConfig{Name: s, MaxEntries: n, MaxCost: int64(c)}, nil
}

// Simulator replays traces against each configured cache.
type Simulator struct {
	configs []CacheConfig
}

// NewSimulator creates a new Simulator for the given configurations.
func NewSimulator(configs ...CacheConfig) *Simulator {
	return &Simulator{configs: configs}
}

// Replay runs trace against a fresh cache built from cfg. A miss is filled
// with a blank image of the request's edge length, the way a client fills
// the cache after rendering.
func (s *Simulator) Replay(cfg CacheConfig, trace []workload.Request) (*TrialResult, error) {
	cache, err := imagecache.New(imagecache.Config{
		MaxEntries: cfg.MaxEntries,
		MaxCost:    cfg.MaxCost,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating cache %s: %w", cfg.Name, err)
	}

	result := &TrialResult{ConfigName: cfg.Name, Requests: len(trace)}
	for _, req := range trace {
		if _, ok := cache.Get(req.URL); ok {
			continue
		}
		cache.Set(req.URL, blank(req.Edge))

		if info := cache.Info(); info.TotalCost > result.PeakCost {
			result.PeakCost = info.TotalCost
		}
	}

	st := cache.Stats()
	result.Hits = st.Hits
	result.Misses = st.Misses
	result.Evictions = st.Evictions
	result.HitRate = st.HitRate()
	return result, nil
}

// Run replays every trace against every configuration and aggregates the
// trials per configuration.
func (s *Simulator) Run(traces [][]workload.Request) (map[string]*AggregateResult, error) {
	results := make(map[string]*AggregateResult, len(s.configs))

	for _, cfg := range s.configs {
		agg := &AggregateResult{
			ConfigName: cfg.Name,
			Config:     cfg,
			HitRates:   make([]float64, 0, len(traces)),
			Evictions:  make([]int64, 0, len(traces)),
		}

		for _, trace := range traces {
			tr, err := s.Replay(cfg, trace)
			if err != nil {
				return nil, err
			}
			agg.Trials++
			agg.TotalRequests += tr.Requests
			agg.TotalHits += tr.Hits
			agg.TotalEvictions += tr.Evictions
			agg.HitRates = append(agg.HitRates, tr.HitRate)
			agg.Evictions = append(agg.Evictions, tr.Evictions)
			if tr.PeakCost > agg.PeakCost {
				agg.PeakCost = tr.PeakCost
			}
		}

		if agg.TotalRequests > 0 {
			agg.AvgHitRate = float64(agg.TotalHits) / float64(agg.TotalRequests) * 100
		}
		results[cfg.Name] = agg
	}

	return results, nil
}

// TrialResult contains the outcome of one trace against one configuration.
type TrialResult struct {
	ConfigName string
	Requests   int
	Hits       int64
	Misses     int64
	Evictions  int64
	HitRate    float64 // Percentage.
	PeakCost   int64   // Highest resident cost observed.
}

// AggregateResult contains results across all trials of one configuration.
type AggregateResult struct {
	ConfigName     string
	Config         CacheConfig
	Trials         int
	TotalRequests  int
	TotalHits      int64
	TotalEvictions int64
	AvgHitRate     float64
	PeakCost       int64
	HitRates       []float64 // Per-trial hit rate for statistical analysis.
	Evictions      []int64   // Per-trial evictions.
}

// blankImage has bounds but no pixel storage, so replaying large traces
// does not allocate the images whose cost is being simulated.
type blankImage struct {
	rect image.Rectangle
}

func blank(edge int) image.Image {
	return blankImage{rect: image.Rect(0, 0, edge, edge)}
}

func (b blankImage) ColorModel() color.Model { return color.GrayModel }
func (b blankImage) Bounds() image.Rectangle { return b.rect }
func (b blankImage) At(x, y int) color.Color { return color.White }
