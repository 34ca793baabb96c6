// Package workload generates synthetic URL access traces for cache sizing
// experiments.
//
// Real link traffic is heavily skewed: a few URLs are requested constantly
// while a long tail is seen once or twice. Traces follow a Zipf distribution
// over a fixed URL population so that results are reproducible for a seed.
package workload

import (
	"errors"
	"fmt"
	"math/rand"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultURLs     = 1000
	DefaultRequests = 10000
	DefaultExponent = 1.1
)

// DefaultEdges are the rendered edge lengths assigned to URLs when
// Config.Edges is empty.
var DefaultEdges = []int{128, 256, 512}

// ErrInvalidConfig is returned by Generate for unusable parameters.
var ErrInvalidConfig = errors.New("workload: invalid config")

// Config describes a trace.
type Config struct {
	// URLs is the size of the URL population.
	URLs int

	// Requests is the trace length.
	Requests int

	// Exponent is the Zipf skew and must be greater than 1.
	Exponent float64

	// Edges lists image edge lengths in pixels. Each URL is assigned one
	// of them for the whole trace.
	Edges []int

	// Seed makes traces reproducible.
	Seed int64
}

// Request is a single access in a trace.
type Request struct {
	URL  string
	Edge int
}

// Generate returns a trace for cfg.
func Generate(cfg Config) ([]Request, error) {
	if cfg.URLs == 0 {
		cfg.URLs = DefaultURLs
	}
	if cfg.Requests == 0 {
		cfg.Requests = DefaultRequests
	}
	if cfg.Exponent == 0 {
		cfg.Exponent = DefaultExponent
	}
	if len(cfg.Edges) == 0 {
		cfg.Edges = DefaultEdges
	}
	if cfg.URLs < 0 || cfg.Requests < 0 || cfg.Exponent <= 1 {
		return nil, fmt.Errorf("%w: urls=%d requests=%d exponent=%g",
			ErrInvalidConfig, cfg.URLs, cfg.Requests, cfg.Exponent)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	edges := make([]int, cfg.URLs)
	for i := range edges {
		edges[i] = cfg.Edges[rng.Intn(len(cfg.Edges))]
	}

	zipf := rand.NewZipf(rng, cfg.Exponent, 1, uint64(cfg.URLs-1))
	trace := make([]Request, cfg.Requests)
	for i := range trace {
		k := int(zipf.Uint64())
		trace[i] = Request{URL: URL(k), Edge: edges[k]}
	}
	return trace, nil
}

// Trials returns n traces with consecutive seeds starting at cfg.Seed.
func Trials(cfg Config, n int) ([][]Request, error) {
	traces := make([][]Request, 0, n)
	for i := 0; i < n; i++ {
		c := cfg
		c.Seed = cfg.Seed + int64(i)
		trace, err := Generate(c)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// URL returns the k-th URL of the population.
func URL(k int) string {
	return fmt.Sprintf("https://example.com/item/%d", k)
}

// Unique returns the number of distinct URLs in trace.
func Unique(trace []Request) int {
	seen := make(map[string]struct{}, len(trace))
	for _, r := range trace {
		seen[r.URL] = struct{}{}
	}
	return len(seen)
}
