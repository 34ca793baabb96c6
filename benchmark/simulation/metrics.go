package simulation

import (
	"sort"
)

// Metrics contains computed metrics from simulation results.
type Metrics struct {
	// Core metrics.
	Trials         int
	TotalRequests  int
	TotalEvictions int64
	AvgHitRate     float64
	PeakCost       int64

	// Distribution of per-trial hit rates.
	MedianHitRate float64
	P10HitRate    float64
	P90HitRate    float64
	MinHitRate    float64
	MaxHitRate    float64

	// Eviction pressure.
	AvgEvictionsPerTrial float64
	EvictionsPerRequest  float64
}

// ComputeMetrics computes detailed metrics from aggregate results.
func ComputeMetrics(result *AggregateResult) *Metrics {
	m := &Metrics{
		Trials:         result.Trials,
		TotalRequests:  result.TotalRequests,
		TotalEvictions: result.TotalEvictions,
		AvgHitRate:     result.AvgHitRate,
		PeakCost:       result.PeakCost,
	}

	if len(result.HitRates) > 0 {
		sorted := make([]float64, len(result.HitRates))
		copy(sorted, result.HitRates)
		sort.Float64s(sorted)

		m.MinHitRate = sorted[0]
		m.MaxHitRate = sorted[len(sorted)-1]
		m.MedianHitRate = percentile(sorted, 50)
		m.P10HitRate = percentile(sorted, 10)
		m.P90HitRate = percentile(sorted, 90)
	}

	if result.Trials > 0 {
		m.AvgEvictionsPerTrial = float64(result.TotalEvictions) / float64(result.Trials)
	}
	if result.TotalRequests > 0 {
		m.EvictionsPerRequest = float64(result.TotalEvictions) / float64(result.TotalRequests)
	}

	return m
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MetricsComparison holds the differences between two configurations.
type MetricsComparison struct {
	Config1 string
	Config2 string

	HitRateDiff   float64 // Positive means Config1 hits more often.
	EvictionsDiff float64 // Per trial.
	PeakCostDiff  int64
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Config1:       name1,
		Config2:       name2,
		HitRateDiff:   m1.AvgHitRate - m2.AvgHitRate,
		EvictionsDiff: m1.AvgEvictionsPerTrial - m2.AvgEvictionsPerTrial,
		PeakCostDiff:  m1.PeakCost - m2.PeakCost,
	}
}
