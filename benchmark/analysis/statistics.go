// Package analysis provides statistical analysis for cache benchmark results.
//
// Per-trial hit rates are not assumed to be normal, so configurations are
// compared with a rank test and a bootstrap interval on the mean
// difference. Cohen's d is reported alongside as a magnitude.
package analysis

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SignificanceLevel is the p-value below which a difference is reported as
// significant.
const SignificanceLevel = 0.05

const bootstrapSeed = 1

// MannWhitneyResult contains the result of a Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64 // Smaller of the two U statistics.
	Z           float64 // Normal approximation of U.
	PValue      float64 // Two-tailed.
	Significant bool    // PValue < SignificanceLevel.
}

// MannWhitneyU tests whether two samples come from the same distribution.
// Ties receive mid-ranks; the p-value uses the normal approximation without
// tie correction.
func MannWhitneyU(sample1, sample2 []float64) *MannWhitneyResult {
	if len(sample1) == 0 || len(sample2) == 0 {
		return &MannWhitneyResult{PValue: 1}
	}
	n1, n2 := float64(len(sample1)), float64(len(sample2))

	pooled := make([]float64, 0, len(sample1)+len(sample2))
	pooled = append(pooled, sample1...)
	pooled = append(pooled, sample2...)
	ranks := midRanks(pooled)

	u1 := floats.Sum(ranks[:len(sample1)]) - n1*(n1+1)/2
	u := math.Min(u1, n1*n2-u1)

	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 * (n1 + n2 + 1) / 12)
	var z float64
	if sigma > 0 {
		z = (u - mu) / sigma
	}
	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))

	return &MannWhitneyResult{
		U:           u,
		Z:           z,
		PValue:      p,
		Significant: p < SignificanceLevel,
	}
}

// midRanks returns the 1-based rank of each value, in input order. Tied
// values share the mean of the ranks they span.
func midRanks(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, len(values))
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && values[order[hi]] == values[order[lo]] {
			hi++
		}
		r := float64(lo+1+hi) / 2
		for _, i := range order[lo:hi] {
			ranks[i] = r
		}
		lo = hi
	}
	return ranks
}

// EffectSize is a standardized mean difference.
type EffectSize struct {
	CohensD        float64
	Interpretation string // negligible, small, medium, large or undefined.
}

var cohensDBands = []struct {
	below float64
	label string
}{
	{0.2, "negligible"},
	{0.5, "small"},
	{0.8, "medium"},
}

// ComputeEffectSize computes Cohen's d with a pooled standard deviation.
// Each sample needs at least two values.
func ComputeEffectSize(sample1, sample2 []float64) *EffectSize {
	if len(sample1) < 2 || len(sample2) < 2 {
		return &EffectSize{Interpretation: "undefined"}
	}
	n1, n2 := float64(len(sample1)), float64(len(sample2))

	m1, v1 := stat.MeanVariance(sample1, nil)
	m2, v2 := stat.MeanVariance(sample2, nil)
	pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))

	var d float64
	if pooled > 0 {
		d = (m1 - m2) / pooled
	}

	label := "large"
	for _, band := range cohensDBands {
		if math.Abs(d) < band.below {
			label = band.label
			break
		}
	}
	return &EffectSize{CohensD: d, Interpretation: label}
}

// BootstrapResult is a confidence interval for mean(sample1) - mean(sample2).
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64 // e.g. 0.95.
}

// BootstrapConfidenceInterval computes a percentile bootstrap interval for
// the mean difference. Resampling is seeded so reports are reproducible.
func BootstrapConfidenceInterval(sample1, sample2 []float64, iterations int, confidence float64) *BootstrapResult {
	if len(sample1) == 0 || len(sample2) == 0 || iterations <= 0 {
		return &BootstrapResult{Confidence: confidence}
	}

	rng := rand.New(rand.NewSource(bootstrapSeed))
	buf1 := make([]float64, len(sample1))
	buf2 := make([]float64, len(sample2))

	diffs := make([]float64, iterations)
	for i := range diffs {
		resample(rng, sample1, buf1)
		resample(rng, sample2, buf2)
		diffs[i] = stat.Mean(buf1, nil) - stat.Mean(buf2, nil)
	}
	sort.Float64s(diffs)

	tail := (1 - confidence) / 2
	return &BootstrapResult{
		MeanDiff:   stat.Mean(sample1, nil) - stat.Mean(sample2, nil),
		LowerBound: stat.Quantile(tail, stat.Empirical, diffs, nil),
		UpperBound: stat.Quantile(1-tail, stat.Empirical, diffs, nil),
		Confidence: confidence,
	}
}

// resample fills dst with draws from sample, with replacement.
func resample(rng *rand.Rand, sample, dst []float64) {
	for i := range dst {
		dst[i] = sample[rng.Intn(len(sample))]
	}
}

// DescriptiveStats summarizes a sample.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Describe computes descriptive statistics for a sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}

	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)

	return &DescriptiveStats{
		N:      len(sorted),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
