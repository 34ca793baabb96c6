// Package reporting provides report generation for benchmark results.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/discochess/qrcache/benchmark/analysis"
	"github.com/discochess/qrcache/benchmark/simulation"
)

// MarkdownReport generates benchmark reports in Markdown format.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// Methodology describes the workload behind a report.
type Methodology struct {
	URLs     int
	Requests int
	Trials   int
	Exponent float64
	Edges    []int
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(m Methodology) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **URL population:** %d\n", m.URLs)
	fmt.Fprintf(r.w, "- **Requests per trial:** %d\n", m.Requests)
	fmt.Fprintf(r.w, "- **Trials:** %d\n", m.Trials)
	fmt.Fprintf(r.w, "- **Access distribution:** Zipf, s=%.2f\n", m.Exponent)
	fmt.Fprintf(r.w, "- **Image edges:** %s px\n", joinInts(m.Edges))
	fmt.Fprintln(r.w, "- **Metric:** Cache hit rate per trial (higher is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary table with one row per
// configuration, in order.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.AggregateResult, order []string) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Config | Max Entries | Max Cost | Avg Hit Rate | Median | Evictions/Trial | Peak Cost |")
	fmt.Fprintln(r.w, "|--------|-------------|----------|--------------|--------|-----------------|-----------|")

	for _, name := range order {
		res, ok := results[name]
		if !ok {
			continue
		}
		m := simulation.ComputeMetrics(res)
		fmt.Fprintf(r.w, "| %s | %d | %s | %.1f%% | %.1f%% | %.0f | %s |\n",
			name, res.Config.MaxEntries, humanize.IBytes(uint64(res.Config.MaxCost)),
			m.AvgHitRate, m.MedianHitRate, m.AvgEvictionsPerTrial,
			humanize.IBytes(uint64(m.PeakCost)))
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.ConfigComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Config1, comp.Config2)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Config1+" | "+comp.Config2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Config1)+2)+"|"+strings.Repeat("-", len(comp.Config2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f%% | %.2f%% |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.2f%% | %.2f%% |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.2f%% | %.2f%% |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.2f%% | %.2f%% |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.2f, %.2f]\n",
		comp.BootstrapCI.Confidence*100, comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows a statistically significant hit rate improvement over %s ",
			comp.Winner, otherConfig(comp.Winner, comp.Config1, comp.Config2))
		fmt.Fprintf(r.w, "(p < %.2f, effect size: %s).\n", analysis.SignificanceLevel, comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintf(r.w, "No statistically significant difference detected between configurations (p >= %.2f).\n",
			analysis.SignificanceLevel)
	}
	fmt.Fprintln(r.w)
}

func otherConfig(winner, c1, c2 string) string {
	if winner == c1 {
		return c2
	}
	return c1
}

// WriteDistributionChart writes an ASCII histogram of per-trial hit rates
// in ten-point buckets.
func (r *MarkdownReport) WriteDistributionChart(name string, hitRates []float64) {
	fmt.Fprintf(r.w, "### %s Hit Rate Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	hist := makeHistogram(hitRates)
	maxCount := 0
	for _, count := range hist {
		maxCount = max(maxCount, count)
	}

	width := 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

// makeHistogram buckets percentages into [0,10), [10,20), ... [90,100].
func makeHistogram(rates []float64) []int {
	const buckets = 10
	hist := make([]int, buckets)
	for _, v := range rates {
		bucket := int(v / 10)
		bucket = max(0, min(bucket, buckets-1))
		hist[bucket]++
	}
	return hist
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by qrcache-bench*")
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
