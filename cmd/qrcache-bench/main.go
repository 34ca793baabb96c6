// Package main provides the qrcache-bench CLI tool for comparing cache
// configurations against synthetic link traffic.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/discochess/qrcache/benchmark/analysis"
	"github.com/discochess/qrcache/benchmark/reporting"
	"github.com/discochess/qrcache/benchmark/simulation"
	"github.com/discochess/qrcache/benchmark/workload"
)

var (
	urlCount     int
	requestCount int
	trials       int
	exponent     float64
	edges        []int
	seed         int64
	configArgs   []string
	outputFormat string
	outputFile   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "qrcache-bench",
	Short: "Benchmark cache configurations for qrcache",
	Long: `qrcache-bench compares image cache configurations using synthetic traffic.

It replays Zipf-distributed URL traces against caches with different entry
and cost limits and measures hit rates to find a configuration that fits
the working set.

Examples:
  # Compare the default configuration with a smaller one
  qrcache-bench run --configs 100:50MiB,25:10MiB

  # Larger population, more trials, markdown report
  qrcache-bench run --urls 5000 --trials 30 --format markdown --output report.md`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark simulation",
	RunE:  runBenchmark,
}

func init() {
	runCmd.Flags().IntVar(&urlCount, "urls", workload.DefaultURLs, "size of the URL population")
	runCmd.Flags().IntVar(&requestCount, "requests", workload.DefaultRequests, "requests per trial")
	runCmd.Flags().IntVar(&trials, "trials", 10, "number of trials per configuration")
	runCmd.Flags().Float64Var(&exponent, "zipf", workload.DefaultExponent, "Zipf exponent (> 1)")
	runCmd.Flags().IntSliceVar(&edges, "edges", workload.DefaultEdges, "image edge lengths in pixels")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "seed of the first trial")
	runCmd.Flags().StringSliceVarP(&configArgs, "configs", "c", []string{"100:50MiB", "25:10MiB"}, "cache configurations as ENTRIES:COST; the first is the baseline")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	configs := make([]simulation.CacheConfig, 0, len(configArgs))
	order := make([]string, 0, len(configArgs))
	for _, arg := range configArgs {
		cfg, err := simulation.ParseCacheConfig(arg)
		if err != nil {
			return err
		}
		configs = append(configs, cfg)
		order = append(order, cfg.Name)
	}
	if len(configs) == 0 {
		return fmt.Errorf("no cache configurations given")
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Generating %d traces of %d requests...\n", trials, requestCount)
	}

	traces, err := workload.Trials(workload.Config{
		URLs:     urlCount,
		Requests: requestCount,
		Exponent: exponent,
		Edges:    edges,
		Seed:     seed,
	}, trials)
	if err != nil {
		return fmt.Errorf("generating traces: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Running simulation...")
	}

	sim := simulation.NewSimulator(configs...)
	results, err := sim.Run(traces)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	multi := analysis.CompareAll(results, order, order[0],
		10000, // Bootstrap iterations.
		0.95,  // 95% confidence.
	)

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch outputFormat {
	case "markdown":
		return writeMarkdownReport(output, results, order, multi)
	case "text":
		return writeTextReport(output, results, order, multi)
	default:
		return fmt.Errorf("unknown format: %s", outputFormat)
	}
}

func writeTextReport(w io.Writer, results map[string]*simulation.AggregateResult, order []string, multi *analysis.MultiConfigComparison) error {
	fmt.Fprintf(w, "qrcache Cache Sizing Benchmark\n")
	fmt.Fprintf(w, "==============================\n\n")
	fmt.Fprintf(w, "URLs: %d\n", urlCount)
	fmt.Fprintf(w, "Requests/trial: %d\n", requestCount)
	fmt.Fprintf(w, "Trials: %d\n", trials)
	fmt.Fprintf(w, "Zipf exponent: %.2f\n\n", exponent)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	for _, name := range order {
		res := results[name]
		metrics := simulation.ComputeMetrics(res)
		fmt.Fprintf(w, "%s:\n", name)
		fmt.Fprintf(w, "  Avg hit rate:      %.1f%%\n", metrics.AvgHitRate)
		fmt.Fprintf(w, "  Median hit rate:   %.1f%%\n", metrics.MedianHitRate)
		fmt.Fprintf(w, "  P10-P90:           %.1f%% - %.1f%%\n", metrics.P10HitRate, metrics.P90HitRate)
		fmt.Fprintf(w, "  Evictions/trial:   %.0f\n", metrics.AvgEvictionsPerTrial)
		fmt.Fprintf(w, "  Peak cost:         %s\n\n", humanize.IBytes(uint64(metrics.PeakCost)))
	}

	if len(order) > 1 {
		fmt.Fprintf(w, "Against %s:\n", order[0])
		fmt.Fprintf(w, "-----------%s\n\n", strings.Repeat("-", len(order[0])))
		base := simulation.ComputeMetrics(results[order[0]])
		for _, name := range order[1:] {
			d := simulation.Compare(simulation.ComputeMetrics(results[name]), base, name, order[0])
			fmt.Fprintf(w, "  %-12s hit rate %+.1f pts, evictions/trial %+.0f, peak cost %s%s\n",
				d.Config1, d.HitRateDiff, d.EvictionsDiff, sign(d.PeakCostDiff), humanize.IBytes(uint64(abs(d.PeakCostDiff))))
		}
		fmt.Fprintln(w)
	}

	if multi != nil && len(multi.Comparisons) > 0 {
		fmt.Fprintf(w, "Statistical Analysis:\n")
		fmt.Fprintf(w, "---------------------\n\n")
		for _, comp := range multi.Comparisons {
			fmt.Fprintln(w, comp.Summary())
			fmt.Fprintln(w)
		}
	}

	return nil
}

func sign(n int64) string {
	if n < 0 {
		return "-"
	}
	return "+"
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func writeMarkdownReport(w io.Writer, results map[string]*simulation.AggregateResult, order []string, multi *analysis.MultiConfigComparison) error {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("qrcache Cache Sizing Benchmark")
	report.WriteMethodology(reporting.Methodology{
		URLs:     urlCount,
		Requests: requestCount,
		Trials:   trials,
		Exponent: exponent,
		Edges:    edges,
	})
	report.WriteSummaryTable(results, order)

	if multi != nil {
		for _, comp := range multi.Comparisons {
			report.WriteComparison(comp)
		}
	}
	for _, name := range order {
		report.WriteDistributionChart(name, results[name].HitRates)
	}

	report.WriteFooter()
	return nil
}
