package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render URL",
	Short: "Render the QR code for a URL",
	Long: `Render the QR code for a URL and write it as PNG.

The URL is encoded exactly as given; no normalization is applied.

Examples:
  # Write to a file
  qrcache render https://example.com -o example.png

  # Write to stdout
  qrcache render https://example.com > example.png`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	outputFile string
	showTiming bool
)

func init() {
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	renderCmd.Flags().BoolVar(&showTiming, "timing", false, "show render timing on stderr")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	client, err := newClient(logger, nil)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer client.Close()

	start := time.Now()
	data, err := client.PNG(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	elapsed := time.Since(start)

	if outputFile == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if showTiming {
		info := client.Info()
		fmt.Fprintf(os.Stderr, "Time:   %s\n", elapsed)
		fmt.Fprintf(os.Stderr, "Bytes:  %s\n", humanize.IBytes(uint64(len(data))))
		fmt.Fprintf(os.Stderr, "Cached: %d entries, %s\n", info.Count, humanize.IBytes(uint64(info.TotalCost)))
	}
	return nil
}
