package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/qrcache"
	"github.com/discochess/qrcache/internal/sink/destination"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a list of URLs and upload the PNGs",
	Long: `Render every URL in an input file and write each PNG to a destination.

The input holds one URL per line. Blank lines and lines starting with #
are skipped. Objects are named qr/<uuid>.png where the UUID is derived
from the URL, so re-exporting the same URL overwrites the same object.

Destinations:
  ./dir or file:///dir    local directory
  s3://bucket/prefix      Amazon S3 (or compatible)
  gs://bucket/prefix      Google Cloud Storage

Examples:
  # Export to a local directory
  qrcache export --input links.txt --dest ./out

  # Export to GCS with 16 concurrent uploads
  qrcache export --input links.txt --dest gs://my-bucket/qr --concurrency 16`,
	RunE: runExport,
}

var (
	inputFile   string
	exportDest  string
	concurrency int
)

func init() {
	exportCmd.Flags().StringVarP(&inputFile, "input", "i", "-", "file with one URL per line (- for stdin)")
	exportCmd.Flags().StringVarP(&exportDest, "dest", "d", "", "destination: directory, s3://bucket/prefix or gs://bucket/prefix")
	exportCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "number of concurrent exports")
	exportCmd.MarkFlagRequired("dest")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	// Setup context with cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping export...")
			cancel()
		case <-ctx.Done():
		}
	}()

	urls, err := readURLs(inputFile)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs in %s", inputFile)
	}

	s, err := destination.Open(ctx, exportDest)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}

	client, err := newClient(logger, nil, qrcache.WithSink(s))
	if err != nil {
		s.Close()
		return fmt.Errorf("creating client: %w", err)
	}
	defer client.Close()

	fmt.Printf("Exporting QR codes\n")
	fmt.Printf("  URLs:        %d\n", len(urls))
	fmt.Printf("  Destination: %s\n", exportDest)
	fmt.Printf("  Concurrency: %d\n", concurrency)
	fmt.Println()

	start := time.Now()
	names, err := client.ExportAll(ctx, urls, concurrency)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	for i, name := range names {
		fmt.Printf("%s\t%s\n", name, urls[i])
	}

	st := client.Stats()
	fmt.Println()
	fmt.Printf("Exported %d objects in %s\n", len(names), time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Cache hits: %d (%.1f%%)\n", st.Hits, st.HitRate())
	fmt.Printf("  Evictions:  %d\n", st.Evictions)
	return nil
}

// readURLs reads the input file, or stdin for "-".
func readURLs(path string) ([]string, error) {
	if path == "-" {
		return parseURLs(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return parseURLs(f)
}

// parseURLs returns the non-blank, non-comment lines of r with surrounding
// whitespace trimmed.
func parseURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return urls, nil
}
