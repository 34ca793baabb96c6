package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/qrcache/internal/server"
	"github.com/discochess/qrcache/internal/stats/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve QR codes over HTTP",
	Long: `Start an HTTP server that renders QR codes on demand.

Routes:
  GET    /qr?url=URL   PNG for URL
  GET    /cache        cache occupancy, limits and hit statistics (JSON)
  DELETE /cache        drop every cached image
  GET    /metrics      Prometheus metrics
  GET    /health       liveness probe

Examples:
  qrcache serve --addr :8080
  curl -o example.png 'http://localhost:8080/qr?url=https://example.com'`,
	RunE: runServe,
}

var (
	listenAddr      string
	shutdownTimeout time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	collector := prometheus.New(nil)
	client, err := newClient(logger, collector)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer client.Close()

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.New(client, collector.Handler(), logger.Named("server")).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		limits := client.Limits()
		logger.Info("listening",
			zap.String("addr", listenAddr),
			zap.Int("maxEntries", limits.MaxEntries),
			zap.Int64("maxCost", limits.MaxCost),
		)
		fmt.Fprintf(os.Stderr, "Listening on %s\n", listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
