package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/coordinfo/internal/config"
	"github.com/UnknownOlympus/coordinfo/internal/dataset"
	"github.com/UnknownOlympus/coordinfo/internal/geocoding"
	"github.com/UnknownOlympus/coordinfo/internal/metrics"
	"github.com/UnknownOlympus/coordinfo/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 5 * time.Second

// main is the entry point of the application.
func main() {
	// Interrupting the run stops it before the next row; the partial batch is not written.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cobra.Command{
		Use:          "coordinfo",
		Short:        "Enrich a CSV dataset with reverse geocoded location descriptors",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd)
		},
	}
	config.RegisterFlags(cmd.Flags())

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// run wires the configuration, the provider and the pipeline together and
// enriches the configured input until it is exhausted or ctx is canceled.
func run(ctx context.Context, cmd *cobra.Command) error {
	// Load application configuration.
	cfg := config.MustLoad(cmd.Flags())

	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// One identity per process, shared by every request of the run.
	identity := geocoding.NewClientIdentity()

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		RateLimit: cfg.Provider.RateLimit,
		UserAgent: identity,
		Language:  cfg.Provider.Language,
		Timeout:   cfg.Provider.Timeout,
		Logger:    logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create geocoding provider", "error", err)
		return err
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type, "identity", identity)

	table, err := dataset.ReadFile(cfg.Input, cfg.Delimiter)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read input dataset", "path", cfg.Input, "error", err)
		return err
	}
	logger.InfoContext(ctx, "Input dataset loaded", "path", cfg.Input, "rows", len(table.Rows))

	client := geocoding.NewClient(geoProvider, cfg.Provider.Type, logger, appMetrics)
	pipe := pipeline.NewPipeline(logger, client, appMetrics, cfg.Verbose)
	sink := dataset.NewAppendFile(cfg.Output, cfg.Delimiter)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(runCtx)

	var stats pipeline.Stats
	group.Go(func() error {
		// The monitoring server lives as long as the run.
		defer cancel()

		var runErr error
		stats, runErr = pipe.Run(groupCtx, table, cfg.Offset, sink)
		return runErr
	})

	if cfg.Port > 0 {
		group.Go(func() error {
			return serveMonitoring(groupCtx, logger, reg, cfg.Port)
		})
	}

	err = group.Wait()
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Enrichment completed",
			"processed", stats.Processed,
			"written", stats.Written,
			"batches", stats.Batches,
			"dropped", stats.Dropped,
			"next_offset", stats.NextOffset,
			"output", sink.Path())
		return nil
	case errors.Is(err, context.Canceled):
		logger.WarnContext(ctx, "Enrichment interrupted, resume with --offset",
			"written", stats.Written,
			"dropped", stats.Dropped,
			"next_offset", stats.NextOffset)
		return nil
	default:
		logger.ErrorContext(ctx, "Enrichment failed", "next_offset", stats.NextOffset, "error", err)
		return err
	}
}

// newMonitoringHandler returns the handler serving health check and metrics endpoints.
func newMonitoringHandler(log *slog.Logger, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(req.Context(), "Performing health checks...")
		writer.WriteHeader(http.StatusOK)
		if _, err := writer.Write([]byte("OK")); err != nil {
			log.ErrorContext(req.Context(), "failed to write reply", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// serveMonitoring runs the monitoring server on port until ctx is canceled,
// then shuts it down.
func serveMonitoring(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, port int) error {
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMonitoringHandler(log, reg),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
		return fmt.Errorf("monitoring server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down monitoring server: %w", err)
	}

	return nil
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
