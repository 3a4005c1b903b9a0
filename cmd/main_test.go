package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UnknownOlympus/coordinfo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoringHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)
	appMetrics.RowsWritten.Add(100)

	server := httptest.NewServer(newMonitoringHandler(slog.New(slog.DiscardHandler), reg))
	defer server.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "coordinfo_rows_written_total 100")
	})
}

func TestServeMonitoring_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveMonitoring(ctx, slog.New(slog.DiscardHandler), prometheus.NewRegistry(), 0)
	}()

	cancel()

	assert.NoError(t, <-done)
}

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	assert.True(t, setupLogger(envLocal).Enabled(ctx, slog.LevelDebug))
	assert.False(t, setupLogger(envDev).Enabled(ctx, slog.LevelDebug))
	assert.True(t, setupLogger(envDev).Enabled(ctx, slog.LevelInfo))
	assert.False(t, setupLogger(envProd).Enabled(ctx, slog.LevelInfo))
	assert.True(t, setupLogger(envProd).Enabled(ctx, slog.LevelWarn))
	assert.False(t, setupLogger("unknown").Enabled(ctx, slog.LevelWarn))
}
