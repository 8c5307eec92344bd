package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 10, cfg.CDWRBatchSize)
	assert.Equal(t, 300*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.HTTPRetries)
	assert.Equal(t, "https://waterservices.usgs.gov/nwis", cfg.NWISBaseURL)
	assert.Equal(t, "bfa9f262-24a1-45bd-8dc8-138bc8107266", cfg.CDWRPeriodicResource)
	assert.Equal(t, 365*24*time.Hour, cfg.ActiveWindow)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.PublishEnabled())
	assert.Equal(t, "groundwater-levels", cfg.KafkaTopic)
	assert.Empty(t, cfg.CodeTablesFile)
	assert.Empty(t, cfg.StatusAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	tables := filepath.Join(t.TempDir(), "codes.yaml")
	require.NoError(t, os.WriteFile(tables, []byte("agencies: {}\n"), 0o600))

	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("CDWR_BATCH_SIZE", "5")
	t.Setenv("HTTP_TIMEOUT", "30s")
	t.Setenv("HTTP_RETRIES", "2")
	t.Setenv("NWIS_BASE_URL", "http://localhost:9000/nwis")
	t.Setenv("ACTIVE_WINDOW_DAYS", "730")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "levels")
	t.Setenv("CODE_TABLES_FILE", tables)
	t.Setenv("METRICS_TEXTFILE", "/tmp/gw_etl.prom")
	t.Setenv("STATUS_ADDR", ":8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 5, cfg.CDWRBatchSize)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.HTTPRetries)
	assert.Equal(t, "http://localhost:9000/nwis", cfg.NWISBaseURL)
	assert.Equal(t, 730*24*time.Hour, cfg.ActiveWindow)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishEnabled())
	assert.Equal(t, "levels", cfg.KafkaTopic)
	assert.Equal(t, tables, cfg.CodeTablesFile)
	assert.Equal(t, "/tmp/gw_etl.prom", cfg.MetricsTextfile)
	assert.Equal(t, ":8080", cfg.StatusAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "51"},
		{"CDWR_BATCH_SIZE", "11"},
		{"CDWR_BATCH_SIZE", "ten"},
		{"HTTP_TIMEOUT", "forever"},
		{"HTTP_TIMEOUT", "-1s"},
		{"HTTP_RETRIES", "-1"},
		{"ACTIVE_WINDOW_DAYS", "0"},
		{"SHUTDOWN_TIMEOUT", "soon"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"CODE_TABLES_FILE", "/does/not/exist.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
