package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, "sqlite", cfg.QueueDriver)
	assert.Equal(t, ExtractorSimulated, cfg.ExtractorDriver)
	assert.Zero(t, cfg.SyncFallbackInterval)
	assert.Equal(t, "http://localhost:8080/health", cfg.ProbeURL())
	assert.False(t, cfg.AzureEnabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
port: "9090"
queue_driver: file
queue_path: /tmp/queue.json
upload_endpoint: https://invoices.example.com/api
sync_fallback_interval: 5m
sync_concurrency: 2
jpeg_quality: 80
`)
	t.Setenv("SYNC_CONCURRENCY", "4")
	t.Setenv("UPLOAD_TIMEOUT", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "file", cfg.QueueDriver)
	assert.Equal(t, 5*time.Minute, cfg.SyncFallbackInterval)
	assert.Equal(t, 4, cfg.SyncConcurrency)
	assert.Equal(t, 10*time.Second, cfg.UploadTimeout)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.Equal(t, "https://invoices.example.com/api/health", cfg.ProbeURL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "99999"}},
		{"queue driver", map[string]string{"QUEUE_DRIVER": "redis"}},
		{"endpoint scheme", map[string]string{"UPLOAD_ENDPOINT": "ftp://example.com"}},
		{"http extractor without url", map[string]string{"EXTRACTOR_DRIVER": "http"}},
		{"unknown extractor", map[string]string{"EXTRACTOR_DRIVER": "magic"}},
		{"attempts", map[string]string{"UPLOAD_ATTEMPTS": "0"}},
		{"jpeg quality", map[string]string{"JPEG_QUALITY": "101"}},
		{"azure half configured", map[string]string{"AZURE_STORAGE_ACCOUNT": "acct"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "port: [1, 2"))
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("X_DURATION", "garbage")
	t.Setenv("X_INT", "12")
	assert.Equal(t, time.Second, parseDurationOrDefault("X_DURATION", time.Second))
	assert.Equal(t, int64(12), parseIntOrDefault("X_INT", 3))
	assert.Equal(t, "fallback", getEnvOrDefault("X_UNSET", "fallback"))
}
