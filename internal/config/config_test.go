package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ValidOnceSchemaSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	require.Error(t, cfg.Validate(), "schema file is required")

	cfg.Job.SchemaFile = "table.yaml"
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join("data", "h2h", "source.db"), filepath.Clean(cfg.Source.Path))
	assert.Equal(t, filepath.Join("data", "h2h", "reports"), filepath.Clean(cfg.Sink.ReportDir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Job.Workers = 0 }},
		{"no partition size", func(c *Config) { c.Job.PartitionSize = 0 }},
		{"negative window", func(c *Config) { c.Job.InitialWindow = -1 }},
		{"max below initial", func(c *Config) { c.Job.MaxWindow = 1 }},
		{"bad compression", func(c *Config) { c.Sink.Compression = "gzip" }},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"status without addr", func(c *Config) { c.Status.Enabled = true; c.Status.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Job.SchemaFile = "table.yaml"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
data_dir: /tmp/h2h
job:
  schema_file: invoices.yaml
  workers: 8
  max_window: 96
sink:
  compression: zstd
storage:
  type: s3
  s3:
    bucket: recon
logging:
  level: debug
`), 0644))

	cfg, err := LoadFromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h2h", cfg.DataDir)
	assert.Equal(t, 8, cfg.Job.Workers)
	assert.Equal(t, 96, cfg.Job.MaxWindow)
	assert.Equal(t, 1000, cfg.Job.PartitionSize, "defaults survive partial files")
	assert.Equal(t, "zstd", cfg.Sink.Compression)
	assert.Equal(t, "recon", cfg.Storage.S3.Bucket)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())

	jsonPath := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"job":{"schema_file":"a.yaml","workers":2}}`), 0644))
	cfg, err = LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Job.Workers)

	_, err = LoadFromFile(filepath.Join(dir, "job.toml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("H2H_SCHEMA_FILE", "env.yaml")
	t.Setenv("H2H_WORKERS", "16")
	t.Setenv("H2H_STRICT_COLUMNS", "true")
	t.Setenv("H2H_TIMEOUT", "90s")
	t.Setenv("H2H_STORAGE_TYPE", "s3")
	t.Setenv("H2H_S3_BUCKET", "bucket")
	t.Setenv("H2H_STATUS_ENABLED", "1")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, "env.yaml", cfg.Job.SchemaFile)
	assert.Equal(t, 16, cfg.Job.Workers)
	assert.True(t, cfg.Job.StrictColumns)
	assert.Equal(t, 90*time.Second, cfg.Job.Timeout)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "bucket", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Status.Enabled)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "h2h")
	cfg.Resolve()
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.DataDir, cfg.Sink.ReportDir, cfg.Storage.Path} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
