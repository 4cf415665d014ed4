// Package config provides configuration for migration jobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/logger"
)

// Config holds the configuration of one migration job.
type Config struct {
	// DataDir is the base directory for local data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Job     JobConfig     `json:"job" yaml:"job"`
	Source  SourceConfig  `json:"source" yaml:"source"`
	Sink    SinkConfig    `json:"sink" yaml:"sink"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging logger.Config `json:"logging" yaml:"logging"`
	Status  StatusConfig  `json:"status" yaml:"status"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// JobConfig holds pipeline settings.
type JobConfig struct {
	// ID identifies the run; generated when empty
	ID string `json:"id" yaml:"id"`

	// SchemaFile is the YAML table definition
	SchemaFile string `json:"schema_file" yaml:"schema_file"`

	// Workers is the number of partitions processed in parallel
	Workers int `json:"workers" yaml:"workers"`

	// PartitionSize is the number of rows per partition
	PartitionSize int `json:"partition_size" yaml:"partition_size"`

	// InitialWindow is the number of versions scanned per qualifier on the first read
	InitialWindow int `json:"initial_window" yaml:"initial_window"`

	// MaxWindow bounds re-reads of ambiguous rows; larger windows are requeued
	MaxWindow int `json:"max_window" yaml:"max_window"`

	// StrictColumns fails a row on an unknown qualifier instead of skipping it
	StrictColumns bool `json:"strict_columns" yaml:"strict_columns"`

	// Timeout bounds the whole run; zero means no limit
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// SourceConfig locates the wide-column cells.
type SourceConfig struct {
	// Path is the sqlite database holding the cells table
	Path string `json:"path" yaml:"path"`

	// Table is the cells table name
	Table string `json:"table" yaml:"table"`
}

// SinkConfig locates the target table and recon reports.
type SinkConfig struct {
	// Path is the sqlite database receiving target rows
	Path string `json:"path" yaml:"path"`

	// ReportDir is where recon reports are written before upload
	ReportDir string `json:"report_dir" yaml:"report_dir"`

	// Compression compresses report files: "", snappy, zstd or lz4
	Compression string `json:"compression" yaml:"compression"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// StatusConfig configures the gRPC health endpoint.
type StatusConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// MetricsConfig toggles metric collection.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the default configuration for local runs.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/h2h",
		Job: JobConfig{
			Workers:       4,
			PartitionSize: 1000,
			InitialWindow: 3,
			MaxWindow:     48,
		},
		Source:  SourceConfig{Table: "cells"},
		Storage: StorageConfig{Type: "local"},
		Logging: logger.DefaultConfig(),
		Status:  StatusConfig{Addr: ":9090"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/h2h"
	}
	if c.Source.Table == "" {
		c.Source.Table = "cells"
	}
	if c.Source.Path == "" {
		c.Source.Path = filepath.Join(c.DataDir, "source.db")
	}
	if c.Sink.Path == "" {
		c.Sink.Path = filepath.Join(c.DataDir, "target.db")
	}
	if c.Sink.ReportDir == "" {
		c.Sink.ReportDir = filepath.Join(c.DataDir, "reports")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Job.SchemaFile == "" {
		return fmt.Errorf("job.schema_file is required")
	}
	if c.Job.Workers < 1 {
		return fmt.Errorf("job.workers must be at least 1, got %d", c.Job.Workers)
	}
	if c.Job.PartitionSize < 1 {
		return fmt.Errorf("job.partition_size must be at least 1, got %d", c.Job.PartitionSize)
	}
	if c.Job.InitialWindow < 0 {
		return fmt.Errorf("job.initial_window must not be negative, got %d", c.Job.InitialWindow)
	}
	if c.Job.InitialWindow > 0 && c.Job.MaxWindow < c.Job.InitialWindow {
		return fmt.Errorf("job.max_window (%d) must be at least job.initial_window (%d)",
			c.Job.MaxWindow, c.Job.InitialWindow)
	}

	switch c.Sink.Compression {
	case "", "none", "snappy", "zstd", "lz4":
	default:
		return fmt.Errorf("invalid sink.compression: %s (must be snappy, zstd or lz4)", c.Sink.Compression)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr is required when status is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the H2H_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("H2H_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Job configuration
	if v := os.Getenv("H2H_JOB_ID"); v != "" {
		cfg.Job.ID = v
	}
	if v := os.Getenv("H2H_SCHEMA_FILE"); v != "" {
		cfg.Job.SchemaFile = v
	}
	if v := os.Getenv("H2H_WORKERS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Job.Workers)
	}
	if v := os.Getenv("H2H_PARTITION_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Job.PartitionSize)
	}
	if v := os.Getenv("H2H_INITIAL_WINDOW"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Job.InitialWindow)
	}
	if v := os.Getenv("H2H_MAX_WINDOW"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Job.MaxWindow)
	}
	if v := os.Getenv("H2H_STRICT_COLUMNS"); v != "" {
		cfg.Job.StrictColumns = v == "true" || v == "1"
	}
	if v := os.Getenv("H2H_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Job.Timeout = d
		}
	}

	// Source and sink
	if v := os.Getenv("H2H_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("H2H_SOURCE_TABLE"); v != "" {
		cfg.Source.Table = v
	}
	if v := os.Getenv("H2H_SINK_PATH"); v != "" {
		cfg.Sink.Path = v
	}
	if v := os.Getenv("H2H_REPORT_DIR"); v != "" {
		cfg.Sink.ReportDir = v
	}
	if v := os.Getenv("H2H_REPORT_COMPRESSION"); v != "" {
		cfg.Sink.Compression = v
	}

	// Storage configuration
	if v := os.Getenv("H2H_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("H2H_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("H2H_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("H2H_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("H2H_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// Logging, status, metrics
	if v := os.Getenv("H2H_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("H2H_LOG_ENCODING"); v != "" {
		cfg.Logging.Encoding = v
	}
	if v := os.Getenv("H2H_STATUS_ENABLED"); v != "" {
		cfg.Status.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("H2H_STATUS_ADDR"); v != "" {
		cfg.Status.Addr = v
	}
	if v := os.Getenv("H2H_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Source.Path),
		filepath.Dir(c.Sink.Path),
		c.Sink.ReportDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
