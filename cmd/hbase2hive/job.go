package main

import (
	"context"
	"fmt"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/config"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/storage"
)

// loadConfig loads configuration from file, environment, and flags, in that
// order of precedence (flags win).
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if flags.configFile != "" {
		cfg, err = config.LoadFromFile(flags.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.schemaFile != "" {
		cfg.Job.SchemaFile = flags.schemaFile
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	cfg.Resolve()
	return cfg, nil
}

// openStorage creates the object storage backend named by the configuration.
func openStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.Storage.S3.Region != "" {
			s3cfg.Region = cfg.Storage.S3.Region
		}
		s3cfg.Endpoint = cfg.Storage.S3.Endpoint
		s3cfg.UsePathStyle = cfg.Storage.S3.UsePathStyle
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, s3cfg)
	case "local", "":
		return storage.NewLocalStorage(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// reportCompressor returns nil when reports are written as plain JSON.
func reportCompressor(name string) (codec.Compressor, error) {
	if name == "" || name == "none" {
		return nil, nil
	}
	return codec.NewCompressor(name)
}
