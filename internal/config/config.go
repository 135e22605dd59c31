// Package config loads the process secrets/configuration file. Loaded once
// at startup, read-only thereafter; a load failure is fatal.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds warehouse and blob-store settings plus pipeline tuning.
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Blob      BlobConfig      `yaml:"blob"`
	// SettleSeconds is the fixed wait after triggering a pipe before the
	// staged table is read. Tunable, not a readiness guarantee.
	SettleSeconds int `yaml:"settle_seconds"`
}

// WarehouseConfig selects the SQL backend.
type WarehouseConfig struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
}

// BlobConfig selects the durable blob store.
type BlobConfig struct {
	Driver          string `yaml:"driver"` // fs|s3|memory
	FSRoot          string `yaml:"fs_root"`
	S3Bucket        string `yaml:"s3_bucket_name"`
	S3Region        string `yaml:"aws_default_region"`
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3PathStyle     bool   `yaml:"s3_path_style"`
	AccessKeyID     string `yaml:"aws_access_key_id"`
	SecretAccessKey string `yaml:"aws_secret_access_key"`
	SessionToken    string `yaml:"aws_session_token"`
}

// Default returns the local development configuration.
func Default() *Config {
	return &Config{
		Warehouse:     WarehouseConfig{Driver: "sqlite", DSN: "pdtcore.db"},
		Blob:          BlobConfig{Driver: "fs", FSRoot: "./blobdata"},
		SettleSeconds: 10,
	}
}

// Load reads and parses a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and value sanity.
func (c *Config) Validate() error {
	switch c.Warehouse.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("warehouse.driver must be sqlite or postgres, got %q", c.Warehouse.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("blob.s3_bucket_name is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver must be fs, s3 or memory, got %q", c.Blob.Driver)
	}
	if c.SettleSeconds < 0 {
		return fmt.Errorf("settle_seconds must not be negative")
	}
	return nil
}

// SettleInterval returns the configured settle wait as a duration.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}
