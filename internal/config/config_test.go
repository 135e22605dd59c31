package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  driver: postgres
  dsn: postgres://db/pdt
blob:
  driver: s3
  s3_bucket_name: pdt-uploads
  aws_default_region: eu-central-1
  aws_access_key_id: AKIATEST
  aws_secret_access_key: secret
settle_seconds: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Warehouse.Driver != "postgres" || cfg.Warehouse.DSN != "postgres://db/pdt" {
		t.Fatalf("warehouse = %+v", cfg.Warehouse)
	}
	if cfg.Blob.S3Bucket != "pdt-uploads" || cfg.Blob.S3Region != "eu-central-1" {
		t.Fatalf("blob = %+v", cfg.Blob)
	}
	if cfg.SettleInterval() != 3*time.Second {
		t.Fatalf("settle interval = %v", cfg.SettleInterval())
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "settle_seconds: 1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Warehouse.Driver != "sqlite" || cfg.Blob.Driver != "fs" {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "warehouse: [not a mapping\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad warehouse driver", func(c *Config) { c.Warehouse.Driver = "oracle" }, true},
		{"bad blob driver", func(c *Config) { c.Blob.Driver = "ftp" }, true},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.Blob.Driver = "s3"; c.Blob.S3Bucket = "b" }, false},
		{"negative settle", func(c *Config) { c.SettleSeconds = -1 }, true},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}
