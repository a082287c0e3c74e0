package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider != ProviderPebble {
		t.Fatalf("default provider = %q", cfg.Provider)
	}
	if cfg.Bucket == "" || cfg.LocalTempFolder == "" {
		t.Fatalf("bucket and temp folder must have defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "segstore.json")
	data := []byte(`{"provider":"s3","bucket":"logs","listing":{"minIntervalSeconds":5},"s3":{"region":"eu-west-1","forcePathStyle":true}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderS3 || cfg.Bucket != "logs" {
		t.Fatalf("unexpected provider/bucket: %q %q", cfg.Provider, cfg.Bucket)
	}
	if cfg.Listing.MinInterval() != 5*time.Second {
		t.Fatalf("min interval = %v", cfg.Listing.MinInterval())
	}
	if cfg.S3.Region != "eu-west-1" || !cfg.S3.ForcePathStyle {
		t.Fatalf("unexpected s3 section: %+v", cfg.S3)
	}
	// untouched keys keep defaults
	if cfg.Segment.MaxSeconds != 3600 {
		t.Fatalf("segment defaults lost: %+v", cfg.Segment)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "segstore.yaml")
	data := []byte(`provider: gcs
bucket: archive
localTempFolder: /tmp/seg
gcs:
  credentialProvider: service-account
  serviceAccountKeyFile: /etc/key.json
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderGCS || cfg.Bucket != "archive" || cfg.LocalTempFolder != "/tmp/seg" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.GCS.ServiceAccountKeyFile != "/etc/key.json" {
		t.Fatalf("gcs key file = %q", cfg.GCS.ServiceAccountKeyFile)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	file := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(file, []byte("provider: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
	cfg, err := Load("")
	if err != nil || cfg.Provider != ProviderPebble {
		t.Fatalf("empty path should return defaults: %+v %v", cfg, err)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("SEGSTORE_PROVIDER", "nats")
	t.Setenv("SEGSTORE_BUCKET", "segs")
	t.Setenv("SEGSTORE_NATS_URL", "nats://nats:4222")
	t.Setenv("SEGSTORE_LISTING_MIN_INTERVAL_SECONDS", "30")
	t.Setenv("SEGSTORE_SEGMENT_MAX_BYTES", "1024")
	t.Setenv("SEGSTORE_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("SEGSTORE_SEGMENT_MAX_SECONDS", "not-a-number")
	FromEnv(&cfg)

	if cfg.Provider != ProviderNATS || cfg.Bucket != "segs" || cfg.NATS.URL != "nats://nats:4222" {
		t.Fatalf("string overlay failed: %+v", cfg)
	}
	if cfg.Listing.MinIntervalSeconds != 30 || cfg.Segment.MaxBytes != 1024 {
		t.Fatalf("numeric overlay failed: %+v %+v", cfg.Listing, cfg.Segment)
	}
	if !cfg.S3.ForcePathStyle {
		t.Fatalf("bool overlay failed")
	}
	if cfg.Segment.MaxSeconds != 3600 {
		t.Fatalf("unparseable value should be ignored, got %d", cfg.Segment.MaxSeconds)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
		key    string
	}{
		{"no provider", func(c *Config) { c.Provider = "" }, ErrMissingConfig, "provider"},
		{"unknown provider", func(c *Config) { c.Provider = "ftp" }, ErrInvalidConfig, "provider"},
		{"no bucket", func(c *Config) { c.Bucket = "" }, ErrMissingConfig, "bucket"},
		{"no temp folder", func(c *Config) { c.LocalTempFolder = "" }, ErrMissingConfig, "localTempFolder"},
		{"max seconds", func(c *Config) { c.Segment.MaxSeconds = 0 }, ErrInvalidConfig, "segment.maxSeconds"},
		{"max bytes", func(c *Config) { c.Segment.MaxBytes = -1 }, ErrInvalidConfig, "segment.maxBytes"},
		{"sync interval", func(c *Config) { c.Segment.SyncInterval = 0 }, ErrInvalidConfig, "segment.syncInterval"},
		{"listing interval", func(c *Config) { c.Listing.MinIntervalSeconds = -1 }, ErrInvalidConfig, "listing.minIntervalSeconds"},
		{"static s3 without key", func(c *Config) {
			c.Provider = ProviderS3
			c.S3.CredentialProvider = "static"
		}, ErrMissingConfig, "s3.accessKeyId"},
		{"static s3 without secret", func(c *Config) {
			c.Provider = ProviderS3
			c.S3.CredentialProvider = "static"
			c.S3.AccessKeyID = "AKIA"
		}, ErrMissingConfig, "s3.secretAccessKey"},
		{"s3 credential provider", func(c *Config) {
			c.Provider = ProviderS3
			c.S3.CredentialProvider = "vault"
		}, ErrInvalidConfig, "s3.credentialProvider"},
		{"gcs service account", func(c *Config) {
			c.Provider = ProviderGCS
			c.GCS.CredentialProvider = "service-account"
		}, ErrMissingConfig, "gcs.serviceAccountKeyFile"},
		{"nats url", func(c *Config) {
			c.Provider = ProviderNATS
			c.NATS.URL = ""
		}, ErrMissingConfig, "nats.url"},
		{"pebble dir", func(c *Config) { c.Pebble.DataDir = "" }, ErrMissingConfig, "pebble.dataDir"},
		{"pebble fsync", func(c *Config) { c.Pebble.Fsync = "sometimes" }, ErrInvalidConfig, "pebble.fsync"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if got := err.Error(); !strings.Contains(got, tc.key) {
				t.Fatalf("error %q does not name %q", got, tc.key)
			}
		})
	}
}

func TestValidateMemoryProvider(t *testing.T) {
	cfg := Default()
	cfg.Provider = ProviderMemory
	cfg.Pebble.DataDir = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory provider: %v", err)
	}
}
