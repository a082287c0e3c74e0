package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	logpkg "github.com/rzbill/segstore/pkg/log"
)

// Providers accepted in Config.Provider.
const (
	ProviderS3     = "s3"
	ProviderGCS    = "gcs"
	ProviderNATS   = "nats"
	ProviderPebble = "pebble"
	ProviderMemory = "memory"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Provider        string        `json:"provider" yaml:"provider"`
	Bucket          string        `json:"bucket" yaml:"bucket"`
	LocalTempFolder string        `json:"localTempFolder" yaml:"localTempFolder"`
	Segment         SegmentConfig `json:"segment" yaml:"segment"`
	Listing         ListingConfig `json:"listing" yaml:"listing"`
	S3              S3Config      `json:"s3" yaml:"s3"`
	GCS             GCSConfig     `json:"gcs" yaml:"gcs"`
	NATS            NATSConfig    `json:"nats" yaml:"nats"`
	Pebble          PebbleConfig  `json:"pebble" yaml:"pebble"`
	Log             logpkg.Config `json:"log" yaml:"log"`
	HTTP            HTTPConfig    `json:"http" yaml:"http"`
}

// SegmentConfig carries the writer-side rotation and sync settings handed to
// the log engine. segstore validates them but does not act on them.
type SegmentConfig struct {
	MaxSeconds   int   `json:"maxSeconds" yaml:"maxSeconds"`
	MaxBytes     int64 `json:"maxBytes" yaml:"maxBytes"`
	SyncInterval int64 `json:"syncInterval" yaml:"syncInterval"`
}

// ListingConfig bounds how often a topic is listed remotely.
type ListingConfig struct {
	MinIntervalSeconds int `json:"minIntervalSeconds" yaml:"minIntervalSeconds"`
}

// MinInterval returns MinIntervalSeconds as a duration.
func (l ListingConfig) MinInterval() time.Duration {
	return time.Duration(l.MinIntervalSeconds) * time.Second
}

// S3Config configures the s3 provider.
type S3Config struct {
	Region             string `json:"region" yaml:"region"`
	Endpoint           string `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle     bool   `json:"forcePathStyle" yaml:"forcePathStyle"`
	CredentialProvider string `json:"credentialProvider" yaml:"credentialProvider"`
	AccessKeyID        string `json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey    string `json:"secretAccessKey" yaml:"secretAccessKey"`
}

// GCSConfig configures the gcs provider.
type GCSConfig struct {
	CredentialProvider    string `json:"credentialProvider" yaml:"credentialProvider"`
	ServiceAccountKeyFile string `json:"serviceAccountKeyFile" yaml:"serviceAccountKeyFile"`
	Endpoint              string `json:"endpoint" yaml:"endpoint"`
}

// NATSConfig configures the nats provider.
type NATSConfig struct {
	URL string `json:"url" yaml:"url"`
}

// PebbleConfig configures the pebble provider.
type PebbleConfig struct {
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns built-in defaults: a local Pebble bucket under the OS data
// directory.
func Default() Config {
	return Config{
		Provider:        ProviderPebble,
		Bucket:          "segments",
		LocalTempFolder: DefaultStagingDir(),
		Segment: SegmentConfig{
			MaxSeconds:   3600,
			MaxBytes:     64 << 20,
			SyncInterval: 200 << 10,
		},
		Listing: ListingConfig{MinIntervalSeconds: 0},
		S3: S3Config{
			CredentialProvider: "default",
		},
		GCS: GCSConfig{
			CredentialProvider: "compute-engine",
		},
		NATS: NATSConfig{URL: "nats://127.0.0.1:4222"},
		Pebble: PebbleConfig{
			DataDir: filepath.Join(DefaultDataDir(), "objects"),
			Fsync:   "always",
		},
		Log:  logpkg.Config{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// Default(). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return cfg, nil
}
