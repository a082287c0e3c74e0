package config

import (
	"os"
	"strconv"
)

// FromEnv overlays SEGSTORE_* environment variables onto cfg. Unparseable
// numeric and boolean values are ignored.
func FromEnv(cfg *Config) {
	setStr("SEGSTORE_PROVIDER", &cfg.Provider)
	setStr("SEGSTORE_BUCKET", &cfg.Bucket)
	setStr("SEGSTORE_LOCAL_TEMP_FOLDER", &cfg.LocalTempFolder)

	setInt("SEGSTORE_SEGMENT_MAX_SECONDS", &cfg.Segment.MaxSeconds)
	setInt64("SEGSTORE_SEGMENT_MAX_BYTES", &cfg.Segment.MaxBytes)
	setInt64("SEGSTORE_SEGMENT_SYNC_INTERVAL", &cfg.Segment.SyncInterval)
	setInt("SEGSTORE_LISTING_MIN_INTERVAL_SECONDS", &cfg.Listing.MinIntervalSeconds)

	setStr("SEGSTORE_S3_REGION", &cfg.S3.Region)
	setStr("SEGSTORE_S3_ENDPOINT", &cfg.S3.Endpoint)
	setBool("SEGSTORE_S3_FORCE_PATH_STYLE", &cfg.S3.ForcePathStyle)
	setStr("SEGSTORE_S3_CREDENTIAL_PROVIDER", &cfg.S3.CredentialProvider)
	setStr("SEGSTORE_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	setStr("SEGSTORE_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)

	setStr("SEGSTORE_GCS_CREDENTIAL_PROVIDER", &cfg.GCS.CredentialProvider)
	setStr("SEGSTORE_GCS_SERVICE_ACCOUNT_KEY_FILE", &cfg.GCS.ServiceAccountKeyFile)
	setStr("SEGSTORE_GCS_ENDPOINT", &cfg.GCS.Endpoint)

	setStr("SEGSTORE_NATS_URL", &cfg.NATS.URL)

	setStr("SEGSTORE_PEBBLE_DATA_DIR", &cfg.Pebble.DataDir)
	setStr("SEGSTORE_PEBBLE_FSYNC", &cfg.Pebble.Fsync)
	setInt("SEGSTORE_PEBBLE_FSYNC_INTERVAL_MS", &cfg.Pebble.FsyncIntervalMs)

	setStr("SEGSTORE_LOG_LEVEL", &cfg.Log.Level)
	setStr("SEGSTORE_LOG_FORMAT", &cfg.Log.Format)
	setStr("SEGSTORE_HTTP_ADDR", &cfg.HTTP.Addr)
}

func setStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
