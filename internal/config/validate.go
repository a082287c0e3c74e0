package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfig reports a required key without a value.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrInvalidConfig reports a key with an unusable value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

func missing(key string) error { return fmt.Errorf("%w: %s", ErrMissingConfig, key) }

func invalid(key string, v any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidConfig, key, v)
}

// Validate checks every key the configured provider needs. It fails on the
// first problem and names the offending key.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderS3, ProviderGCS, ProviderNATS, ProviderPebble, ProviderMemory:
	case "":
		return missing("provider")
	default:
		return invalid("provider", c.Provider)
	}
	if c.Bucket == "" {
		return missing("bucket")
	}
	if c.LocalTempFolder == "" {
		return missing("localTempFolder")
	}
	if c.Segment.MaxSeconds <= 0 {
		return invalid("segment.maxSeconds", c.Segment.MaxSeconds)
	}
	if c.Segment.MaxBytes <= 0 {
		return invalid("segment.maxBytes", c.Segment.MaxBytes)
	}
	if c.Segment.SyncInterval <= 0 {
		return invalid("segment.syncInterval", c.Segment.SyncInterval)
	}
	if c.Listing.MinIntervalSeconds < 0 {
		return invalid("listing.minIntervalSeconds", c.Listing.MinIntervalSeconds)
	}

	switch c.Provider {
	case ProviderS3:
		switch c.S3.CredentialProvider {
		case "", "default":
		case "static":
			if c.S3.AccessKeyID == "" {
				return missing("s3.accessKeyId")
			}
			if c.S3.SecretAccessKey == "" {
				return missing("s3.secretAccessKey")
			}
		default:
			return invalid("s3.credentialProvider", c.S3.CredentialProvider)
		}
	case ProviderGCS:
		switch c.GCS.CredentialProvider {
		case "", "compute-engine":
		case "service-account":
			if c.GCS.ServiceAccountKeyFile == "" && c.GCS.Endpoint == "" {
				return missing("gcs.serviceAccountKeyFile")
			}
		default:
			return invalid("gcs.credentialProvider", c.GCS.CredentialProvider)
		}
	case ProviderNATS:
		if c.NATS.URL == "" {
			return missing("nats.url")
		}
	case ProviderPebble:
		if c.Pebble.DataDir == "" {
			return missing("pebble.dataDir")
		}
		switch c.Pebble.Fsync {
		case "", "default", "always", "interval", "never":
		default:
			return invalid("pebble.fsync", c.Pebble.Fsync)
		}
	}
	return nil
}
