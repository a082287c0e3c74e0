// Package objstore defines the vendor-neutral object storage client used by
// segstore, plus helpers shared by every backend.
//
// # Overview
//
// A Client is bound to one bucket and exposes the handful of calls the segment
// archive needs: paginated prefix listing, ranged GET from an offset to the end
// of an object, a size probe, whole-object PUT, and single or bulk DELETE.
//
// Backends live in sub-packages:
//   - memory:  in-process fake used by unit tests
//   - s3:      AWS S3 and S3-compatible endpoints (MinIO)
//   - gcs:     Google Cloud Storage
//   - natsobj: NATS JetStream object store
//   - pebble:  local Pebble database for development and single-node setups
//
// # Errors
//
// Backends map their own not-found conditions to ErrNotFound and wrap every
// other transport failure with ErrBackendUnavailable. Nothing here retries;
// retry policy belongs to the SDK client configuration or the caller.
//
// # Metrics
//
// Instrument decorates a Client and reports per-operation latency, errors and
// bytes to a MetricsHook. The Prometheus implementation lives in
// internal/metrics.
package objstore
