package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rzbill/segstore/internal/archive"
	cfgpkg "github.com/rzbill/segstore/internal/config"
	"github.com/rzbill/segstore/internal/metrics"
	"github.com/rzbill/segstore/internal/objstore"
	gcsstore "github.com/rzbill/segstore/internal/objstore/gcs"
	"github.com/rzbill/segstore/internal/objstore/memory"
	"github.com/rzbill/segstore/internal/objstore/natsobj"
	pebblestore "github.com/rzbill/segstore/internal/objstore/pebble"
	s3store "github.com/rzbill/segstore/internal/objstore/s3"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Metrics is optional. When nil a private registry is created.
	Metrics *metrics.Registry
	// Client bypasses the configured provider. Used by tests and embedders.
	Client objstore.Client
}

// Runtime wires config, the object storage backend and the archive facade.
type Runtime struct {
	config  cfgpkg.Config
	logger  logpkg.Logger
	client  objstore.Client
	metrics *metrics.Registry
	archive *archive.Archive
}

// Open validates the configuration, connects the configured backend and
// returns a Runtime.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry(metrics.Options{Provider: cfg.Provider})
	}
	if err := os.MkdirAll(cfg.LocalTempFolder, 0o755); err != nil {
		return nil, fmt.Errorf("local temp folder: %w", err)
	}

	client := opts.Client
	if client == nil {
		var err error
		client, err = openClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	instrumented := objstore.Instrument(client, reg.ObjectStore)

	rt := &Runtime{
		config:  cfg,
		logger:  logger,
		client:  instrumented,
		metrics: reg,
		archive: archive.New(instrumented, archive.Options{
			Logger:             logger,
			ListingMinInterval: cfg.Listing.MinInterval(),
			StagingDir:         cfg.LocalTempFolder,
			Metrics:            reg.Archive,
		}),
	}
	logger.Info("runtime opened",
		logpkg.Str("provider", cfg.Provider),
		logpkg.Str("bucket", client.Bucket()))
	return rt, nil
}

func openClient(ctx context.Context, cfg cfgpkg.Config, logger logpkg.Logger) (objstore.Client, error) {
	switch cfg.Provider {
	case cfgpkg.ProviderS3:
		return s3store.New(ctx, s3store.Options{
			Bucket:             cfg.Bucket,
			Region:             cfg.S3.Region,
			Endpoint:           cfg.S3.Endpoint,
			ForcePathStyle:     cfg.S3.ForcePathStyle,
			CredentialProvider: cfg.S3.CredentialProvider,
			AccessKeyID:        cfg.S3.AccessKeyID,
			SecretAccessKey:    cfg.S3.SecretAccessKey,
		})
	case cfgpkg.ProviderGCS:
		return gcsstore.New(ctx, gcsstore.Options{
			Bucket:                cfg.Bucket,
			CredentialProvider:    cfg.GCS.CredentialProvider,
			ServiceAccountKeyFile: cfg.GCS.ServiceAccountKeyFile,
			Endpoint:              cfg.GCS.Endpoint,
		})
	case cfgpkg.ProviderNATS:
		return natsobj.Connect(ctx, natsobj.Options{URL: cfg.NATS.URL, Bucket: cfg.Bucket, Name: "segstore"})
	case cfgpkg.ProviderPebble:
		mode, err := pebblestore.ParseFsyncMode(cfg.Pebble.Fsync)
		if err != nil {
			return nil, err
		}
		return pebblestore.Open(pebblestore.Options{
			DataDir:       cfg.Pebble.DataDir,
			Bucket:        cfg.Bucket,
			Fsync:         mode,
			FsyncInterval: time.Duration(cfg.Pebble.FsyncIntervalMs) * time.Millisecond,
			Logger:        logger,
		})
	case cfgpkg.ProviderMemory:
		return memory.New(memory.Options{Bucket: cfg.Bucket}), nil
	}
	return nil, fmt.Errorf("%w: provider=%s", cfgpkg.ErrInvalidConfig, cfg.Provider)
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.logger.Info("runtime closed")
	return err
}

// CheckHealth performs one list call against the bucket.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.client == nil {
		return errors.New("runtime closed")
	}
	return r.archive.CheckHealth(ctx)
}

// Archive returns the archive facade.
func (r *Runtime) Archive() *archive.Archive { return r.archive }

// Client returns the instrumented object storage client.
func (r *Runtime) Client() objstore.Client { return r.client }

// Metrics returns the metrics registry.
func (r *Runtime) Metrics() *metrics.Registry { return r.metrics }

// Logger returns the runtime logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
