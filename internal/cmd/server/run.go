package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/segstore/internal/config"
	"github.com/rzbill/segstore/internal/metrics"
	"github.com/rzbill/segstore/internal/runtime"
	httpserver "github.com/rzbill/segstore/internal/server/http"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// Options configures Run.
type Options struct {
	Config cfgpkg.Config
	// HTTPAddr overrides Config.HTTP.Addr when set.
	HTTPAddr string
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// processLogger builds the process-wide logger from cfg, falling back to a
// text logger at info level when the configuration is unusable.
func processLogger(cfg logpkg.Config) logpkg.Logger {
	l, err := logpkg.ApplyConfig(&cfg)
	if err == nil {
		return l
	}
	lvl := logpkg.InfoLevel
	if parsed, e := logpkg.ParseLevel(cfg.Level); e == nil {
		lvl = parsed
	}
	return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
}

// Run opens the runtime, serves HTTP and blocks until ctx is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	addr := opts.HTTPAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	logger := opts.Logger
	if logger == nil {
		logger = processLogger(cfg.Log)
	}
	restore := logpkg.RedirectStdLog(logger)
	defer restore()

	reg := metrics.NewRegistry(metrics.Options{Provider: cfg.Provider, IncludeRuntime: true})
	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: logger, Metrics: reg})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting segstore server",
		logpkg.Str("provider", cfg.Provider),
		logpkg.Str("bucket", cfg.Bucket),
		logpkg.Str("http", addr),
		logpkg.Dur("listing_min_interval", cfg.Listing.MinInterval()),
	)
	if err := rt.CheckHealth(sctx); err != nil {
		logger.Warn("bucket not reachable at startup", logpkg.Err(err))
	}

	hsrv := httpserver.New(rt, logger)
	err = hsrv.ListenAndServe(sctx, addr)
	hsrv.Close()
	if err != nil && sctx.Err() == nil {
		return err
	}
	return nil
}
