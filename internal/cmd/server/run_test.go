package serverrun

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/segstore/internal/config"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

func TestProcessLoggerFallback(t *testing.T) {
	if l := processLogger(logpkg.Config{Level: "debug", Format: "json"}); l.GetLevel() != logpkg.DebugLevel {
		t.Fatalf("level = %v", l.GetLevel())
	}
	// unknown format falls back to text, keeping the requested level
	if l := processLogger(logpkg.Config{Level: "warn", Format: "xml"}); l.GetLevel() != logpkg.WarnLevel {
		t.Fatalf("fallback level = %v", l.GetLevel())
	}
	if l := processLogger(logpkg.Config{Level: "loud"}); l.GetLevel() != logpkg.InfoLevel {
		t.Fatalf("fallback default level = %v", l.GetLevel())
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Provider = "ftp"
	err := Run(context.Background(), Options{Config: cfg, Logger: quietLogger(nil)})
	if !errors.Is(err, cfgpkg.ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
}

// TestRunIntegration starts the server on an ephemeral port against a local
// Pebble bucket and stops it through the context.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := cfgpkg.Default()
	cfg.LocalTempFolder = filepath.Join(t.TempDir(), "tmp")
	cfg.Pebble.DataDir = filepath.Join(t.TempDir(), "objects")
	cfg.Pebble.Fsync = "never"

	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := Run(ctx, Options{Config: cfg, HTTPAddr: "127.0.0.1:0", Logger: quietLogger(&buf)}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "starting segstore server") {
		t.Fatalf("missing startup log:\n%s", buf.String())
	}
}

func quietLogger(buf *bytes.Buffer) logpkg.Logger {
	var out logpkg.Output = logpkg.NullOutput{}
	if buf != nil {
		out = logpkg.NewWriterOutput(buf)
	}
	return logpkg.NewLogger(
		logpkg.WithLevel(logpkg.InfoLevel),
		logpkg.WithFormatter(&logpkg.TextFormatter{DisableTimestamp: true}),
		logpkg.WithOutput(out),
	)
}
