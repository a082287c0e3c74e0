package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	cfgpkg "github.com/rzbill/segstore/internal/config"
	"github.com/rzbill/segstore/internal/metrics"
	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/objstore/memory"
)

func testConfig(t *testing.T, provider string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Provider = provider
	cfg.LocalTempFolder = filepath.Join(t.TempDir(), "tmp")
	cfg.Pebble.DataDir = filepath.Join(t.TempDir(), "objects")
	return cfg
}

func TestOpenCloseHealthPebble(t *testing.T) {
	rt, err := Open(context.Background(), Options{Config: testConfig(t, cfgpkg.ProviderPebble)})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rt.Client().Bucket() != "segments" {
		t.Fatalf("bucket = %q", rt.Client().Bucket())
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("health after close should fail")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, cfgpkg.ProviderMemory)
	cfg.Bucket = ""
	_, err := Open(context.Background(), Options{Config: cfg})
	if !errors.Is(err, cfgpkg.ErrMissingConfig) || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("err = %v", err)
	}
}

func TestArchiveIsInstrumented(t *testing.T) {
	ctx := context.Background()
	reg := metrics.NewRegistry(metrics.Options{Provider: "memory"})
	rt, err := Open(ctx, Options{Config: testConfig(t, cfgpkg.ProviderMemory), Metrics: reg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	topic, err := rt.Archive().Topic("orders")
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	if _, err := topic.Segments(ctx); err != nil {
		t.Fatalf("segments: %v", err)
	}
	if got := testutil.ToFloat64(reg.ObjectStore.Calls.WithLabelValues("memory", objstore.OpList)); got != 1 {
		t.Fatalf("list calls = %v, want 1", got)
	}
	if rt.Metrics() != reg || rt.Config().Provider != cfgpkg.ProviderMemory {
		t.Fatalf("accessors mismatch")
	}
}

func TestOpenWithInjectedClient(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.Options{Bucket: "injected"})
	rt, err := Open(ctx, Options{Config: testConfig(t, cfgpkg.ProviderS3), Client: s})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if rt.Archive().Bucket() != "injected" {
		t.Fatalf("bucket = %q", rt.Archive().Bucket())
	}
	s.Fail("", errors.New("down"))
	if err := rt.CheckHealth(ctx); !errors.Is(err, objstore.ErrBackendUnavailable) {
		t.Fatalf("health err = %v", err)
	}
}
