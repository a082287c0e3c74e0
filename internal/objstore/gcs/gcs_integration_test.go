//go:build integration

package gcs

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/api/option"

	"github.com/rzbill/segstore/internal/objstore/objstoretest"
)

// startFakeGCS starts fake-gcs-server over plain HTTP and returns the JSON
// API endpoint.
func startFakeGCS(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "fsouza/fake-gcs-server:latest",
		ExposedPorts: []string{"4443/tcp"},
		Cmd:          []string{"-scheme", "http", "-port", "4443"},
		WaitingFor:   wait.ForListeningPort("4443/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4443")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s/storage/v1/", host, port.Port())
}

func TestIntegration_FakeGCS(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}
	ctx := context.Background()
	endpoint := startFakeGCS(ctx, t)

	admin, err := storage.NewClient(ctx, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	require.NoError(t, err)
	defer admin.Close()
	require.NoError(t, admin.Bucket("segments").Create(ctx, "segstore-test", nil))

	c, err := New(ctx, Options{Bucket: "segments", Endpoint: endpoint, PageSize: 2})
	require.NoError(t, err)
	defer c.Close()

	objstoretest.Run(t, c, "it/")
}
