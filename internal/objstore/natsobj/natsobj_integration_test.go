//go:build integration

package natsobj

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rzbill/segstore/internal/objstore/objstoretest"
)

// startNATS starts a NATS server with JetStream enabled and returns its URL.
func startNATS(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
		Cmd:          []string{"--js"},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestIntegration_ObjectStore(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}
	ctx := context.Background()
	url := startNATS(ctx, t)

	c, err := Connect(ctx, Options{URL: url, Bucket: "segments", Name: "segstore-test"})
	require.NoError(t, err)
	defer c.Close()

	objstoretest.Run(t, c, "it/")

	// the whole prefix comes back in one page
	page, err := c.List(ctx, "it/list/", "")
	require.NoError(t, err)
	require.Len(t, page.Objects, 7)
	require.Empty(t, page.NextToken)

	// reopening binds to the existing bucket
	again, err := Connect(ctx, Options{URL: url, Bucket: "segments"})
	require.NoError(t, err)
	defer again.Close()
	n, err := again.HeadSize(ctx, "it/obj")
	require.NoError(t, err)
	require.Equal(t, int64(8), n)
}
