// Package miniotest starts a MinIO server in a container for integration tests.
package miniotest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/sagarc03/stowage"
	miniostore "github.com/sagarc03/stowage/objectstore/minio"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image     = "minio/minio:RELEASE.2025-09-07T16-13-09Z"
	accessKey = "minioadmin"
	secretKey = "minioadmin"
	apiPort   = "9000/tcp"
)

var (
	serverOnce sync.Once
	serverCfg  stowage.ClientConfig
	serverErr  error
)

// Server returns the client configuration of a shared MinIO container. The
// test is skipped when -short is set or no container runtime is reachable.
func Server(t *testing.T) stowage.ClientConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping minio integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	serverOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        image,
				ExposedPorts: []string{apiPort},
				Env: map[string]string{
					"MINIO_ROOT_USER":     accessKey,
					"MINIO_ROOT_PASSWORD": secretKey,
				},
				Cmd:        []string{"server", "/data"},
				WaitingFor: wait.ForHTTP("/minio/health/live").WithPort(apiPort),
			},
			Started: true,
		})
		if err != nil {
			serverErr = err
			return
		}

		endpoint, err := container.PortEndpoint(ctx, apiPort, "")
		if err != nil {
			serverErr = err
			return
		}

		serverCfg = stowage.ClientConfig{
			Endpoint:  endpoint,
			Region:    "us-east-1",
			AccessKey: accessKey,
			SecretKey: secretKey,
			PathStyle: true,
		}
	})

	require.NoError(t, serverErr, "failed to start minio container")
	return serverCfg
}

// NewBucket creates an empty bucket with a random name.
func NewBucket(t *testing.T, cfg stowage.ClientConfig) string {
	t.Helper()

	client, err := miniostore.NewClient(cfg)
	require.NoError(t, err)

	name := "test-" + uuid.NewString()
	require.NoError(t, client.MakeBucket(context.Background(), name, minio.MakeBucketOptions{Region: cfg.Region}))
	return name
}
