package minio_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/internal/miniotest"
	"github.com/sagarc03/stowage/internal/storetest"
	"github.com/sagarc03/stowage/objectstore/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	cfg := miniotest.Server(t)

	storetest.Run(t, func(t *testing.T) func(string) stowage.Store {
		bucket := miniotest.NewBucket(t, cfg)
		return func(prefix string) stowage.Store {
			store, err := minio.Open(prefix, stowage.Options{
				Bucket: stowage.SingleBucket(bucket),
				Client: cfg,
			})
			require.NoError(t, err)
			return store
		}
	})
}

func TestBucket_Integration(t *testing.T) {
	cfg := miniotest.Server(t)
	name := miniotest.NewBucket(t, cfg)
	ctx := context.Background()

	client, err := minio.NewClient(cfg)
	require.NoError(t, err)
	bucket := minio.NewBucket(client, name)

	body := "hello minio"
	require.NoError(t, bucket.Put(ctx, "foo/greeting.txt", strings.NewReader(body), int64(len(body)), stowage.UploadOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"owner": "ops"},
	}))

	t.Run("Stat", func(t *testing.T) {
		info, err := bucket.Stat(ctx, "foo/greeting.txt")
		require.NoError(t, err)
		assert.Equal(t, "foo/greeting.txt", info.Key)
		assert.Equal(t, int64(len(body)), info.Size)
		assert.Equal(t, "text/plain", info.ContentType)
		assert.NotEmpty(t, info.ETag)
		assert.NotContains(t, info.ETag, `"`)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := bucket.Stat(ctx, "foo/missing")
		assert.ErrorIs(t, err, stowage.ErrNotFound)

		_, err = bucket.Get(ctx, "foo/missing")
		assert.ErrorIs(t, err, stowage.ErrNotFound)

		assert.NoError(t, bucket.DeleteKeys(ctx, []string{"foo/missing"}))
	})

	t.Run("PresignGet", func(t *testing.T) {
		signed, err := bucket.PresignGet(ctx, "foo/greeting.txt", time.Minute, "application/octet-stream")
		require.NoError(t, err)

		resp, err := http.Get(signed)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
	})

	t.Run("PublicURL", func(t *testing.T) {
		assert.Equal(t, "http://"+cfg.Endpoint+"/"+name+"/foo/greeting.txt", bucket.PublicURL("foo/greeting.txt"))
	})
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     stowage.ClientConfig
		wantErr error
		wantURL string
	}{
		{name: "bare host", cfg: stowage.ClientConfig{Endpoint: "localhost:9000"}, wantURL: "http://localhost:9000"},
		{name: "secure flag", cfg: stowage.ClientConfig{Endpoint: "minio.local", Secure: true}, wantURL: "https://minio.local"},
		{name: "https scheme", cfg: stowage.ClientConfig{Endpoint: "https://minio.local:9443"}, wantURL: "https://minio.local:9443"},
		{name: "missing endpoint", cfg: stowage.ClientConfig{}, wantErr: stowage.ErrMissingConfiguration},
		{name: "bad scheme", cfg: stowage.ClientConfig{Endpoint: "ftp://minio.local"}, wantErr: stowage.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := minio.NewClient(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, client.EndpointURL().String())
		})
	}
}
