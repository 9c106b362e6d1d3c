package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/objectstore"
)

// NewClient builds a MinIO client from cfg. No request is sent.
func NewClient(cfg stowage.ClientConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint", stowage.ErrMissingConfiguration)
	}

	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.Secure)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.AccessKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return client, nil
}

// splitEndpoint accepts "host:port" or "scheme://host:port".
func splitEndpoint(endpoint string, secure bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), secure, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("%w: endpoint %q: %v", stowage.ErrInvalidInput, endpoint, err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("%w: endpoint scheme %q", stowage.ErrInvalidInput, u.Scheme)
	}
}

// Opener returns an objectstore.Opener that connects with cfg.
func Opener(cfg stowage.ClientConfig) objectstore.Opener {
	return func(_ context.Context, bucket string) (objectstore.Bucket, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewBucket(client, bucket), nil
	}
}

// Open is a stowage.Constructor for MinIO backed stores.
func Open(pathPrefix string, opts stowage.Options) (stowage.Store, error) {
	return objectstore.New(pathPrefix, opts, Opener(opts.Client))
}
