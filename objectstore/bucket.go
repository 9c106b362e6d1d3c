package objectstore

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/sagarc03/stowage"
)

// MaxDeleteBatch is the largest number of keys sent in one delete request.
const MaxDeleteBatch = 1000

// Bucket is a flat key/value blob service. Keys have no leading slash.
type Bucket interface {
	Name() string
	// Put stores r under key. size is -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts stowage.UploadOptions) error
	// Get returns the object body or stowage.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat returns object metadata or stowage.ErrNotFound.
	Stat(ctx context.Context, key string) (stowage.ObjectInfo, error)
	// List yields every object whose key starts with prefix, as a plain
	// string prefix.
	List(ctx context.Context, prefix string) iter.Seq2[stowage.ObjectInfo, error]
	// DeleteKeys removes up to MaxDeleteBatch keys. Missing keys are ignored.
	DeleteKeys(ctx context.Context, keys []string) error
	// PresignGet returns a signed GET URL. A non-empty responseContentType
	// is what the server answers the request with.
	PresignGet(ctx context.Context, key string, expires time.Duration, responseContentType string) (string, error)
	// PublicURL returns the unsigned URL of key.
	PublicURL(key string) string
}

// Opener connects to the named bucket.
type Opener func(ctx context.Context, bucket string) (Bucket, error)
