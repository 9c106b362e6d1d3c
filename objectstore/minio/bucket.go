package minio

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/objectstore"
)

// Bucket is an objectstore.Bucket over one MinIO bucket.
type Bucket struct {
	client *minio.Client
	name   string
}

var _ objectstore.Bucket = (*Bucket)(nil)

func NewBucket(client *minio.Client, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

func (b *Bucket) Name() string {
	return b.name
}

func (b *Bucket) Put(ctx context.Context, key string, r io.Reader, size int64, opts stowage.UploadOptions) error {
	_, err := b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError("get object", err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapError("get object", err)
	}

	return obj, nil
}

func (b *Bucket) Stat(ctx context.Context, key string) (stowage.ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return stowage.ObjectInfo{}, mapError("stat object", err)
	}
	return objectInfo(info), nil
}

func (b *Bucket) List(ctx context.Context, prefix string) iter.Seq2[stowage.ObjectInfo, error] {
	return func(yield func(stowage.ObjectInfo, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				yield(stowage.ObjectInfo{}, fmt.Errorf("list objects: %w", obj.Err))
				return
			}
			if !yield(objectInfo(obj), nil) {
				return
			}
		}
	}
}

func (b *Bucket) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > objectstore.MaxDeleteBatch {
		return fmt.Errorf("%w: %d keys in one delete", stowage.ErrInvalidInput, len(keys))
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var firstErr error
	for rerr := range b.client.RemoveObjects(ctx, b.name, objects, minio.RemoveObjectsOptions{}) {
		if isNotFound(rerr.Err) || firstErr != nil {
			continue
		}
		firstErr = fmt.Errorf("delete object %s: %w", rerr.ObjectName, rerr.Err)
	}

	return firstErr
}

func (b *Bucket) PresignGet(ctx context.Context, key string, expires time.Duration, responseContentType string) (string, error) {
	params := url.Values{}
	if responseContentType != "" {
		params.Set("response-content-type", responseContentType)
	}

	u, err := b.client.PresignedGetObject(ctx, b.name, key, expires, params)
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return u.String(), nil
}

// PublicURL returns the path style URL of key on the client endpoint.
func (b *Bucket) PublicURL(key string) string {
	return b.client.EndpointURL().JoinPath(b.name, key).String()
}

func objectInfo(info minio.ObjectInfo) stowage.ObjectInfo {
	return stowage.ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         strings.Trim(info.ETag, `"`),
		LastModified: info.LastModified,
	}
}

func mapError(op string, err error) error {
	if isNotFound(err) {
		return stowage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
