package objectstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sagarc03/stowage"
)

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// MemoryBucket is a process-local Bucket. Its signed URLs use the
// memory:// scheme and can be checked with VerifyURL.
type MemoryBucket struct {
	name   string
	secret []byte

	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryBucket(name string) *MemoryBucket {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &MemoryBucket{
		name:    name,
		secret:  secret,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryBucket) Name() string {
	return m.name
}

func (m *MemoryBucket) Put(ctx context.Context, key string, r io.Reader, _ int64, opts stowage.UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    maps.Clone(opts.Metadata),
		modified:    time.Now(),
	}
	return nil
}

func (m *MemoryBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, stowage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryBucket) Stat(ctx context.Context, key string) (stowage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return stowage.ObjectInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return stowage.ObjectInfo{}, stowage.ErrNotFound
	}
	return obj.info(key), nil
}

// Metadata returns the user metadata stored with key.
func (m *MemoryBucket) Metadata(key string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	return maps.Clone(obj.metadata), ok
}

func (o memoryObject) info(key string) stowage.ObjectInfo {
	sum := sha256.Sum256(o.data)
	return stowage.ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: o.modified,
	}
}

// List yields a snapshot taken when iteration starts, in key order.
func (m *MemoryBucket) List(ctx context.Context, prefix string) iter.Seq2[stowage.ObjectInfo, error] {
	return func(yield func(stowage.ObjectInfo, error) bool) {
		m.mu.RLock()
		var infos []stowage.ObjectInfo
		for _, key := range slices.Sorted(maps.Keys(m.objects)) {
			if strings.HasPrefix(key, prefix) {
				infos = append(infos, m.objects[key].info(key))
			}
		}
		m.mu.RUnlock()

		for _, info := range infos {
			if err := ctx.Err(); err != nil {
				yield(stowage.ObjectInfo{}, err)
				return
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (m *MemoryBucket) DeleteKeys(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) > MaxDeleteBatch {
		return fmt.Errorf("%w: %d keys in one delete", stowage.ErrInvalidInput, len(keys))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryBucket) PublicURL(key string) string {
	u := url.URL{Scheme: "memory", Host: m.name, Path: "/" + key}
	return u.String()
}

func (m *MemoryBucket) PresignGet(_ context.Context, key string, expires time.Duration, responseContentType string) (string, error) {
	deadline := time.Now().Add(expires).Unix()

	q := url.Values{}
	q.Set("Expires", strconv.FormatInt(deadline, 10))
	if responseContentType != "" {
		q.Set("response-content-type", responseContentType)
	}
	q.Set("Signature", m.sign(key, q))

	u := url.URL{Scheme: "memory", Host: m.name, Path: "/" + key, RawQuery: q.Encode()}
	return u.String(), nil
}

// VerifyURL checks a URL returned by PresignGet and returns its key.
func (m *MemoryBucket) VerifyURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", stowage.ErrInvalidInput, err)
	}
	if u.Scheme != "memory" || u.Host != m.name {
		return "", fmt.Errorf("url is not for bucket %s: %w", m.name, stowage.ErrUnauthorized)
	}

	q := u.Query()
	sig := q.Get("Signature")
	q.Del("Signature")

	key := strings.TrimPrefix(u.Path, "/")
	if !hmac.Equal([]byte(sig), []byte(m.sign(key, q))) {
		return "", fmt.Errorf("signature mismatch: %w", stowage.ErrUnauthorized)
	}

	deadline, err := strconv.ParseInt(q.Get("Expires"), 10, 64)
	if err != nil || time.Now().Unix() > deadline {
		return "", fmt.Errorf("signature expired: %w", stowage.ErrUnauthorized)
	}

	return key, nil
}

func (m *MemoryBucket) sign(key string, q url.Values) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(m.name + "\n" + key + "\n" + q.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryBuckets hands out one MemoryBucket per name, so stores opened
// against the same name share data.
type MemoryBuckets struct {
	mu      sync.Mutex
	buckets map[string]*MemoryBucket
}

func NewMemoryBuckets() *MemoryBuckets {
	return &MemoryBuckets{buckets: make(map[string]*MemoryBucket)}
}

// Bucket returns the bucket called name, creating it on first use.
func (m *MemoryBuckets) Bucket(name string) *MemoryBucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		b = NewMemoryBucket(name)
		m.buckets[name] = b
	}
	return b
}

// Open is an Opener.
func (m *MemoryBuckets) Open(_ context.Context, name string) (Bucket, error) {
	return m.Bucket(name), nil
}
