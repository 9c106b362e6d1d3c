// Package objectstore implements stowage.Store over a flat object store.
//
// Keys are built as [namespace/]path_prefix/logical_path. Directories do not
// exist on the remote side: "x/y" is a directory when keys under "x/y/"
// exist. The remote service is reached through a Bucket, see the s3 and
// minio subpackages, or MemoryBucket for a process-local one.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/contenttype"
	"github.com/sagarc03/stowage/internal/localfile"
	"golang.org/x/sync/errgroup"
)

// DefaultUploadConcurrency bounds parallel uploads in UploadDir.
const DefaultUploadConcurrency = 8

// Store is a stowage.Store over a Bucket.
type Store struct {
	open       Opener
	bucketName string
	prefix     string
	opts       stowage.Options

	mu     sync.Mutex
	bucket Bucket

	concurrency int
}

var (
	_ stowage.Store     = (*Store)(nil)
	_ stowage.URLSigner = (*Store)(nil)
)

// New resolves the bucket name for pathPrefix. No connection is made until
// the first operation.
func New(pathPrefix string, opts stowage.Options, open Opener) (*Store, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: bucket opener", stowage.ErrMissingConfiguration)
	}

	prefix, err := stowage.CleanPath(pathPrefix)
	if err != nil {
		return nil, err
	}

	name, err := opts.Bucket.Resolve(prefix)
	if err != nil {
		return nil, err
	}

	return &Store{
		open:        open,
		bucketName:  name,
		prefix:      prefix,
		opts:        opts,
		concurrency: DefaultUploadConcurrency,
	}, nil
}

// BucketName returns the bucket this store writes to.
func (s *Store) BucketName() string {
	return s.bucketName
}

// SetUploadConcurrency bounds parallel uploads in UploadDir. n < 1 means 1.
func (s *Store) SetUploadConcurrency(n int) {
	s.concurrency = max(n, 1)
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) handle(ctx context.Context) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucket != nil {
		return s.bucket, nil
	}

	b, err := s.open(ctx, s.bucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", s.bucketName, err)
	}

	s.bucket = b
	return b, nil
}

// key returns the object key of a logical path.
func (s *Store) key(ctx context.Context, p string, more ...string) (string, error) {
	clean, err := stowage.CleanPath(p)
	if err != nil {
		return "", err
	}
	segments := append([]string{stowage.ResolveNamespace(ctx, s.opts.Namespace), s.prefix, clean}, more...)
	return stowage.JoinKey(segments...), nil
}

func (s *Store) Upload(ctx context.Context, p, localFile string, opts ...stowage.UploadOption) error {
	key, err := s.key(ctx, p, filepath.Base(localFile))
	if err != nil {
		return err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if err := s.putFile(ctx, b, key, localFile, stowage.ApplyUploadOptions(opts)); err != nil {
		return fmt.Errorf("upload %s: %w", localFile, err)
	}

	return nil
}

func (s *Store) putFile(ctx context.Context, b Bucket, key, localFile string, o stowage.UploadOptions) error {
	f, size, err := localfile.OpenRegular(localFile)
	if err != nil {
		return err
	}
	defer localfile.Close(f, localFile)

	if o.ContentType == "" {
		o.ContentType = contenttype.ForFilename(localFile)
	}

	return b.Put(ctx, key, f, size, o)
}

func (s *Store) UploadDir(ctx context.Context, p, localDir string) error {
	dir, err := s.key(ctx, p)
	if err != nil {
		return err
	}

	files, err := localfile.Files(localDir)
	if err != nil {
		return err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if err := s.deleteTree(ctx, b, dir); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, f := range files {
		g.Go(func() error {
			key := stowage.JoinKey(dir, filepath.Base(f))
			if err := s.putFile(gctx, b, key, f, stowage.UploadOptions{}); err != nil {
				return fmt.Errorf("upload dir %s: %w", f, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Debug("uploaded directory", "dir", localDir, "bucket", s.bucketName, "key", dir, "files", len(files))

	return nil
}

func (s *Store) Read(ctx context.Context, p string) ([]byte, error) {
	body, err := s.get(ctx, p)
	if err != nil {
		return nil, err
	}
	defer localfile.Close(body, p)

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	return data, nil
}

func (s *Store) get(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := s.key(ctx, p)
	if err != nil {
		return nil, err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	body, err := b.Get(ctx, key)
	if err != nil {
		if errors.Is(err, stowage.ErrNotFound) {
			return nil, fmt.Errorf("%w: file %s does not exist in bucket %s", stowage.ErrNotFound, p, s.bucketName)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return body, nil
}

func (s *Store) Copy(ctx context.Context, p, toLocalPath string) error {
	body, err := s.get(ctx, p)
	if err != nil {
		return err
	}
	defer localfile.Close(body, p)

	return localfile.Write(ctx, toLocalPath, body)
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	key, err := s.key(ctx, p)
	if err != nil {
		return false, err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return false, err
	}

	if _, err := b.Stat(ctx, key); err != nil {
		if errors.Is(err, stowage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}

	return true, nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	key, err := s.key(ctx, p)
	if err != nil {
		return err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return err
	}

	if err := s.deleteTree(ctx, b, key); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	b, err := s.handle(ctx)
	if err != nil {
		return err
	}

	scope := stowage.JoinKey(stowage.ResolveNamespace(ctx, s.opts.Namespace), s.prefix)
	if err := s.deleteTree(ctx, b, scope); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	return nil
}

// deleteTree removes base and every key under base + "/". An empty base is
// the whole bucket and needs AllowUnscopedClear.
func (s *Store) deleteTree(ctx context.Context, b Bucket, base string) error {
	if base == "" && !s.opts.AllowUnscopedClear {
		return stowage.ErrUnscopedClear
	}

	batch := make([]string, 0, MaxDeleteBatch)
	deleted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := b.DeleteKeys(ctx, batch); err != nil {
			return err
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for obj, err := range b.List(ctx, base) {
		if err != nil {
			return err
		}
		if !stowage.HasKeyPrefix(obj.Key, base) {
			continue
		}
		batch = append(batch, obj.Key)
		if len(batch) == MaxDeleteBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	slog.Debug("deleted keys", "bucket", s.bucketName, "prefix", base, "count", deleted)

	return nil
}

func (s *Store) WriteToFile(ctx context.Context, p string, content io.Reader, opts ...stowage.UploadOption) error {
	clean, err := stowage.CleanPath(p)
	if err != nil {
		return err
	}
	if clean == "" {
		return fmt.Errorf("%w: write needs a file path", stowage.ErrInvalidInput)
	}

	key, err := s.key(ctx, clean)
	if err != nil {
		return err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return err
	}

	o := stowage.ApplyUploadOptions(opts)
	if o.ContentType == "" {
		o.ContentType = contenttype.ForFilename(clean)
	}

	if err := b.Put(ctx, key, localfile.Reader(ctx, content), -1, o); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	return nil
}

// ContentType returns the content type stored with the object.
func (s *Store) ContentType(ctx context.Context, p string) (string, error) {
	key, err := s.key(ctx, p)
	if err != nil {
		return "", err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return "", err
	}

	info, err := b.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, stowage.ErrNotFound) {
			return "", fmt.Errorf("%w: file %s does not exist in bucket %s", stowage.ErrNotFound, p, s.bucketName)
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}

	return info.ContentType, nil
}

// Objects lists the objects at or under p. Keys are full object keys.
func (s *Store) Objects(ctx context.Context, p string) iter.Seq2[stowage.ObjectInfo, error] {
	return func(yield func(stowage.ObjectInfo, error) bool) {
		base, err := s.key(ctx, p)
		if err != nil {
			yield(stowage.ObjectInfo{}, err)
			return
		}

		b, err := s.handle(ctx)
		if err != nil {
			yield(stowage.ObjectInfo{}, err)
			return
		}

		for obj, err := range b.List(ctx, base) {
			if err != nil {
				yield(stowage.ObjectInfo{}, fmt.Errorf("list %s: %w", base, err))
				return
			}
			if !stowage.HasKeyPrefix(obj.Key, base) {
				continue
			}
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// URLFor returns a signed GET URL. Unless overridden, the response content
// type is inferred from the path.
func (s *Store) URLFor(ctx context.Context, p string, opts ...stowage.URLOption) (string, error) {
	key, err := s.key(ctx, p)
	if err != nil {
		return "", err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return "", err
	}

	o := stowage.ApplyURLOptions(s.opts.Expires(), opts)
	if o.ResponseContentType == "" {
		o.ResponseContentType = contenttype.ForFilename(key)
	}

	u, err := b.PresignGet(ctx, key, o.Expires, o.ResponseContentType)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return u, nil
}

func (s *Store) PublicURL(ctx context.Context, p string) (string, error) {
	key, err := s.key(ctx, p)
	if err != nil {
		return "", err
	}

	b, err := s.handle(ctx)
	if err != nil {
		return "", err
	}

	return b.PublicURL(key), nil
}
