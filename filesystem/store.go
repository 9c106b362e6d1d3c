// Package filesystem stores files under root_path/path_prefix on local disk.
// Writes are atomic (temp file and rename), listings carry SHA256 etags and
// all access is sandboxed to the root directory.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/contenttype"
	"github.com/sagarc03/stowage/internal/localfile"
)

// Store is a stowage.Store backed by a directory tree.
type Store struct {
	root   *os.Root
	prefix string
	opts   stowage.Options
	now    func() time.Time
}

var (
	_ stowage.Store     = (*Store)(nil)
	_ stowage.URLSigner = (*Store)(nil)
)

// New opens opts.RootPath, creating it and root_path/pathPrefix if needed.
func New(pathPrefix string, opts stowage.Options) (*Store, error) {
	if opts.RootPath == "" {
		return nil, fmt.Errorf("%w: root path", stowage.ErrMissingConfiguration)
	}

	prefix, err := stowage.CleanPath(pathPrefix)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create root dir: %w", err)
	}

	root, err := os.OpenRoot(opts.RootPath)
	if err != nil {
		return nil, fmt.Errorf("open root dir: %w", err)
	}

	if prefix != "" {
		if err := root.MkdirAll(prefix, 0o755); err != nil {
			_ = root.Close()
			return nil, fmt.Errorf("create prefix dir: %w", err)
		}
	}

	return &Store{root: root, prefix: prefix, opts: opts, now: time.Now}, nil
}

// HasPrefix reports whether root_path/pathPrefix exists as a directory.
// Unlike New it creates nothing.
func HasPrefix(rootPath, pathPrefix string) (bool, error) {
	prefix, err := stowage.CleanPath(pathPrefix)
	if err != nil {
		return false, err
	}

	root, err := os.OpenRoot(rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open root dir: %w", err)
	}
	defer root.Close()

	info, err := root.Stat(rootName(prefix))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat prefix dir: %w", err)
	}
	return info.IsDir(), nil
}

// Open is a stowage.Constructor.
func Open(pathPrefix string, opts stowage.Options) (stowage.Store, error) {
	return New(pathPrefix, opts)
}

// Dir returns the directory this store writes into.
func (s *Store) Dir() string {
	return filepath.Join(s.opts.RootPath, filepath.FromSlash(s.prefix))
}

func (s *Store) Close() error {
	return s.root.Close()
}

// resolve maps a logical path to a path relative to the root.
func (s *Store) resolve(p string) (string, error) {
	clean, err := stowage.CleanPath(p)
	if err != nil {
		return "", err
	}
	return stowage.JoinKey(s.prefix, clean), nil
}

// rootName turns a root-relative key into a name os.Root accepts.
func rootName(rel string) string {
	if rel == "" {
		return "."
	}
	return filepath.FromSlash(rel)
}

func (s *Store) Upload(ctx context.Context, p, localFile string, _ ...stowage.UploadOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.resolve(p)
	if err != nil {
		return err
	}

	src, _, err := localfile.OpenRegular(localFile)
	if err != nil {
		return err
	}
	defer localfile.Close(src, localFile)

	dest := stowage.JoinKey(dir, filepath.Base(localFile))
	if _, err := s.write(ctx, dest, src); err != nil {
		return fmt.Errorf("upload %s: %w", localFile, err)
	}

	return nil
}

func (s *Store) UploadDir(ctx context.Context, p, localDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.resolve(p)
	if err != nil {
		return err
	}

	files, err := localfile.Files(localDir)
	if err != nil {
		return err
	}

	if err := s.removeTree(dir); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, _, err := localfile.OpenRegular(f)
		if err != nil {
			return err
		}
		_, err = s.write(ctx, stowage.JoinKey(dir, filepath.Base(f)), src)
		localfile.Close(src, f)
		if err != nil {
			return fmt.Errorf("upload dir %s: %w", f, err)
		}
	}

	slog.Debug("uploaded directory", "dir", localDir, "path", dir, "files", len(files))

	return nil
}

func (s *Store) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := s.resolve(p)
	if err != nil {
		return nil, err
	}

	data, err := s.root.ReadFile(rootName(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s does not exist", stowage.ErrNotFound, p)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (s *Store) Copy(ctx context.Context, p, toLocalPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, err := s.resolve(p)
	if err != nil {
		return err
	}

	src, err := s.root.Open(rootName(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: file %s does not exist", stowage.ErrNotFound, p)
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer localfile.Close(src, rel)

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", stowage.ErrInvalidInput, p)
	}

	return localfile.Write(ctx, toLocalPath, src)
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rel, err := s.resolve(p)
	if err != nil {
		return false, err
	}

	_, err = s.root.Stat(rootName(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	return true, nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, err := s.resolve(p)
	if err != nil {
		return err
	}

	if err := s.removeTree(rel); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.removeTree(s.prefix); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	return nil
}

// removeTree removes rel and everything below it. The store's own prefix
// directory is emptied rather than removed, and emptying the whole root
// requires AllowUnscopedClear.
func (s *Store) removeTree(rel string) error {
	if rel != s.prefix {
		return s.root.RemoveAll(rootName(rel))
	}

	if rel == "" && !s.opts.AllowUnscopedClear {
		return stowage.ErrUnscopedClear
	}

	entries, err := fs.ReadDir(s.root.FS(), rootName(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if err := s.root.RemoveAll(rootName(path.Join(rel, e.Name()))); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) WriteToFile(ctx context.Context, p string, content io.Reader, _ ...stowage.UploadOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, err := s.resolve(p)
	if err != nil {
		return err
	}
	if rel == s.prefix {
		return fmt.Errorf("%w: write needs a file path", stowage.ErrInvalidInput)
	}

	if _, err := s.write(ctx, rel, content); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	return nil
}

// ContentType infers the content type from the path's extension. The file
// must exist.
func (s *Store) ContentType(ctx context.Context, p string) (string, error) {
	ok, err := s.Exists(ctx, p)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: file %s does not exist", stowage.ErrNotFound, p)
	}
	return contenttype.ForFilename(p), nil
}

// write atomically replaces dest with content, creating intermediate
// directories. It returns the SHA256 etag of what was written.
func (s *Store) write(ctx context.Context, dest string, content io.Reader) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	destDir := path.Dir(dest)
	if destDir != "." {
		if err := s.root.MkdirAll(rootName(destDir), 0o755); err != nil {
			return "", fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	tmpFile := rootName(path.Join(destDir, tmpFileName()))
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return "", fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	if _, err := io.Copy(w, localfile.Reader(ctx, content)); err != nil {
		return "", fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return "", fmt.Errorf("could not sync written file: %w", err)
	}

	if err := t.Close(); err != nil {
		return "", fmt.Errorf("could not close written file: %w", err)
	}

	if renameErr := s.root.Rename(tmpFile, rootName(dest)); renameErr != nil {
		return "", fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Objects walks the files at or under p. Keys are relative to the root
// directory, so they include the path prefix.
func (s *Store) Objects(ctx context.Context, p string) iter.Seq2[stowage.ObjectInfo, error] {
	return func(yield func(stowage.ObjectInfo, error) bool) {
		rel, err := s.resolve(p)
		if err != nil {
			yield(stowage.ObjectInfo{}, err)
			return
		}

		info, err := s.root.Stat(rootName(rel))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				yield(stowage.ObjectInfo{}, fmt.Errorf("list files: %w", err))
			}
			return
		}

		if !info.IsDir() {
			obj, err := s.objectInfo(rel, info)
			yield(obj, err)
			return
		}

		err = s.walkDir(ctx, rel, yield)
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(stowage.ObjectInfo{}, fmt.Errorf("list files: %w", err))
		}
	}
}

var errStopWalk = errors.New("stop walk")

func (s *Store) walkDir(ctx context.Context, dir string, yield func(stowage.ObjectInfo, error) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), rootName(dir))
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, yield); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() || isTmpFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		obj, err := s.objectInfo(entryPath, info)
		if err != nil {
			return err
		}

		if !yield(obj, nil) {
			return errStopWalk
		}
	}

	return nil
}

func (s *Store) objectInfo(rel string, info fs.FileInfo) (stowage.ObjectInfo, error) {
	f, err := s.root.Open(rootName(rel))
	if err != nil {
		return stowage.ObjectInfo{}, fmt.Errorf("walk dir: %w", err)
	}

	h := sha256.New()
	_, copyErr := io.Copy(h, f)

	if closeErr := f.Close(); closeErr != nil {
		slog.Warn("failed to close file", "path", rel, "err", closeErr)
	}

	if copyErr != nil {
		return stowage.ObjectInfo{}, fmt.Errorf("walk dir: %w", copyErr)
	}

	return stowage.ObjectInfo{
		Key:          rel,
		Size:         info.Size(),
		ContentType:  contenttype.ForFilename(rel),
		ETag:         hex.EncodeToString(h.Sum(nil)),
		LastModified: info.ModTime(),
	}, nil
}

// PublicURL returns the gateway URL of p.
func (s *Store) PublicURL(_ context.Context, p string) (string, error) {
	rel, err := s.resolve(p)
	if err != nil {
		return "", err
	}

	if s.opts.Gateway.Endpoint == "" {
		return "", fmt.Errorf("%w: gateway endpoint", stowage.ErrMissingConfiguration)
	}

	base, err := url.Parse(strings.TrimSuffix(s.opts.Gateway.Endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("parse gateway endpoint: %w", err)
	}

	return base.JoinPath(rel).String(), nil
}

// URLFor returns a gateway URL signed with the gateway key pair. Unless
// overridden, the response content type is inferred from the path.
func (s *Store) URLFor(ctx context.Context, p string, opts ...stowage.URLOption) (string, error) {
	o := stowage.ApplyURLOptions(s.opts.Expires(), opts)
	if o.ResponseContentType == "" {
		o.ResponseContentType = contenttype.ForFilename(p)
	}

	if s.opts.Gateway.AccessKey == "" || s.opts.Gateway.SecretKey == "" {
		return "", fmt.Errorf("%w: gateway key pair", stowage.ErrMissingConfiguration)
	}

	public, err := s.PublicURL(ctx, p)
	if err != nil {
		return "", err
	}

	if o.ResponseContentType != "" {
		u, err := url.Parse(public)
		if err != nil {
			return "", fmt.Errorf("parse public url: %w", err)
		}
		q := u.Query()
		q.Set(stowage.ResponseContentTypeParam, o.ResponseContentType)
		u.RawQuery = q.Encode()
		public = u.String()
	}

	return stowage.SignURL(public, s.opts.Gateway.AccessKey, s.opts.Gateway.SecretKey, o.Expires, s.now())
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}

func isTmpFile(name string) bool {
	if !strings.HasPrefix(name, ".t") {
		return false
	}
	_, err := uuid.Parse(name[2:])
	return err == nil
}
