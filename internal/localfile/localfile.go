// Package localfile holds the local-disk side of uploads and copies shared
// by every backend.
package localfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sagarc03/stowage"
)

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Reader stops returning data once ctx is done.
func Reader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

// OpenRegular opens a local regular file for reading and returns its size.
func OpenRegular(name string) (*os.File, int64, error) {
	f, err := os.Open(name) //nolint:gosec // caller supplied upload source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: local file %s does not exist", stowage.ErrInvalidInput, name)
		}
		return nil, 0, fmt.Errorf("open local file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		Close(f, name)
		return nil, 0, fmt.Errorf("stat local file: %w", err)
	}

	if !info.Mode().IsRegular() {
		Close(f, name)
		return nil, 0, fmt.Errorf("%w: %s is not a regular file", stowage.ErrInvalidInput, name)
	}

	return f, info.Size(), nil
}

// Files lists the regular, non-hidden files directly inside dir, sorted.
// Symlinks count when they resolve to a regular file. Subdirectories are
// not descended into.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: local dir %s does not exist", stowage.ErrInvalidInput, dir)
		}
		return nil, fmt.Errorf("read local dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := filepath.Join(dir, e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(name)
			if err != nil {
				slog.Debug("skipping unresolvable symlink", "path", name, "err", err)
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	return files, nil
}

// Write copies r into the local file name, creating parent directories. A
// partially written file is removed on failure.
func Write(ctx context.Context, name string, r io.Reader) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create local dir: %w", err)
		}
	}

	f, err := os.Create(name) //nolint:gosec // caller supplied copy target
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}

	_, copyErr := io.Copy(f, Reader(ctx, r))
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		if rmErr := os.Remove(name); rmErr != nil {
			slog.Warn("failed to remove partial file", "path", name, "err", rmErr)
		}
		if copyErr != nil {
			return fmt.Errorf("write local file: %w", copyErr)
		}
		return fmt.Errorf("close local file: %w", closeErr)
	}

	return nil
}

// Close closes c and logs a failure.
func Close(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close file", "path", name, "err", err)
	}
}
