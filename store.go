package stowage

import (
	"context"
	"io"
	"iter"
)

// Store is the operation contract shared by every backend. Paths are
// logical: relative, slash separated, resolved under the store's prefix.
type Store interface {
	// Upload copies localFile to <path>/<base name of localFile>. The source
	// file is left in place.
	Upload(ctx context.Context, path, localFile string, opts ...UploadOption) error
	// UploadDir replaces everything under path with the regular, non-hidden
	// files found directly in localDir.
	UploadDir(ctx context.Context, path, localDir string) error
	// Read returns the content at path or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Copy writes the content at path to toLocalPath or returns ErrNotFound.
	Copy(ctx context.Context, path, toLocalPath string) error
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes path and everything under it. Deleting a missing path
	// is not an error.
	Delete(ctx context.Context, path string) error
	// Clear removes everything in the store's scope.
	Clear(ctx context.Context) error
	// WriteToFile writes content to path.
	WriteToFile(ctx context.Context, path string, content io.Reader, opts ...UploadOption) error
	ContentType(ctx context.Context, path string) (string, error)
	// Objects lists the objects at or under path.
	Objects(ctx context.Context, path string) iter.Seq2[ObjectInfo, error]
	Close() error
}

// URLSigner is implemented by stores that can hand out URLs for their objects.
type URLSigner interface {
	// URLFor returns a signed, expiring GET URL for path.
	URLFor(ctx context.Context, path string, opts ...URLOption) (string, error)
	// PublicURL returns the unsigned URL of path.
	PublicURL(ctx context.Context, path string) (string, error)
}
