// Package stores wires every built-in backend into a stowage.Registry.
package stores

import (
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/filesystem"
	"github.com/sagarc03/stowage/objectstore"
	"github.com/sagarc03/stowage/objectstore/minio"
	"github.com/sagarc03/stowage/objectstore/s3"
)

// Backend labels.
const (
	Filesystem = "filesystem"
	Object     = "object"
	S3         = "s3"
	MinIO      = "minio"
	Memory     = "memory"
)

// memoryBuckets backs every "memory" store in the process.
var memoryBuckets = objectstore.NewMemoryBuckets()

// DefaultRegistry returns a registry with all built-in backends. "object" is
// an alias of "s3".
func DefaultRegistry() stowage.Registry {
	return stowage.NewRegistry(map[string]stowage.Constructor{
		Filesystem: filesystem.Open,
		Object:     s3.Open,
		S3:         s3.Open,
		MinIO:      minio.Open,
		Memory:     openMemory,
	})
}

// New creates a store from the default registry.
func New(label, pathPrefix string, opts stowage.Options) (stowage.Store, error) {
	return DefaultRegistry().Create(label, pathPrefix, opts)
}

// MemoryBuckets returns the buckets shared by "memory" stores.
func MemoryBuckets() *objectstore.MemoryBuckets {
	return memoryBuckets
}

func openMemory(pathPrefix string, opts stowage.Options) (stowage.Store, error) {
	return objectstore.New(pathPrefix, opts, memoryBuckets.Open)
}
