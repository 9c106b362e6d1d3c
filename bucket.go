package stowage

import (
	"fmt"
	"maps"
	"slices"
)

// BucketName selects the bucket an object store writes to: either one bucket
// for every prefix, or a table routing each path prefix to its own bucket.
// The zero value is unset.
type BucketName struct {
	single   string
	byPrefix map[string]string
}

// SingleBucket uses name for every path prefix.
func SingleBucket(name string) BucketName {
	return BucketName{single: name}
}

// BucketPerPrefix routes each path prefix to the bucket named in m.
func BucketPerPrefix(m map[string]string) BucketName {
	return BucketName{byPrefix: maps.Clone(m)}
}

// IsZero reports whether no bucket was configured.
func (b BucketName) IsZero() bool {
	return b.single == "" && len(b.byPrefix) == 0
}

// Resolve returns the bucket for pathPrefix.
func (b BucketName) Resolve(pathPrefix string) (string, error) {
	if b.byPrefix != nil {
		name, ok := b.byPrefix[pathPrefix]
		if !ok || name == "" {
			return "", fmt.Errorf("%w: no bucket for path prefix %q", ErrMissingConfiguration, pathPrefix)
		}
		return name, nil
	}

	if b.single == "" {
		return "", fmt.Errorf("%w: bucket name", ErrMissingConfiguration)
	}

	return b.single, nil
}

func (b BucketName) String() string {
	if b.byPrefix != nil {
		parts := make([]string, 0, len(b.byPrefix))
		for _, k := range slices.Sorted(maps.Keys(b.byPrefix)) {
			parts = append(parts, k+"="+b.byPrefix[k])
		}
		return fmt.Sprint(parts)
	}
	return b.single
}
