package stowage

import (
	"fmt"
	"maps"
	"slices"
)

// Constructor builds a store bound to pathPrefix.
type Constructor func(pathPrefix string, opts Options) (Store, error)

// Registry maps backend labels to constructors. It is immutable; With returns
// an extended copy.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry(constructors map[string]Constructor) Registry {
	return Registry{constructors: maps.Clone(constructors)}
}

// With returns a registry that also knows label. An existing label is replaced.
func (r Registry) With(label string, c Constructor) Registry {
	next := make(map[string]Constructor, len(r.constructors)+1)
	maps.Copy(next, r.constructors)
	next[label] = c
	return Registry{constructors: next}
}

// Create builds a store of the given backend.
func (r Registry) Create(label, pathPrefix string, opts Options) (Store, error) {
	c, ok := r.constructors[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, label)
	}

	prefix, err := CleanPath(pathPrefix)
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", label, err)
	}

	store, err := c(prefix, opts)
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", label, err)
	}

	return store, nil
}

// Backends returns the registered labels in sorted order.
func (r Registry) Backends() []string {
	return slices.Sorted(maps.Keys(r.constructors))
}
