package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/config"
	"github.com/sagarc03/stowage/objectstore"
	"github.com/sagarc03/stowage/stores"
)

// splitTarget splits "<prefix>/<path>" into the store prefix and the path
// inside the store. The path may be empty.
func splitTarget(target string) (string, string, error) {
	cleaned, err := stowage.CleanPath(target)
	if err != nil {
		return "", "", fmt.Errorf("target %q: %w", target, err)
	}
	prefix, path, _ := strings.Cut(cleaned, "/")
	return prefix, path, nil
}

// openStore creates the store for prefix from the loaded configuration.
func openStore(ctx context.Context, prefix string) (stowage.Store, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return newStore(cfg, prefix)
}

func newStore(cfg *config.Config, prefix string) (stowage.Store, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, fmt.Errorf("store options: %w", err)
	}

	store, err := stores.New(cfg.Store.Backend, prefix, opts)
	if err != nil {
		return nil, err
	}

	if obj, ok := store.(*objectstore.Store); ok {
		obj.SetUploadConcurrency(cfg.Store.UploadConcurrency)
	}

	return store, nil
}

// openTarget opens the store named by target and returns the path inside it.
func openTarget(ctx context.Context, target string) (stowage.Store, string, error) {
	prefix, path, err := splitTarget(target)
	if err != nil {
		return nil, "", err
	}

	store, err := openStore(ctx, prefix)
	if err != nil {
		return nil, "", err
	}

	return store, path, nil
}

func closeStore(store stowage.Store) {
	_ = store.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
