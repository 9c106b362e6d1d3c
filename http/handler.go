package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/stowage"
)

// Factory creates the store bound to a path prefix.
type Factory func(prefix string) (stowage.Store, error)

// PrefixProbe reports whether anything is stored under prefix. It must not
// create the prefix.
type PrefixProbe func(ctx context.Context, prefix string) (bool, error)

// ListingProbe probes by opening a throwaway store and looking for a first
// object. Use it only with factories whose stores have no construction side
// effects.
func ListingProbe(factory Factory) PrefixProbe {
	return func(ctx context.Context, prefix string) (bool, error) {
		store, err := factory(prefix)
		if err != nil {
			return false, err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("close probe store", "prefix", prefix, "err", err)
			}
		}()

		for _, err := range store.Objects(ctx, "") {
			if err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}
}

// errNoPrefix marks a read for a prefix the probe rejected.
var errNoPrefix = fmt.Errorf("prefix has no objects: %w", stowage.ErrNotFound)

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type HandlerConfig struct {
	ReadVerifier  RequestVerifier
	WriteVerifier RequestVerifier
	CORS          CORSConfig
	// MaxUploadSize caps PUT bodies in bytes. Zero means no limit.
	MaxUploadSize int64
	// PrefixProbe, when set, keeps reads of unknown prefixes from opening
	// a store. Without it every requested prefix is opened and cached.
	PrefixProbe PrefixProbe
}

// ListResult is the body of a listing response.
type ListResult struct {
	Items     []stowage.ObjectInfo `json:"items"`
	Truncated bool                 `json:"truncated"`
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Handler provides HTTP handlers for store operations.
type Handler struct {
	config  HandlerConfig
	factory Factory

	mu     sync.Mutex
	stores map[string]stowage.Store
}

func NewHandler(config *HandlerConfig, factory Factory) *Handler {
	return &Handler{
		config:  *config,
		factory: factory,
		stores:  make(map[string]stowage.Store),
	}
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.ReadVerifier))
		r.Get("/{prefix}", h.handleList)
		r.Head("/{prefix}/*", h.handleHead)
		r.Get("/{prefix}/*", h.handleGet)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.WriteVerifier))
		r.Put("/{prefix}/*", h.handlePut)
		r.Delete("/{prefix}/*", h.handleDelete)
	})

	return r
}

// Close closes every store the handler opened.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for prefix, store := range h.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(h.stores, prefix)
	}
	return errors.Join(errs...)
}

// store returns the cached store for prefix, opening it on first use.
// Unless create is set, the prefix probe is consulted first and prefixes
// that hold nothing yield errNoPrefix.
func (h *Handler) store(ctx context.Context, prefix string, create bool) (stowage.Store, error) {
	h.mu.Lock()
	store, ok := h.stores[prefix]
	h.mu.Unlock()
	if ok {
		return store, nil
	}

	if !create && h.config.PrefixProbe != nil {
		found, err := h.config.PrefixProbe(ctx, prefix)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errNoPrefix
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if store, ok := h.stores[prefix]; ok {
		return store, nil
	}

	store, err := h.factory(prefix)
	if err != nil {
		return nil, err
	}
	h.stores[prefix] = store
	slog.Debug("opened store", "prefix", prefix)

	return store, nil
}

// splitPath returns the store prefix and the logical path of r. On top of
// the logical-path rules, request paths may not carry \ ? or #, which
// clients cannot send unescaped.
func splitPath(r *http.Request) (string, string, bool) {
	if strings.ContainsAny(r.URL.Path, `\?#`) {
		return "", "", false
	}
	prefix, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !stowage.IsValidPath(prefix) {
		return "", "", false
	}
	if rest != "" && !stowage.IsValidPath(rest) {
		return "", "", false
	}
	return prefix, rest, true
}

// objectRequest resolves the store and object path, writing an error
// response when either is unusable.
func (h *Handler) objectRequest(w http.ResponseWriter, r *http.Request, create bool) (stowage.Store, string, bool) {
	prefix, path, ok := splitPath(r)
	if !ok || path == "" {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return nil, "", false
	}

	store, err := h.store(r.Context(), prefix, create)
	if err != nil {
		switch {
		case !errors.Is(err, errNoPrefix):
			HandleError(w, err)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case strings.Contains(r.Header.Get("Accept"), "text/html"):
			writeMissingPage(w, path)
		default:
			HandleError(w, err)
		}
		return nil, "", false
	}

	return store, path, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	prefix, _, ok := splitPath(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	path := r.URL.Query().Get("path")
	if path != "" && !stowage.IsValidPath(path) {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = max(1, min(maxListLimit, parsed))
		}
	}

	result := ListResult{Items: []stowage.ObjectInfo{}}

	store, err := h.store(r.Context(), prefix, false)
	if errors.Is(err, errNoPrefix) {
		_ = WriteJSON(w, http.StatusOK, result)
		return
	}
	if err != nil {
		HandleError(w, err)
		return
	}

	for obj, err := range store.Objects(r.Context(), path) {
		if err != nil {
			HandleError(w, err)
			return
		}
		if len(result.Items) == limit {
			result.Truncated = true
			break
		}
		result.Items = append(result.Items, obj)
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	store, path, ok := h.objectRequest(w, r, false)
	if !ok {
		return
	}

	exists, err := store.Exists(r.Context(), path)
	if err != nil {
		HandleError(w, err)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	store, path, ok := h.objectRequest(w, r, false)
	if !ok {
		return
	}

	data, err := store.Read(r.Context(), path)
	if err != nil {
		if errors.Is(err, stowage.ErrNotFound) && strings.Contains(r.Header.Get("Accept"), "text/html") {
			writeMissingPage(w, path)
			return
		}
		HandleError(w, err)
		return
	}

	contentType := r.URL.Query().Get(stowage.ResponseContentTypeParam)
	if contentType == "" {
		contentType, err = store.ContentType(r.Context(), path)
		if err != nil {
			HandleError(w, err)
			return
		}
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeContent(w, r, path, time.Time{}, bytes.NewReader(data))
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	store, path, ok := h.objectRequest(w, r, true)
	if !ok {
		return
	}

	body := r.Body
	if h.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	var opts []stowage.UploadOption
	if ct := r.Header.Get("Content-Type"); ct != "" {
		opts = append(opts, stowage.WithContentType(ct))
	}

	if err := store.WriteToFile(r.Context(), path, body, opts...); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
			return
		}
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	store, path, ok := h.objectRequest(w, r, false)
	if !ok {
		return
	}

	if err := store.Delete(r.Context(), path); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
