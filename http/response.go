package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/sagarc03/stowage"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "err", err)
	}
}

// HandleError writes the response matching err.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stowage.ErrNotFound):
		slog.Debug("request error", "err", err)
		WriteError(w, http.StatusNotFound, "not_found", "Object not found")
	case errors.Is(err, stowage.ErrInvalidInput):
		slog.Debug("request error", "err", err)
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
	case errors.Is(err, stowage.ErrUnauthorized):
		slog.Debug("request error", "err", err)
		WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, stowage.ErrMissingConfiguration):
		slog.Error("request error", "err", err)
		WriteError(w, http.StatusNotFound, "unknown_store", "No store is configured for this path")
	case errors.Is(err, stowage.ErrUnscopedClear):
		slog.Warn("request error", "err", err)
		WriteError(w, http.StatusForbidden, "forbidden", "Refusing to clear an unscoped store")
	default:
		slog.Error("request error", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// writeMissingPage answers a browser asking for a missing object.
func writeMissingPage(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = fmt.Fprintf(w, "<!doctype html>\n<title>Not found</title>\n<p><code>%s</code> does not exist.</p>\n",
		html.EscapeString(path))
}
