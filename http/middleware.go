package http

import (
	"net/http"
)

// RequestVerifier authenticates a request. *stowage.SignatureVerifier
// implements it.
type RequestVerifier interface {
	Verify(r *http.Request) error
}

// AuthMiddleware rejects requests that fail verification. A nil verifier
// allows every request.
func AuthMiddleware(verifier RequestVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
