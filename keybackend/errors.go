package keybackend

import (
	"errors"
	"fmt"

	"github.com/sagarc03/stowage"
)

// ErrKeyNotFound is returned when the access key does not exist in the store.
// It matches stowage.ErrUnauthorized as well.
var ErrKeyNotFound = fmt.Errorf("access key not found: %w", stowage.ErrUnauthorized)

// ErrNoKeys is returned when a signing key pair is requested from an empty store.
var ErrNoKeys = errors.New("no access keys configured")
