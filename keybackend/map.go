// Package keybackend resolves gateway access keys to their secrets.
package keybackend

import (
	"fmt"
	"maps"
	"slices"
)

// MapSecretStore retrieves keys from an in-memory map.
type MapSecretStore struct {
	keys map[string]string
}

func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: maps.Clone(keys)}
}

// Lookup retrieves the secret key for the given access key.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", ErrKeyNotFound
	}
	return secretKey, nil
}

// AccessKeys returns the known access keys, sorted.
func (s *MapSecretStore) AccessKeys() []string {
	return slices.Sorted(maps.Keys(s.keys))
}

// SigningPair returns the pair filesystem stores should sign gateway URLs
// with: the named access key, or the first one in sort order when accessKey
// is empty.
func (s *MapSecretStore) SigningPair(accessKey string) (KeyPair, error) {
	if accessKey == "" {
		keys := s.AccessKeys()
		if len(keys) == 0 {
			return KeyPair{}, ErrNoKeys
		}
		accessKey = keys[0]
	}

	secret, err := s.Lookup(accessKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("signing pair %s: %w", accessKey, err)
	}

	return KeyPair{AccessKey: accessKey, SecretKey: secret}, nil
}
