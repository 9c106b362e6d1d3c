package keybackend_test

import (
	"testing"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSecretStore_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		keys      map[string]string
		accessKey string
		wantKey   string
		wantErr   error
	}{
		{
			name: "returns secret key when access key exists",
			keys: map[string]string{
				"access1": "secret1",
				"access2": "secret2",
			},
			accessKey: "access1",
			wantKey:   "secret1",
			wantErr:   nil,
		},
		{
			name: "returns ErrKeyNotFound when access key does not exist",
			keys: map[string]string{
				"access1": "secret1",
			},
			accessKey: "nonexistent",
			wantKey:   "",
			wantErr:   keybackend.ErrKeyNotFound,
		},
		{
			name:      "returns ErrKeyNotFound for empty store",
			keys:      map[string]string{},
			accessKey: "anykey",
			wantKey:   "",
			wantErr:   keybackend.ErrKeyNotFound,
		},
		{
			name:      "returns ErrKeyNotFound for nil store",
			keys:      nil,
			accessKey: "anykey",
			wantKey:   "",
			wantErr:   keybackend.ErrKeyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := keybackend.NewMapSecretStore(tt.keys)
			gotKey, err := store.Lookup(tt.accessKey)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, gotKey)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKey, gotKey)
			}
		})
	}
}

func TestMapSecretStore_NotFoundIsUnauthorized(t *testing.T) {
	store := keybackend.NewMapSecretStore(nil)
	_, err := store.Lookup("missing")
	assert.ErrorIs(t, err, stowage.ErrUnauthorized)
	assert.Contains(t, err.Error(), "access key not found")
}

func TestMapSecretStore_SigningPair(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{
		"zeta":  "z-secret",
		"alpha": "a-secret",
	})

	assert.Equal(t, []string{"alpha", "zeta"}, store.AccessKeys())

	pair, err := store.SigningPair("")
	require.NoError(t, err)
	assert.Equal(t, keybackend.KeyPair{AccessKey: "alpha", SecretKey: "a-secret"}, pair)

	pair, err = store.SigningPair("zeta")
	require.NoError(t, err)
	assert.Equal(t, "z-secret", pair.SecretKey)

	_, err = store.SigningPair("nope")
	assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)

	_, err = keybackend.NewMapSecretStore(nil).SigningPair("")
	assert.ErrorIs(t, err, keybackend.ErrNoKeys)
}
