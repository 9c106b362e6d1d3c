package filesystem_test

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/filesystem"
	"github.com/sagarc03/stowage/internal/storetest"
	"github.com/sagarc03/stowage/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, prefix string, opts stowage.Options) *filesystem.Store {
	t.Helper()
	store, err := filesystem.New(prefix, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) func(string) stowage.Store {
		root := t.TempDir()
		return func(prefix string) stowage.Store {
			return newStore(t, prefix, stowage.Options{RootPath: root})
		}
	})
}

func TestNew_RequiresRootPath(t *testing.T) {
	_, err := filesystem.New("foo", stowage.Options{})
	assert.ErrorIs(t, err, stowage.ErrMissingConfiguration)
}

func TestNew_CreatesPrefixDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not", "yet")
	store := newStore(t, "images/thumbs", stowage.Options{RootPath: root})

	info, err := os.Stat(filepath.Join(root, "images", "thumbs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(root, "images", "thumbs"), store.Dir())
}

func TestNew_InvalidPrefix(t *testing.T) {
	_, err := filesystem.New("../escape", stowage.Options{RootPath: t.TempDir()})
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)
}

func TestStore_Layout(t *testing.T) {
	root := t.TempDir()
	store := newStore(t, "foo", stowage.Options{RootPath: root})

	src := storetest.LocalFile(t, t.TempDir(), "a.jpg", "jpeg")
	require.NoError(t, store.Upload(context.Background(), "x/y/z", src))

	data, err := os.ReadFile(filepath.Join(root, "foo", "x", "y", "z", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "foo", "x", "y", "z"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_ClearKeepsPrefixDir(t *testing.T) {
	root := t.TempDir()
	store := newStore(t, "foo", stowage.Options{RootPath: root})
	ctx := context.Background()

	require.NoError(t, store.WriteToFile(ctx, "a/b.txt", strings.NewReader("b")))
	require.NoError(t, store.Clear(ctx))

	entries, err := os.ReadDir(filepath.Join(root, "foo"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_AllowUnscopedClear(t *testing.T) {
	root := t.TempDir()
	store := newStore(t, "", stowage.Options{RootPath: root, AllowUnscopedClear: true})
	ctx := context.Background()

	require.NoError(t, store.WriteToFile(ctx, "a/b.txt", strings.NewReader("b")))
	require.NoError(t, store.WriteToFile(ctx, "top.txt", strings.NewReader("t")))
	require.NoError(t, store.Clear(ctx))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ContextCanceled(t *testing.T) {
	store := newStore(t, "foo", stowage.Options{RootPath: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Read(ctx, "x.txt")
	assert.Equal(t, context.Canceled, err)

	err = store.WriteToFile(ctx, "x.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Exists(ctx, "x.txt")
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Objects_Metadata(t *testing.T) {
	store := newStore(t, "foo", stowage.Options{RootPath: t.TempDir()})
	ctx := context.Background()

	require.NoError(t, store.WriteToFile(ctx, "img/logo.png", strings.NewReader("png")))

	var got []stowage.ObjectInfo
	for obj, err := range store.Objects(ctx, "img/logo.png") {
		require.NoError(t, err)
		got = append(got, obj)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "foo/img/logo.png", got[0].Key)
	assert.Equal(t, int64(3), got[0].Size)
	assert.Equal(t, "image/png", got[0].ContentType)
	assert.Equal(t, "8f8cbb7dcf46e0bc7d53265749a6c17d116093a6ba95e442764060c76fd4a86c", got[0].ETag)
	assert.False(t, got[0].LastModified.IsZero())
}

func TestStore_URLs(t *testing.T) {
	ctx := context.Background()

	t.Run("no gateway configured", func(t *testing.T) {
		store := newStore(t, "foo", stowage.Options{RootPath: t.TempDir()})

		_, err := store.PublicURL(ctx, "a.jpg")
		assert.ErrorIs(t, err, stowage.ErrMissingConfiguration)

		_, err = store.URLFor(ctx, "a.jpg")
		assert.ErrorIs(t, err, stowage.ErrMissingConfiguration)
	})

	t.Run("signed gateway url", func(t *testing.T) {
		store := newStore(t, "foo", stowage.Options{
			RootPath: t.TempDir(),
			Gateway: stowage.GatewayConfig{
				Endpoint:  "http://localhost:5708/",
				AccessKey: "GATEWAY",
				SecretKey: "secret",
			},
		})

		public, err := store.PublicURL(ctx, "x/y/z/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5708/foo/x/y/z/a.jpg", public)

		signed, err := store.URLFor(ctx, "x/y/z/a.jpg", stowage.WithExpires(10*time.Minute))
		require.NoError(t, err)

		u, err := url.Parse(signed)
		require.NoError(t, err)
		assert.Equal(t, "/foo/x/y/z/a.jpg", u.Path)
		assert.Equal(t, "600", u.Query().Get("X-Stowry-Expires"))
		assert.Equal(t, "image/jpeg", u.Query().Get(stowage.ResponseContentTypeParam))

		verifier := stowage.NewSignatureVerifier("us-east-1", "s3",
			keybackend.NewMapSecretStore(map[string]string{"GATEWAY": "secret"}))
		req, err := http.NewRequest(http.MethodGet, signed, nil)
		require.NoError(t, err)
		assert.NoError(t, verifier.Verify(req))

		signed, err = store.URLFor(ctx, "x/y/z/a.jpg", stowage.WithResponseContentType("application/octet-stream"))
		require.NoError(t, err)
		u, err = url.Parse(signed)
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", u.Query().Get(stowage.ResponseContentTypeParam))
		assert.Equal(t, "1800", u.Query().Get("X-Stowry-Expires"))
	})
}
