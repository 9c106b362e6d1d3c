// Package storetest is a behaviour suite every stowage.Store backend runs.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sagarc03/stowage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend sets up a fresh backend (root directory or bucket) for t and returns
// a function that binds stores to it. Stores must not allow unscoped clears.
type Backend func(t *testing.T) func(prefix string) stowage.Store

// Run runs the suite.
func Run(t *testing.T, newBackend Backend) {
	t.Run("Upload", func(t *testing.T) { testUpload(t, newBackend) })
	t.Run("UploadOverwrites", func(t *testing.T) { testUploadOverwrites(t, newBackend) })
	t.Run("UploadURLMetacharacters", func(t *testing.T) { testUploadURLMetacharacters(t, newBackend) })
	t.Run("Read", func(t *testing.T) { testRead(t, newBackend) })
	t.Run("Copy", func(t *testing.T) { testCopy(t, newBackend) })
	t.Run("CopyMissing", func(t *testing.T) { testCopyMissing(t, newBackend) })
	t.Run("ClearIsolation", func(t *testing.T) { testClearIsolation(t, newBackend) })
	t.Run("UnscopedClear", func(t *testing.T) { testUnscopedClear(t, newBackend) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newBackend) })
	t.Run("UploadDir", func(t *testing.T) { testUploadDir(t, newBackend) })
	t.Run("WriteToFile", func(t *testing.T) { testWriteToFile(t, newBackend) })
	t.Run("ContentType", func(t *testing.T) { testContentType(t, newBackend) })
	t.Run("Objects", func(t *testing.T) { testObjects(t, newBackend) })
	t.Run("InvalidPath", func(t *testing.T) { testInvalidPath(t, newBackend) })
}

// LocalFile writes content to dir/name and returns the path.
func LocalFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testUpload(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")
	src := LocalFile(t, t.TempDir(), "a.jpg", "jpeg bytes")

	require.NoError(t, store.Upload(ctx, "x/y/z", src))

	ok, err := store.Exists(ctx, "x/y/z/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "x/abc")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(src)
	assert.NoError(t, err, "source file must be left in place")
}

func testUploadOverwrites(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")
	dir := t.TempDir()

	require.NoError(t, store.Upload(ctx, "x", LocalFile(t, filepath.Join(dir, "1"), "same.txt", "first")))
	require.NoError(t, store.Upload(ctx, "x", LocalFile(t, filepath.Join(dir, "2"), "same.txt", "second")))

	data, err := store.Read(ctx, "x/same.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func testUploadURLMetacharacters(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	const name = "report#1?.pdf"
	require.NoError(t, store.Upload(ctx, "x", LocalFile(t, t.TempDir(), name, "%PDF")))

	data, err := store.Read(ctx, "x/"+name)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	ok, err := store.Exists(ctx, "x/"+name)
	require.NoError(t, err)
	assert.True(t, ok)

	ct, err := store.ContentType(ctx, "x/"+name)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)

	dest := filepath.Join(t.TempDir(), "copy.pdf")
	require.NoError(t, store.Copy(ctx, "x/"+name, dest))

	assert.Equal(t, []string{"foo/x/" + name}, keys(t, store, "x"))

	require.NoError(t, store.Delete(ctx, "x/"+name))
	ok, err = store.Exists(ctx, "x/"+name)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testRead(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	require.NoError(t, store.Upload(ctx, "docs", LocalFile(t, t.TempDir(), "note.txt", "hello")))

	data, err := store.Read(ctx, "/docs/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.Read(ctx, "docs/missing.txt")
	assert.ErrorIs(t, err, stowage.ErrNotFound)
}

func testCopy(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	require.NoError(t, store.Upload(ctx, "x/y/z", LocalFile(t, t.TempDir(), "a.jpg", "picture")))

	dest := filepath.Join(t.TempDir(), "out", "copy.jpg")
	require.NoError(t, store.Copy(ctx, "x/y/z/a.jpg", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "picture", string(data))
}

func testCopyMissing(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	dest := filepath.Join(t.TempDir(), "never.jpg")
	err := store.Copy(ctx, "x/y/z/missing.jpg", dest)
	require.ErrorIs(t, err, stowage.ErrNotFound)
	assert.Contains(t, err.Error(), "x/y/z/missing.jpg")

	_, statErr := os.Stat(dest)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "destination must not be created")
}

func testClearIsolation(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	foo := open("foo")
	bar := open("bar")
	dir := t.TempDir()

	require.NoError(t, foo.Upload(ctx, "x", LocalFile(t, dir, "f.txt", "foo")))
	require.NoError(t, bar.Upload(ctx, "x", LocalFile(t, dir, "b.txt", "bar")))

	require.NoError(t, foo.Clear(ctx))

	ok, err := foo.Exists(ctx, "x/f.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = bar.Exists(ctx, "x/b.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, foo.Clear(ctx), "clearing an empty store is not an error")
}

func testUnscopedClear(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("")

	assert.ErrorIs(t, store.Clear(ctx), stowage.ErrUnscopedClear)
	assert.ErrorIs(t, store.Delete(ctx, ""), stowage.ErrUnscopedClear)
}

func testDelete(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")
	dir := t.TempDir()

	require.NoError(t, store.Upload(ctx, "x/y/z", LocalFile(t, dir, "a.txt", "a")))
	require.NoError(t, store.Upload(ctx, "x/y/z/deeper", LocalFile(t, dir, "b.txt", "b")))
	require.NoError(t, store.Upload(ctx, "x/y/s", LocalFile(t, dir, "c.txt", "c")))
	require.NoError(t, store.Upload(ctx, "x/y/zz", LocalFile(t, dir, "d.txt", "d")))

	require.NoError(t, store.Delete(ctx, "x/y/z"))

	for p, want := range map[string]bool{
		"x/y/z/a.txt":        false,
		"x/y/z/deeper/b.txt": false,
		"x/y/s/c.txt":        true,
		"x/y/zz/d.txt":       true,
	} {
		ok, err := store.Exists(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, want, ok, p)
	}

	assert.NoError(t, store.Delete(ctx, "x/y/z"), "deleting a missing path is not an error")
}

func testUploadDir(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	require.NoError(t, store.Upload(ctx, "d", LocalFile(t, t.TempDir(), "old.txt", "stale")))

	src := t.TempDir()
	LocalFile(t, src, "a.txt", "a")
	LocalFile(t, src, "b.png", "b")
	LocalFile(t, src, ".hidden", "h")
	LocalFile(t, src, "sub/c.txt", "c")

	require.NoError(t, store.UploadDir(ctx, "d", src))

	for p, want := range map[string]bool{
		"d/a.txt":     true,
		"d/b.png":     true,
		"d/old.txt":   false,
		"d/.hidden":   false,
		"d/sub/c.txt": false,
	} {
		ok, err := store.Exists(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, want, ok, p)
	}

	replacement := t.TempDir()
	LocalFile(t, replacement, "only.txt", "only")
	require.NoError(t, store.UploadDir(ctx, "d", replacement))

	assert.Equal(t, []string{"foo/d/only.txt"}, keys(t, store, "d"))

	err := store.UploadDir(ctx, "d", filepath.Join(src, "missing"))
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)
	assert.Equal(t, []string{"foo/d/only.txt"}, keys(t, store, "d"), "failed upload must not delete")
}

func testWriteToFile(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	require.NoError(t, store.WriteToFile(ctx, "reports/2024/summary.json", bytes.NewBufferString(`{"ok":true}`)))

	data, err := store.Read(ctx, "reports/2024/summary.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	require.NoError(t, store.WriteToFile(ctx, "reports/2024/summary.json", bytes.NewBufferString(`{"ok":false}`)))
	data, err = store.Read(ctx, "reports/2024/summary.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false}`, string(data))
}

func testContentType(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")
	dir := t.TempDir()

	require.NoError(t, store.Upload(ctx, "x/y/z", LocalFile(t, dir, "a.jpg", "jpeg")))
	require.NoError(t, store.Upload(ctx, "x/y/z", LocalFile(t, dir, "a", "plain")))

	ct, err := store.ContentType(ctx, "x/y/z/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	ct, err = store.ContentType(ctx, "x/y/z/a")
	require.NoError(t, err)
	assert.Equal(t, "", ct)

	_, err = store.ContentType(ctx, "x/y/z/missing.jpg")
	assert.ErrorIs(t, err, stowage.ErrNotFound)
}

func testObjects(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	require.NoError(t, store.WriteToFile(ctx, "project1/card1/test1", bytes.NewBufferString("one")))
	require.NoError(t, store.WriteToFile(ctx, "project1/card2/test2", bytes.NewBufferString("two!")))
	require.NoError(t, store.WriteToFile(ctx, "project10/card1/other", bytes.NewBufferString("x")))

	assert.Equal(t, []string{"foo/project1/card1/test1", "foo/project1/card2/test2"}, keys(t, store, "project1"))

	for obj, err := range store.Objects(ctx, "project1/card2") {
		require.NoError(t, err)
		assert.Equal(t, int64(4), obj.Size)
		assert.NotEmpty(t, obj.ETag)
	}

	n := 0
	for _, err := range store.Objects(ctx, "") {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)

	assert.Empty(t, keys(t, store, "nothing/here"))
}

func testInvalidPath(t *testing.T, newBackend Backend) {
	ctx := context.Background()
	open := newBackend(t)
	store := open("foo")

	_, err := store.Read(ctx, "../outside")
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)

	_, err = store.Exists(ctx, "a//b")
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)

	err = store.Delete(ctx, "a/./b")
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)
}

func keys(t *testing.T, store stowage.Store, p string) []string {
	t.Helper()
	var out []string
	for obj, err := range store.Objects(context.Background(), p) {
		require.NoError(t, err)
		out = append(out, obj.Key)
	}
	sort.Strings(out)
	return out
}
