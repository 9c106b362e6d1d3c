package localfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/internal/localfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		return p
	}

	write("b.txt")
	write("a.txt")
	write(".hidden")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("n"), 0o644))

	target := filepath.Join(outside, "target.jpg")
	require.NoError(t, os.WriteFile(target, []byte("linked"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "linked.jpg")))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone"), filepath.Join(dir, "dangling")))

	files, err := localfile.Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "linked.jpg"),
	}, files)

	f, size, err := localfile.OpenRegular(filepath.Join(dir, "linked.jpg"))
	require.NoError(t, err)
	defer localfile.Close(f, "linked.jpg")
	assert.Equal(t, int64(len("linked")), size)
}

func TestFiles_MissingDir(t *testing.T) {
	_, err := localfile.Files(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)
}

func TestOpenRegular_Directory(t *testing.T) {
	_, _, err := localfile.OpenRegular(t.TempDir())
	assert.ErrorIs(t, err, stowage.ErrInvalidInput)
}
