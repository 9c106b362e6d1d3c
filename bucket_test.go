package stowage_test

import (
	"testing"

	"github.com/sagarc03/stowage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketName_Resolve(t *testing.T) {
	t.Run("single bucket ignores prefix", func(t *testing.T) {
		b := stowage.SingleBucket("files")
		name, err := b.Resolve("anything")
		require.NoError(t, err)
		assert.Equal(t, "files", name)
	})

	t.Run("per prefix routing", func(t *testing.T) {
		b := stowage.BucketPerPrefix(map[string]string{"images": "img-bucket", "docs": "doc-bucket"})

		name, err := b.Resolve("images")
		require.NoError(t, err)
		assert.Equal(t, "img-bucket", name)

		name, err = b.Resolve("docs")
		require.NoError(t, err)
		assert.Equal(t, "doc-bucket", name)
	})

	t.Run("per prefix missing entry", func(t *testing.T) {
		b := stowage.BucketPerPrefix(map[string]string{"images": "img-bucket"})
		_, err := b.Resolve("videos")
		assert.ErrorIs(t, err, stowage.ErrMissingConfiguration)
	})

	t.Run("unset", func(t *testing.T) {
		var b stowage.BucketName
		assert.True(t, b.IsZero())
		_, err := b.Resolve("x")
		assert.ErrorIs(t, err, stowage.ErrMissingConfiguration)
	})

	t.Run("routing table is copied", func(t *testing.T) {
		m := map[string]string{"a": "one"}
		b := stowage.BucketPerPrefix(m)
		m["a"] = "two"

		name, err := b.Resolve("a")
		require.NoError(t, err)
		assert.Equal(t, "one", name)
	})
}

func TestBucketName_String(t *testing.T) {
	assert.Equal(t, "files", stowage.SingleBucket("files").String())
	assert.Equal(t, "[a=one b=two]", stowage.BucketPerPrefix(map[string]string{"b": "two", "a": "one"}).String())
}
