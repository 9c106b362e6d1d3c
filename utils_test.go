package stowage_test

import (
	"testing"
	"unicode/utf8"

	"github.com/sagarc03/stowage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})
	require.False(t, utf8.ValidString(invalidUTF8))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "empty is root", path: "", want: ""},
		{name: "slash is root", path: "/", want: ""},
		{name: "leading slash stripped", path: "/x/y/z", want: "x/y/z"},
		{name: "trailing slash stripped", path: "x/y/", want: "x/y"},
		{name: "plain", path: "project1/card1/test1", want: "project1/card1/test1"},
		{name: "space allowed", path: "docs/annual report.pdf", want: "docs/annual report.pdf"},
		{name: "dots inside name allowed", path: "a/b..c", want: "a/b..c"},
		{name: "hidden segment allowed", path: ".hidden/file", want: ".hidden/file"},
		{name: "unicode", path: "привет/世界/file.ext", want: "привет/世界/file.ext"},
		{name: "url metacharacters", path: "x/report#1?.pdf", want: "x/report#1?.pdf"},
		{name: "backslash", path: `x/a\b`, want: `x/a\b`},

		{name: "double slash", path: "a//b", wantErr: true},
		{name: "parent segment", path: "a/../b", wantErr: true},
		{name: "dot segment", path: "a/./b", wantErr: true},
		{name: "only parent", path: "..", wantErr: true},
		{name: "NUL", path: "a\x00b", wantErr: true},
		{name: "newline", path: "a\nb", wantErr: true},
		{name: "DEL", path: "a\x7fb", wantErr: true},
		{name: "invalid utf8", path: invalidUTF8, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stowage.CleanPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, stowage.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidPath(t *testing.T) {
	assert.True(t, stowage.IsValidPath("x/y/z"))
	assert.False(t, stowage.IsValidPath(""))
	assert.False(t, stowage.IsValidPath("/x/y"))
	assert.False(t, stowage.IsValidPath("x/y/"))
	assert.False(t, stowage.IsValidPath("x/../y"))
}

func TestJoinKey(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{name: "all present", segments: []string{"ns", "foo", "x/y/z"}, want: "ns/foo/x/y/z"},
		{name: "empty namespace skipped", segments: []string{"", "foo", "x"}, want: "foo/x"},
		{name: "empty prefix skipped", segments: []string{"ns", "", "x"}, want: "ns/x"},
		{name: "slashes trimmed", segments: []string{"/ns/", "/foo", "x/"}, want: "ns/foo/x"},
		{name: "nothing", segments: []string{"", ""}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stowage.JoinKey(tt.segments...))
		})
	}
}

func TestHasKeyPrefix(t *testing.T) {
	assert.True(t, stowage.HasKeyPrefix("x/y/z", "x/y/z"))
	assert.True(t, stowage.HasKeyPrefix("x/y/z/a.jpg", "x/y/z"))
	assert.False(t, stowage.HasKeyPrefix("x/y/zz", "x/y/z"))
	assert.True(t, stowage.HasKeyPrefix("anything", ""))
}
