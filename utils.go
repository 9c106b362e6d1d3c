package stowage

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CleanPath normalizes a logical path. Leading and trailing slashes are
// stripped; the empty result denotes the store root. It returns
// ErrInvalidInput when the path has:
//   - empty segments ("a//b")
//   - "." or ".." segments
//   - invalid UTF-8
//   - null bytes, control characters (< 0x20) or DEL (0x7f)
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", nil
	}

	if !utf8.ValidString(p) {
		return "", fmt.Errorf("%w: path is not valid utf-8", ErrInvalidInput)
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("%w: path %q contains a control character", ErrInvalidInput, p)
		}
	}

	for seg := range strings.SplitSeq(p, "/") {
		switch seg {
		case "":
			return "", fmt.Errorf("%w: path %q has an empty segment", ErrInvalidInput, p)
		case ".", "..":
			return "", fmt.Errorf("%w: path %q has a relative segment", ErrInvalidInput, p)
		}
	}

	return p, nil
}

// IsValidPath reports whether p names an object: a non-empty logical path
// that is already in clean form (no leading or trailing slash).
func IsValidPath(p string) bool {
	if p == "" {
		return false
	}
	clean, err := CleanPath(p)
	return err == nil && clean == p
}

// JoinKey joins key segments with "/", skipping empty ones. Surrounding
// slashes on each segment are dropped so the result never starts or ends
// with a slash.
func JoinKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// HasKeyPrefix reports whether key is base itself or lies under base as a
// directory. An empty base contains every key.
func HasKeyPrefix(key, base string) bool {
	if base == "" {
		return true
	}
	return key == base || strings.HasPrefix(key, base+"/")
}
