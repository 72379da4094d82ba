package paxbuilder

import "strings"

// Sanitize replaces every character outside [A-Za-z0-9_.-] with '_'; an
// empty result becomes "_". Used for every path component derived from
// user-controlled recipe fields (package name, version, release, branch,
// target release, architecture label) before it touches the filesystem.
func Sanitize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Normalize retains only ASCII alphanumerics, lowercased. Used to match
// dependency names against sibling recipe directory names regardless of
// hyphenation or case (e.g. "libX-Devel" and "libx_devel" both normalize
// to "libxdevel").
func Normalize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// devDependencySuffixes are the suffixes that mark a dependency as a
// development-only package eligible for dependency auto-build (spec.md §4.4).
var devDependencySuffixes = []string{"-devel", "-dev", "-headers", "-sdk"}

// ShouldAutoBuildDependency reports whether name looks like a development
// package the dependency builder is allowed to build automatically.
func ShouldAutoBuildDependency(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range devDependencySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
