package remotepath

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchName reports whether name contains pattern, ignoring case. Every
// character of pattern is literal. An empty pattern matches everything.
func MatchName(pattern, name string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// MatchGlob reports whether the whole name matches the glob pattern,
// ignoring case. A malformed pattern matches nothing; an empty pattern
// matches everything.
func MatchGlob(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	matched, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && matched
}

// Matcher returns MatchGlob when glob is set and MatchName otherwise.
func Matcher(glob bool) func(pattern, name string) bool {
	if glob {
		return MatchGlob
	}
	return MatchName
}
