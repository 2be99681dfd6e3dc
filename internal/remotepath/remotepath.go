// Package remotepath canonicalizes paths on the remote host.
//
// Remote paths are always POSIX-style and absolute. Every path that crosses
// into the session or file store is passed through Normalize first.
package remotepath

import (
	"path"
	"strings"
)

// Root is the canonical form of the remote filesystem root.
const Root = "/"

// Normalize returns the canonical absolute form of raw.
//
// Surrounding whitespace and quote characters are trimmed, backslashes become
// forward slashes, and "." / ".." / duplicate separators are collapsed
// lexically. A relative-looking path is anchored at the root rather than at
// any working directory. Empty input yields "/".
func Normalize(raw string) string {
	p := raw
	for {
		next := normalizeOnce(p)
		if next == p {
			return next
		}
		p = next
	}
}

// normalizeOnce applies a single trim-and-clean pass. Cleaning can expose new
// trailing whitespace or quotes ("/a /" -> "/a "), so Normalize repeats it
// until nothing changes.
func normalizeOnce(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.TrimSpace(strings.Trim(p, `"'`))
	if p == "" {
		return Root
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Join appends name to base and normalizes the result.
func Join(base, name string) string {
	return Normalize(Normalize(base) + "/" + name)
}

// Parent returns the parent directory of p. The parent of "/" is "/".
func Parent(p string) string {
	return path.Dir(Normalize(p))
}

// Base returns the last element of p, or "/" for the root.
func Base(p string) string {
	return path.Base(Normalize(p))
}

// IsRoot reports whether p normalizes to the root.
func IsRoot(p string) bool {
	return Normalize(p) == Root
}
