package remotepath

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: "/"},
		{name: "whitespace only", raw: "   \t", want: "/"},
		{name: "root", raw: "/", want: "/"},
		{name: "already canonical", raw: "/home/pi", want: "/home/pi"},
		{name: "trailing slash", raw: "/home/pi/", want: "/home/pi"},
		{name: "relative anchored at root", raw: "sub/dir", want: "/sub/dir"},
		{name: "dot segments", raw: "/a/./b/../c", want: "/a/c"},
		{name: "dotdot above root", raw: "/../../etc", want: "/etc"},
		{name: "duplicate separators", raw: "//a///b", want: "/a/b"},
		{name: "backslashes", raw: `\home\pi\docs`, want: "/home/pi/docs"},
		{name: "double quotes", raw: `"/home/pi/My Files"`, want: "/home/pi/My Files"},
		{name: "single quotes and spaces", raw: "  '/tmp/x'  ", want: "/tmp/x"},
		{name: "quoted empty", raw: `""`, want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", "/", "a", "a/b/../c", `C:\Users\pi`, " '/x/y/' ", "../..", "/a//b/./c/",
		"...", "/a/.../b", `"  spaced  "`, "~/notes", "/a /", "/a / /", "/a'/",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"/home/pi", "sub/dir/..", "/home/pi/sub"},
		{"/", "etc", "/etc"},
		{"/home/pi", "../root", "/home/root"},
		{"home/pi/", "file.txt", "/home/pi/file.txt"},
		{"/home/pi", "", "/home/pi"},
	}
	for _, tt := range tests {
		if got := Join(tt.base, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}

func TestParentAndBase(t *testing.T) {
	tests := []struct {
		path, parent, base string
	}{
		{"/", "/", "/"},
		{"/home", "/", "home"},
		{"/home/pi/", "/home", "pi"},
		{"a/b", "/a", "b"},
	}
	for _, tt := range tests {
		if got := Parent(tt.path); got != tt.parent {
			t.Errorf("Parent(%q) = %q, want %q", tt.path, got, tt.parent)
		}
		if got := Base(tt.path); got != tt.base {
			t.Errorf("Base(%q) = %q, want %q", tt.path, got, tt.base)
		}
	}
}

func TestResultsAlwaysAbsolute(t *testing.T) {
	inputs := []string{"", "x", "../x", `\\srv\share`, "./", "a/../.."}
	for _, in := range inputs {
		for _, got := range []string{Join(in, in), Parent(in), Normalize(in)} {
			if !strings.HasPrefix(got, "/") {
				t.Errorf("result %q for input %q does not start with /", got, in)
			}
		}
	}
}

func TestIsRoot(t *testing.T) {
	if !IsRoot(" / ") {
		t.Error("IsRoot(\" / \") = false, want true")
	}
	if IsRoot("/home") {
		t.Error("IsRoot(\"/home\") = true, want false")
	}
}
