package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCleanRelative(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		hasError bool
	}{
		{name: "simple path", input: "dist", expected: "dist"},
		{name: "leading slash is repo relative", input: "/dist/js", expected: "dist/js"},
		{name: "dot slash", input: "./public/css", expected: "public/css"},
		{name: "empty path", input: "", expected: "."},
		{name: "current directory", input: ".", expected: "."},
		{name: "dots in names", input: "lib/jquery..min", expected: "lib/jquery..min"},
		{name: "glob kept intact", input: "js/**/*.js", expected: "js/**/*.js"},
		{name: "traversal", input: "../other-repo", hasError: true},
		{name: "traversal in middle", input: "dist/../../etc", hasError: true},
		{name: "parent directory", input: "..", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CleanRelative(tt.input)
			if tt.hasError {
				if !errors.Is(err, ErrTraversal) {
					t.Errorf("CleanRelative(%q) expected traversal error, got %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanRelative(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("CleanRelative(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestReadFileContained(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "dist", "app.js")
	if err := os.MkdirAll(filepath.Dir(inside), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte("var a = 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadFileContained(base, inside)
	if err != nil {
		t.Fatalf("ReadFileContained() unexpected error: %v", err)
	}
	if string(data) != "var a = 1;" {
		t.Errorf("ReadFileContained() = %q", data)
	}

	if _, err := ReadFileContained(base, outside); !errors.Is(err, ErrTraversal) {
		t.Errorf("expected traversal error for file outside base, got %v", err)
	}

	if _, err := ReadFileContained(base, filepath.Join(base, "missing.js")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "app.js.map")
	if err := os.WriteFile(f, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !IsFile(f) {
		t.Error("expected regular file to be reported")
	}
	if IsFile(dir) {
		t.Error("directory must not be reported as a file")
	}
	if IsFile(filepath.Join(dir, "missing")) {
		t.Error("missing path must not be reported as a file")
	}
}
