package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// TempTree materializes a directory tree described as a JSON or YAML object
// under a fresh temporary directory and returns its path. Nested objects and
// nulls become directories, strings become files with that content. Any
// other value fails the test. The directory is removed when the test ends.
//
//	dir := testutil.TempTree(t, `{"a": {"b.txt": "hi"}, "empty": null}`)
func TempTree(t testing.TB, tree string) string {
	t.Helper()

	var root any
	if err := yaml.Unmarshal([]byte(tree), &root); err != nil {
		t.Fatalf("parse tree: %v", err)
	}

	entries, ok := root.(map[string]any)
	if !ok {
		t.Fatalf("tree must be an object, got %T", root)
	}

	dir := t.TempDir()
	writeTree(t, dir, entries)
	return dir
}

func writeTree(t testing.TB, dir string, entries map[string]any) {
	t.Helper()

	for name, contents := range entries {
		path := filepath.Join(dir, name)
		switch v := contents.(type) {
		case map[string]any:
			if err := os.Mkdir(path, 0o755); err != nil {
				t.Fatalf("create dir: %v", err)
			}
			writeTree(t, path, v)
		case nil:
			if err := os.Mkdir(path, 0o755); err != nil {
				t.Fatalf("create dir: %v", err)
			}
		case string:
			if err := os.WriteFile(path, []byte(v), 0o644); err != nil {
				t.Fatalf("write file: %v", err)
			}
		default:
			t.Fatalf("%s: tree may only contain objects, strings or null, got %T", path, contents)
		}
	}
}
