package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAllowListMatches(t *testing.T) {
	allow := AllowList{
		Files:   []string{"main.js", "styles.css", "manifest.json"},
		Folders: []string{"lang"},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"main.js", true},
		{"styles.css", true},
		{"manifest.json", true},
		{"src/main.ts", false},
		{"main.js.map", false},
		{"Main.js", false},
		{"node_modules/pkg/manifest.json", true}, // names match at any depth
		{"lang/en.json", true},
		{"lang", true},
		{"language/en.json", false},
		{"src/lang/en.json", false},
	}

	for _, tc := range tests {
		if got := allow.Matches(tc.path); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDefaultAllowList(t *testing.T) {
	allow := DefaultAllowList()
	if len(allow.Files) != 3 {
		t.Fatalf("expected 3 default files, got %v", allow.Files)
	}
	if len(allow.Folders) != 0 {
		t.Errorf("expected no default folders, got %v", allow.Folders)
	}

	// The default list must be a copy, not the package variable itself.
	allow.Files[0] = "changed.js"
	if DefaultFiles[0] != BuildArtifact {
		t.Error("DefaultAllowList shares storage with DefaultFiles")
	}
}

func TestEmptyAllowListMatchesNothing(t *testing.T) {
	var allow AllowList
	for _, p := range []string{"main.js", "a/b", "."} {
		if allow.Matches(p) {
			t.Errorf("empty allow-list matched %q", p)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	tests := map[string]string{
		"main.js":          "main.js",
		"lang/en.json":     "lang",
		"lang/sub/x.json":  "lang",
		"./lang/en.json":   "lang",
		"lang/../main.js":  "main.js",
		filepath.Join("a"): "a",
	}
	for in, want := range tests {
		if got := FirstSegment(in); got != want {
			t.Errorf("FirstSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsTopLevel(t *testing.T) {
	if !IsTopLevel("main.js") {
		t.Error("main.js should be top level")
	}
	if IsTopLevel("sub/main.js") {
		t.Error("sub/main.js should not be top level")
	}
	if IsTopLevel(".") {
		t.Error(". should not be top level")
	}
}

func TestRelativePath(t *testing.T) {
	rel, err := RelativePath("/src", "/src/a/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if rel != filepath.Join("a", "main.js") {
		t.Errorf("RelativePath = %q", rel)
	}

	if _, err := RelativePath("/src", "/other/main.js"); err == nil {
		t.Error("expected error for path outside base")
	}
}

func TestIsWithin(t *testing.T) {
	if !IsWithin("/src", "/src/.obsidian/plugins/x/main.js") {
		t.Error("expected nested path to be within")
	}
	if IsWithin("/src", "/srcx/main.js") {
		t.Error("sibling prefix must not count as within")
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":"add-custom-icons","name":"Add Custom Icons","version":"1.2.0","minAppVersion":"1.4.0"}`
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.ID != "add-custom-icons" || m.Version != "1.2.0" || m.MinAppVersion != "1.4.0" {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadManifest(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(dir); err == nil {
		t.Error("expected parse error for malformed manifest")
	}
}
