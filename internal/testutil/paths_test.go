package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindModuleRoot(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	root, err := findModuleRoot(wd)
	if err != nil {
		t.Fatalf("findModuleRoot returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cmd", "plugsync", "main.go")); err != nil {
		t.Fatalf("module root %s does not contain the plugsync command: %v", root, err)
	}
}

func TestFindModuleRootFromNestedDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := findModuleRoot(nested)
	if err != nil {
		t.Fatalf("findModuleRoot returned error: %v", err)
	}
	if got != root {
		t.Errorf("findModuleRoot() = %s, want %s", got, root)
	}
}
