package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schaermu/plugsync/internal/plugin"
	"github.com/schaermu/plugsync/internal/watch"
)

func TestDecide(t *testing.T) {
	allow := plugin.AllowList{
		Files:   []string{"main.js", "styles.css", "manifest.json"},
		Folders: []string{"lang"},
	}
	layout := Layout{SourceDir: "/src", PluginDir: "/vault/.obsidian/plugins/demo"}
	topLevel := layout
	topLevel.TopLevelOnly = true
	nested := Layout{SourceDir: "/src", PluginDir: "/src/vault/.obsidian/plugins/demo"}

	for _, tc := range []struct {
		name     string
		layout   Layout
		change   Change
		wantKind ActionKind
		wantRel  string
		wantDest string
	}{
		{
			name:     "created artifact",
			layout:   layout,
			change:   Change{Path: "/src/main.js", Op: watch.Created},
			wantKind: ActionCopyFile,
			wantRel:  "main.js",
			wantDest: "/vault/.obsidian/plugins/demo/main.js",
		},
		{
			name:     "modified artifact",
			layout:   layout,
			change:   Change{Path: "/src/styles.css", Op: watch.Modified},
			wantKind: ActionCopyFile,
			wantRel:  "styles.css",
			wantDest: "/vault/.obsidian/plugins/demo/styles.css",
		},
		{
			name:     "removed artifact",
			layout:   layout,
			change:   Change{Path: "/src/main.js", Op: watch.Removed},
			wantKind: ActionSkip,
		},
		{
			name:     "renamed artifact",
			layout:   layout,
			change:   Change{Path: "/src/main.js", Op: watch.Renamed},
			wantKind: ActionSkip,
		},
		{
			name:     "directory named like an artifact",
			layout:   layout,
			change:   Change{Path: "/src/main.js", Op: watch.Created, IsDir: true},
			wantKind: ActionSkip,
		},
		{
			name:     "not allow-listed",
			layout:   layout,
			change:   Change{Path: "/src/notes.txt", Op: watch.Modified},
			wantKind: ActionSkip,
		},
		{
			name:     "outside source",
			layout:   layout,
			change:   Change{Path: "/elsewhere/main.js", Op: watch.Modified},
			wantKind: ActionSkip,
		},
		{
			name:     "source root itself",
			layout:   layout,
			change:   Change{Path: "/src", Op: watch.Modified},
			wantKind: ActionSkip,
		},
		{
			name:     "nested name",
			layout:   layout,
			change:   Change{Path: "/src/build/main.js", Op: watch.Modified},
			wantKind: ActionCopyFile,
			wantRel:  filepath.Join("build", "main.js"),
			wantDest: "/vault/.obsidian/plugins/demo/build/main.js",
		},
		{
			name:     "nested name with top level only",
			layout:   topLevel,
			change:   Change{Path: "/src/build/main.js", Op: watch.Modified},
			wantKind: ActionSkip,
		},
		{
			name:     "folder entry with top level only",
			layout:   topLevel,
			change:   Change{Path: "/src/lang/en.json", Op: watch.Created},
			wantKind: ActionCopyFile,
			wantRel:  filepath.Join("lang", "en.json"),
			wantDest: "/vault/.obsidian/plugins/demo/lang/en.json",
		},
		{
			name:     "inside nested destination",
			layout:   nested,
			change:   Change{Path: "/src/vault/.obsidian/plugins/demo/main.js", Op: watch.Modified},
			wantKind: ActionSkip,
		},
		{
			name:     "source file next to nested destination",
			layout:   nested,
			change:   Change{Path: "/src/main.js", Op: watch.Modified},
			wantKind: ActionCopyFile,
			wantRel:  "main.js",
			wantDest: "/src/vault/.obsidian/plugins/demo/main.js",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			action := Decide(tc.change, tc.layout, allow)
			if action.Kind != tc.wantKind {
				t.Fatalf("Kind = %v, want %v (reason %q)", action.Kind, tc.wantKind, action.Reason)
			}
			if tc.wantKind == ActionSkip {
				if action.Reason == "" {
					t.Error("skip without a reason")
				}
				return
			}
			if action.RelPath != tc.wantRel {
				t.Errorf("RelPath = %q, want %q", action.RelPath, tc.wantRel)
			}
			if action.SourcePath != tc.change.Path {
				t.Errorf("SourcePath = %q, want %q", action.SourcePath, tc.change.Path)
			}
			if action.DestPath != tc.wantDest {
				t.Errorf("DestPath = %q, want %q", action.DestPath, tc.wantDest)
			}
		})
	}
}

func TestDecideIsStable(t *testing.T) {
	allow := plugin.DefaultAllowList()
	layout := Layout{SourceDir: "/src", PluginDir: "/dst"}
	change := Change{Path: "/src/main.js", Op: watch.Modified}

	first := Decide(change, layout, allow)
	for i := 0; i < 3; i++ {
		if got := Decide(change, layout, allow); got != first {
			t.Fatalf("Decide returned %+v, then %+v", first, got)
		}
	}
}

func TestBuildPlan(t *testing.T) {
	root := t.TempDir()
	layout := Layout{
		SourceDir: filepath.Join(root, "src"),
		PluginDir: filepath.Join(root, "dst"),
	}
	allow := plugin.AllowList{
		Files:   []string{"main.js", "styles.css", "manifest.json"},
		Folders: []string{"lang", "assets", "absent"},
	}

	for _, dir := range []string{
		filepath.Join(layout.SourceDir, "lang"),
		filepath.Join(layout.SourceDir, "styles.css"), // a directory, not a file
		filepath.Join(layout.PluginDir, "assets"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(layout.SourceDir, "main.js"), []byte("js"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan := BuildPlan(layout, allow)

	want := map[string]ActionKind{
		"main.js": ActionCopyFile,
		"lang":    ActionCopyFolder,
		"assets":  ActionRemoveFolder,
	}
	if len(plan) != len(want) {
		t.Fatalf("plan has %d actions, want %d: %+v", len(plan), len(want), plan)
	}
	for _, action := range plan {
		kind, ok := want[action.RelPath]
		if !ok {
			t.Errorf("unexpected action for %q: %v", action.RelPath, action.Kind)
			continue
		}
		if action.Kind != kind {
			t.Errorf("%s: Kind = %v, want %v", action.RelPath, action.Kind, kind)
		}
		if wantDest := filepath.Join(layout.PluginDir, action.RelPath); action.DestPath != wantDest {
			t.Errorf("%s: DestPath = %q, want %q", action.RelPath, action.DestPath, wantDest)
		}
	}
}
