package sync

import (
	"os"
	"path/filepath"

	"github.com/schaermu/plugsync/internal/plugin"
	"github.com/schaermu/plugsync/internal/watch"
)

// Decide maps one change notification to the action it calls for. It reads
// nothing but its arguments.
func Decide(change Change, layout Layout, allow plugin.AllowList) Action {
	skip := func(reason string) Action {
		return Action{Kind: ActionSkip, SourcePath: change.Path, Reason: reason}
	}

	if change.IsDir {
		return skip("directory")
	}
	if change.Op != watch.Created && change.Op != watch.Modified {
		return skip(change.Op.String())
	}

	rel, err := plugin.RelativePath(layout.SourceDir, change.Path)
	if err != nil || rel == "." {
		return skip("outside source")
	}

	// Copies into a destination nested in the source must not feed back
	if plugin.IsWithin(layout.PluginDir, change.Path) {
		return skip("inside destination")
	}

	if !allow.Matches(rel) {
		return skip("not allow-listed")
	}
	if layout.TopLevelOnly && !plugin.IsTopLevel(rel) && !allow.MatchesFolder(rel) {
		return skip("not top level")
	}

	return Action{
		Kind:       ActionCopyFile,
		RelPath:    rel,
		SourcePath: change.Path,
		DestPath:   filepath.Join(layout.PluginDir, rel),
	}
}

// BuildPlan lists the actions of a full sync: every allow-listed file present
// directly under the source, every allow-listed folder present in the source,
// and removal of allow-listed folders that no longer exist in the source.
func BuildPlan(layout Layout, allow plugin.AllowList) []Action {
	plan := make([]Action, 0, len(allow.Files)+len(allow.Folders))

	for _, name := range allow.Files {
		src := filepath.Join(layout.SourceDir, name)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			continue
		}
		plan = append(plan, Action{
			Kind:       ActionCopyFile,
			RelPath:    name,
			SourcePath: src,
			DestPath:   filepath.Join(layout.PluginDir, name),
		})
	}

	for _, name := range allow.Folders {
		src := filepath.Join(layout.SourceDir, name)
		dst := filepath.Join(layout.PluginDir, name)

		info, err := os.Stat(src)
		switch {
		case err == nil && info.IsDir():
			plan = append(plan, Action{
				Kind:       ActionCopyFolder,
				RelPath:    name,
				SourcePath: src,
				DestPath:   dst,
			})
		case os.IsNotExist(err):
			if _, err := os.Lstat(dst); err == nil {
				plan = append(plan, Action{
					Kind:     ActionRemoveFolder,
					RelPath:  name,
					DestPath: dst,
				})
			}
		}
	}

	return plan
}
