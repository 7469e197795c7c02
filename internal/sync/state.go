package sync

import (
	"github.com/schaermu/plugsync/internal/watch"
)

// Layout holds the resolved source and destination directories
type Layout struct {
	SourceDir string // absolute path being watched
	PluginDir string // absolute destination root

	// TopLevelOnly limits incremental sync of allow-listed file names to the
	// top of SourceDir. Folder-allow-listed subtrees are unaffected.
	TopLevelOnly bool
}

// Change is a single notification waiting to be acted upon
type Change struct {
	Path  string // absolute path in the source tree
	Op    watch.Op
	IsDir bool
}

// ActionKind identifies what an Action does
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionCopyFile
	ActionCopyFolder
	ActionRemoveFolder
)

func (k ActionKind) String() string {
	switch k {
	case ActionSkip:
		return "skip"
	case ActionCopyFile:
		return "copy-file"
	case ActionCopyFolder:
		return "copy-folder"
	case ActionRemoveFolder:
		return "remove-folder"
	default:
		return "unknown"
	}
}

// Action is a decided filesystem operation
type Action struct {
	Kind       ActionKind
	RelPath    string // relative to both SourceDir and PluginDir
	SourcePath string
	DestPath   string
	Reason     string // why an ActionSkip was chosen
}

// Summary reports the outcome of a full sync
type Summary struct {
	Files   int // files copied
	Folders int // folders copied
	Removed int // stale folders removed
	Failed  int
}
