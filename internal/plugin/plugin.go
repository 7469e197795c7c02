package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildArtifact is the bundled script the host application loads. Its
// presence at the top of the source directory means the plugin has been built.
const BuildArtifact = "main.js"

// ManifestFile is the plugin manifest read by the host application
const ManifestFile = "manifest.json"

// DefaultFiles are the artifact file names mirrored when no allow-list is configured
var DefaultFiles = []string{
	BuildArtifact,
	"styles.css",
	ManifestFile,
}

// AllowList is the set of file and folder names eligible for synchronization.
// Folders is empty by default; it is kept so whole sub-directories can be
// mirrored without changing the sync logic.
type AllowList struct {
	Files   []string
	Folders []string
}

// DefaultAllowList returns the allow-list used when nothing is configured
func DefaultAllowList() AllowList {
	return AllowList{
		Files:   append([]string(nil), DefaultFiles...),
		Folders: []string{},
	}
}

// Matches reports whether relPath (relative to the source root) should be
// synced: its base name is an allow-listed file, or its first path segment is
// an allow-listed folder. Depth is not considered for file names.
func (a AllowList) Matches(relPath string) bool {
	return a.MatchesFile(relPath) || a.MatchesFolder(relPath)
}

// MatchesFile reports whether the base name of relPath is an allow-listed file
func (a AllowList) MatchesFile(relPath string) bool {
	name := filepath.Base(relPath)
	for _, f := range a.Files {
		if name == f {
			return true
		}
	}
	return false
}

// MatchesFolder reports whether relPath lies inside an allow-listed folder
func (a AllowList) MatchesFolder(relPath string) bool {
	first := FirstSegment(relPath)
	for _, f := range a.Folders {
		if first == f {
			return true
		}
	}
	return false
}

// FirstSegment returns the first element of a relative path.
// For example: styles/theme.css -> styles
func FirstSegment(relPath string) string {
	clean := filepath.ToSlash(filepath.Clean(relPath))
	if i := strings.Index(clean, "/"); i >= 0 {
		return clean[:i]
	}
	return clean
}

// IsTopLevel returns true if relPath names an entry directly under the root
func IsTopLevel(relPath string) bool {
	clean := filepath.Clean(relPath)
	return clean != "." && !strings.ContainsRune(filepath.ToSlash(clean), '/')
}

// RelativePath returns the relative path from baseDir to target. It fails if
// target is not below baseDir.
func RelativePath(baseDir, target string) (string, error) {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", target, baseDir)
	}
	return rel, nil
}

// IsWithin returns true if path equals dir or lies below it
func IsWithin(dir, path string) bool {
	rel, err := RelativePath(dir, path)
	return err == nil && rel != ""
}

// Manifest holds the manifest.json fields plugsync reports on
type Manifest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	MinAppVersion string `json:"minAppVersion"`
}

// ReadManifest parses manifest.json from dir
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	return &m, nil
}
