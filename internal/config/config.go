package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/plugsync/internal/plugin"
)

const (
	// DefaultPluginID is used when no plugin identifier is given
	DefaultPluginID = "add-custom-icons"

	// PluginsSubdir is where the host application loads plugins from, relative to the vault
	PluginsSubdir = ".obsidian/plugins"
)

// Config represents the complete plugsync configuration
type Config struct {
	Vault    string      `yaml:"vault"`
	PluginID string      `yaml:"plugin_id"`
	Source   string      `yaml:"source"`
	Sync     SyncConfig  `yaml:"sync"`
	Watch    WatchConfig `yaml:"watch"`
}

// SyncConfig configures which artifacts are mirrored
type SyncConfig struct {
	Files   []string `yaml:"files"`
	Folders []string `yaml:"folders"`
	// TopLevelOnly restricts incremental sync of allow-listed file names to
	// the top of the source directory.
	TopLevelOnly bool `yaml:"top_level_only"`
}

// WatchConfig configures the change notification loop
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// PathKind identifies which startup path is missing
type PathKind string

const (
	PathSource   PathKind = "source"
	PathVault    PathKind = "vault"
	PathArtifact PathKind = "artifact"
)

// PathError reports a required path that does not exist at startup
type PathError struct {
	Kind PathKind
	Path string
}

func (e *PathError) Error() string {
	switch e.Kind {
	case PathSource:
		return fmt.Sprintf("source not found: %s", e.Path)
	case PathVault:
		return fmt.Sprintf("vault not found: %s", e.Path)
	case PathArtifact:
		return fmt.Sprintf("%s not found in %s", plugin.BuildArtifact, filepath.Dir(e.Path))
	default:
		return fmt.Sprintf("path not found: %s", e.Path)
	}
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	// Relative paths in the file are relative to the file itself
	base := filepath.Dir(path)
	if cfg.Vault != "" && !filepath.IsAbs(cfg.Vault) {
		cfg.Vault = filepath.Join(base, cfg.Vault)
	}
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(base, cfg.Source)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all path fields
func (c *Config) expandEnv() {
	c.Vault = os.ExpandEnv(c.Vault)
	c.PluginID = os.ExpandEnv(c.PluginID)
	c.Source = os.ExpandEnv(c.Source)
}

// applyDefaults fills in zero-value fields with sensible defaults.
// A nil Folders list becomes empty; folder sync stays disabled unless configured.
func (c *Config) applyDefaults() {
	if c.PluginID == "" {
		c.PluginID = DefaultPluginID
	}
	if c.Source == "" {
		c.Source = "."
	}
	if c.Sync.Files == nil {
		c.Sync.Files = append([]string(nil), plugin.DefaultFiles...)
	}
	if c.Sync.Folders == nil {
		c.Sync.Folders = []string{}
	}
}

// Resolve makes Vault and Source absolute and resolves symlinks in paths
// that exist, so a vault reached through a link inside the source is still
// recognized as nested.
func (c *Config) Resolve() error {
	src, err := resolvePath(c.Source)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}
	c.Source = src

	if c.Vault != "" {
		vault, err := resolvePath(c.Vault)
		if err != nil {
			return fmt.Errorf("failed to resolve vault: %w", err)
		}
		c.Vault = vault
	}
	return nil
}

// resolvePath returns the absolute form of path with symlinks evaluated.
// Missing paths are returned unresolved; CheckPaths reports them.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Vault == "" {
		return fmt.Errorf("vault is required")
	}

	if c.PluginID == "" {
		return fmt.Errorf("plugin_id is required")
	}
	if strings.ContainsAny(c.PluginID, `/\`) || c.PluginID == "." || c.PluginID == ".." {
		return fmt.Errorf("invalid plugin_id %q: must be a single path segment", c.PluginID)
	}

	for _, name := range c.Sync.Files {
		if err := validateName("sync.files", name); err != nil {
			return err
		}
	}
	for _, name := range c.Sync.Folders {
		if err := validateName("sync.folders", name); err != nil {
			return err
		}
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative: %s", c.Watch.Debounce)
	}

	return nil
}

func validateName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s: empty name", field)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%s: %q must be a plain name, not a path", field, name)
	}
	return nil
}

// CheckPaths verifies that the source directory, the vault and the built
// artifact exist. It must be called after Resolve.
func (c *Config) CheckPaths() error {
	if !isDir(c.Source) {
		return &PathError{Kind: PathSource, Path: c.Source}
	}
	if !isDir(c.Vault) {
		return &PathError{Kind: PathVault, Path: c.Vault}
	}

	artifact := filepath.Join(c.Source, plugin.BuildArtifact)
	if _, err := os.Stat(artifact); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PathError{Kind: PathArtifact, Path: artifact}
		}
		return fmt.Errorf("failed to stat %s: %w", artifact, err)
	}
	return nil
}

// PluginDir returns the directory the host application loads this plugin from
func (c *Config) PluginDir() string {
	return filepath.Join(c.Vault, filepath.FromSlash(PluginsSubdir), c.PluginID)
}

// AllowList returns the configured allow-list
func (c *Config) AllowList() plugin.AllowList {
	return plugin.AllowList{
		Files:   append([]string(nil), c.Sync.Files...),
		Folders: append([]string(nil), c.Sync.Folders...),
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
