package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/schaermu/plugsync/internal/config"
	"github.com/schaermu/plugsync/internal/plugin"
	"github.com/schaermu/plugsync/internal/watch"
)

// ErrAlreadyWatching is returned by a second call to Agent.Watch
var ErrAlreadyWatching = errors.New("agent is already watching")

// Reporter receives human-readable status updates
type Reporter interface {
	SyncStarted()
	SyncDone(Summary)
	Changed(relPath string, op watch.Op)
	Synced(relPath string)
	Failed(relPath string, err error)
	FolderFailed(relPath string, err error)
	Watching()
	Stopping()
}

// Agent mirrors allow-listed plugin artifacts from a source directory into
// the host application's plugin directory. Its configuration is fixed at
// construction.
type Agent struct {
	layout   Layout
	allow    plugin.AllowList
	debounce time.Duration
	reporter Reporter
	logger   *slog.Logger

	initial  Summary
	watching atomic.Bool
}

// NewAgent creates the plugin directory and performs a full sync before
// returning. cfg must already be resolved.
func NewAgent(cfg *config.Config, reporter Reporter, logger *slog.Logger) (*Agent, error) {
	a := &Agent{
		layout: Layout{
			SourceDir:    cfg.Source,
			PluginDir:    cfg.PluginDir(),
			TopLevelOnly: cfg.Sync.TopLevelOnly,
		},
		allow:    cfg.AllowList(),
		debounce: cfg.Watch.Debounce,
		reporter: reporter,
		logger:   logger,
	}

	if err := os.MkdirAll(a.layout.PluginDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plugin directory: %w", err)
	}

	a.initial = a.SyncAll()
	return a, nil
}

// Layout returns the resolved directories
func (a *Agent) Layout() Layout {
	return a.layout
}

// InitialSummary returns the outcome of the full sync run by NewAgent
func (a *Agent) InitialSummary() Summary {
	return a.initial
}

// SyncAll copies every allow-listed item present in the source. A failure on
// one item is reported and does not stop the others.
func (a *Agent) SyncAll() Summary {
	a.reporter.SyncStarted()

	plan := BuildPlan(a.layout, a.allow)
	a.logger.Debug("sync plan", "actions", len(plan), "plugin_dir", a.layout.PluginDir)

	var summary Summary
	for _, action := range plan {
		switch action.Kind {
		case ActionCopyFile:
			if err := copyFile(action.SourcePath, action.DestPath); err != nil {
				summary.Failed++
				a.reporter.Failed(action.RelPath, err)
				continue
			}
			summary.Files++

		case ActionCopyFolder:
			if err := replaceTree(action.SourcePath, action.DestPath); err != nil {
				summary.Failed++
				a.reporter.FolderFailed(action.RelPath, err)
				continue
			}
			summary.Folders++

		case ActionRemoveFolder:
			if err := os.RemoveAll(action.DestPath); err != nil {
				summary.Failed++
				a.reporter.FolderFailed(action.RelPath, err)
				continue
			}
			summary.Removed++
		}
	}

	a.reporter.SyncDone(summary)
	return summary
}

// Handle acts on one change notification. Copy failures are reported and
// returned; skipped changes return nil.
func (a *Agent) Handle(change Change) error {
	action := Decide(change, a.layout, a.allow)
	if action.Kind == ActionSkip {
		a.logger.Debug("ignoring change", "path", change.Path, "op", change.Op.String(), "reason", action.Reason)
		return nil
	}

	a.reporter.Changed(action.RelPath, change.Op)
	if err := copyFile(action.SourcePath, action.DestPath); err != nil {
		a.reporter.Failed(action.RelPath, err)
		return err
	}
	a.reporter.Synced(action.RelPath)
	return nil
}

// Watch subscribes to changes below the source directory and handles them
// until ctx is cancelled. It can only be called once per Agent.
func (a *Agent) Watch(ctx context.Context) error {
	if !a.watching.CompareAndSwap(false, true) {
		return ErrAlreadyWatching
	}

	w, err := watch.New(a.layout.SourceDir, watch.Options{
		Debounce: a.debounce,
		Skip:     a.isDestination,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to watch source: %w", err)
	}

	a.reporter.Watching()
	a.logger.Debug("watching", "source", a.layout.SourceDir, "debounce", a.debounce)

	err = w.Run(ctx, func(ev watch.Event) {
		// Copy failures already went to the reporter and must not stop the loop
		_ = a.Handle(Change{Path: ev.Path, Op: ev.Op, IsDir: ev.IsDir})
	})

	a.reporter.Stopping()
	return err
}

func (a *Agent) isDestination(path string) bool {
	return plugin.IsWithin(a.layout.PluginDir, path)
}
