package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change a notification reports
type Op int

const (
	Created Op = iota + 1
	Modified
	Removed
	Renamed
)

func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is a single change below the watched root
type Event struct {
	Path  string
	Op    Op
	IsDir bool
}

// Handler receives events. It may be called from more than one goroutine
// when debouncing is enabled.
type Handler func(Event)

// Options configures a Watcher
type Options struct {
	// Debounce delays delivery until no further notification for the same
	// path has arrived for this long. Zero delivers every notification.
	Debounce time.Duration

	// Skip excludes a directory (and everything below it) from watching
	Skip func(path string) bool

	Logger *slog.Logger
}

// Watcher delivers change notifications for a directory tree
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	skip     func(string) bool
	debounce *debouncer

	mu     sync.Mutex
	closed bool
}

// New creates a recursive watcher for root. Every directory below root is
// registered before New returns, so changes made afterwards are observed.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	skip := opts.Skip
	if skip == nil {
		skip = func(string) bool { return false }
	}

	w := &Watcher{
		root:   root,
		fsw:    fsw,
		logger: logger,
		skip:   skip,
	}
	if opts.Debounce > 0 {
		w.debounce = newDebouncer(opts.Debounce)
	}

	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	w.addTree(root, nil)

	return w, nil
}

// Run delivers events to handler until ctx is cancelled, then closes the
// watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	defer func() {
		_ = w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, handler)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch event queue overflowed, some changes were missed", "root", w.root)
				continue
			}
			w.logger.Warn("watch error", "root", w.root, "error", err)
		}
	}
}

// Close stops the watcher and any pending debounced deliveries
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.debounce != nil {
		w.debounce.stop()
	}
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event, handler Handler) {
	event, ok := translate(ev)
	if !ok {
		return
	}

	if event.Op == Created || event.Op == Modified {
		if info, err := os.Lstat(event.Path); err == nil && info.IsDir() {
			event.IsDir = true
		}
	}

	if event.IsDir && event.Op == Created {
		if w.skip(event.Path) {
			return
		}
		if err := w.fsw.Add(event.Path); err != nil {
			w.logger.Warn("failed to watch new directory", "path", event.Path, "error", err)
		} else {
			w.logger.Debug("watch added", "path", event.Path)
		}
		// Files written before the watch was registered would otherwise be missed
		w.addTree(event.Path, func(path string) {
			w.deliver(Event{Path: path, Op: Created}, handler)
		})
	}

	w.deliver(event, handler)
}

func (w *Watcher) deliver(event Event, handler Handler) {
	if w.debounce == nil {
		handler(event)
		return
	}
	w.debounce.trigger(event.Path, func() {
		handler(event)
	})
}

// addTree registers every directory below dir. onFile, if set, is called for
// each regular file found.
func (w *Watcher) addTree(dir string, onFile func(string)) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Vanished or unreadable entries are not fatal to the walk
			return nil
		}
		if !entry.IsDir() {
			if onFile != nil && entry.Type().IsRegular() {
				onFile(path)
			}
			return nil
		}
		if path == dir {
			return nil
		}
		if w.skip(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("watch added", "path", path)
		return nil
	})
}

func translate(ev fsnotify.Event) (Event, bool) {
	event := Event{Path: ev.Name}
	switch {
	case ev.Has(fsnotify.Create):
		event.Op = Created
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
		event.Op = Modified
	case ev.Has(fsnotify.Remove):
		event.Op = Removed
	case ev.Has(fsnotify.Rename):
		event.Op = Renamed
	default:
		return Event{}, false
	}
	return event, true
}
