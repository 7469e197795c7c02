package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process already holds the lock
var ErrLocked = errors.New("another plugsync instance is already syncing this plugin directory")

// Lock is an advisory lock keyed by a destination directory
type Lock struct {
	target string
	path   string
	flock  *flock.Flock
}

// PathFor returns the lock file path used for target inside dir
func PathFor(dir, target string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(target)))
	return filepath.Join(dir, "plugsync-"+hex.EncodeToString(sum[:])[:16]+".lock")
}

// New returns a lock for target, stored in the system temp directory
func New(target string) *Lock {
	return NewIn(os.TempDir(), target)
}

// NewIn returns a lock for target, stored in dir
func NewIn(dir, target string) *Lock {
	path := PathFor(dir, target)
	return &Lock{
		target: target,
		path:   path,
		flock:  flock.New(path),
	}
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking
func (l *Lock) Acquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.target)
	}
	return nil
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
