// Package runlock prevents two batch runs from writing into the same output
// directory at once.
package runlock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"
)

// ErrLocked reports that another process holds the lock for the directory.
var ErrLocked = errors.New("output directory is in use by another run")

// Lock is an acquired per-directory file lock. Lock files live under the
// state directory so the output directory itself is never touched.
type Lock struct {
	target string
	path   string
	lock   *flock.Flock
}

// LockPath returns the lock file used for target inside lockDir.
func LockPath(lockDir, target string) string {
	sum := blake3.Sum256([]byte(filepath.Clean(target)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:12])+".lock")
}

// Acquire takes the lock for target without blocking.
func Acquire(lockDir, target string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := LockPath(lockDir, target)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (lock file %s)", ErrLocked, target, path)
	}
	return &Lock{target: target, path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
