// Package lockfile provides advisory file locking used to serialize
// Mirror Sync flush/import operations across cooperating processes sharing
// a workspace. It does not replace the store's own busy-timeout locking;
// it exists so two overlapping `bd flush` invocations fail fast with a
// clear error rather than racing to rename their temp files into place.
package lockfile

import (
	"errors"
	"os"
)

// ErrLockBusy is returned when a non-blocking lock cannot be acquired
// because another process holds a conflicting lock.
var ErrLockBusy = errors.New("lockfile: busy, held by another process")

// IsLocked reports whether err indicates the lock was held elsewhere.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLockBusy)
}

// Guard holds an acquired exclusive lock on a file for the duration of one
// operation. Release is idempotent.
type Guard struct {
	f *os.File
}

// AcquireExclusive opens (creating if necessary) the lock file at path and
// takes a non-blocking exclusive lock. It returns ErrLockBusy if another
// process already holds it.
func AcquireExclusive(path string) (*Guard, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := flockExclusiveNonBlock(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Guard{f: f}, nil
}

// Release unlocks and closes the underlying file.
func (g *Guard) Release() error {
	if g == nil || g.f == nil {
		return nil
	}
	_ = flockUnlock(g.f)
	err := g.f.Close()
	g.f = nil
	return err
}
