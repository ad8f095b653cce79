//go:build wasm

package lockfile

import "os"

// wasm targets (wasip1) have no filesystem locking primitive available;
// Mirror Sync on these targets relies on single-process execution, so the
// lock is a no-op that never reports contention.
func flockExclusiveNonBlock(f *os.File) error {
	return nil
}

func flockUnlock(f *os.File) error {
	return nil
}
