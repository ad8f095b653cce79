// Package storage holds the SQLite connection-string helper and the types
// Mirror Sync and the sqlite store share but that don't belong to either one
// alone.
package storage

// OrphanHandling controls how import treats a mirror entry whose parent_id
// or dependency endpoint doesn't resolve to an existing issue.
type OrphanHandling string

const (
	// OrphanStrict aborts the import.
	OrphanStrict OrphanHandling = "strict"
	// OrphanResurrect creates a stub tombstoned placeholder for the missing issue.
	OrphanResurrect OrphanHandling = "resurrect"
	// OrphanSkip drops the offending edge and proceeds.
	OrphanSkip OrphanHandling = "skip"
	// OrphanAllow is handled exactly like OrphanResurrect: import creates a
	// stub tombstoned placeholder for the missing issue. The schema enforces
	// foreign keys, so an edge to a missing row is never stored as-is.
	OrphanAllow OrphanHandling = "allow"
)
