// Package mirror implements the Mirror Sync component: export ("flush")
// and import between the store and the line-delimited JSONL file that
// version control actually tracks. Every operation here is built directly
// on the Schema & Store contract and the Dependency Engine, the way the
// Mutation Protocol is, because import applies its own mutation semantics
// (dirty cleared rather than set, content-hash conflict resolution, orphan
// policies) that don't fit the ordinary write ritual.
package mirror

import (
	"github.com/steveyegge/beads/internal/types"
)

// ErrorPolicy controls how per-issue failures are handled during export
// and import. Structural failures (path validation, and an export temp
// file that cannot be created, written, fsynced or renamed) are always
// fatal regardless of policy. The written temp file is not re-read or
// checked against its digest before the rename.
type ErrorPolicy string

const (
	// PolicyStrict aborts the whole operation on the first per-issue error.
	PolicyStrict ErrorPolicy = "strict"
	// PolicyBestEffort skips offending issues/lines and reports them.
	PolicyBestEffort ErrorPolicy = "best-effort"
	// PolicyPartial exports what succeeded, reports the rest as skipped and
	// marks them dirty. On import it behaves like PolicyStrict.
	PolicyPartial ErrorPolicy = "partial"
	// PolicyRequiredCore aborts the export when any issue lacks a
	// required-core field; other per-issue export errors are skipped as
	// under PolicyBestEffort. On import it behaves like PolicyStrict.
	PolicyRequiredCore ErrorPolicy = "required-core"
)

// missingRequiredCoreField returns the first missing one of the fields Open Question (b) fixes as fatal to
// omit under PolicyRequiredCore: spec.md §9 leaves the set undefined;
// SPEC_FULL.md commits to {id, title, status, priority, issue_type,
// created_at}.
func missingRequiredCoreField(issue *types.Issue) string {
	switch {
	case issue.ID == "":
		return "id"
	case issue.Title == "":
		return "title"
	case issue.Status == "":
		return "status"
	case issue.IssueType == "":
		return "issue_type"
	case issue.CreatedAt.IsZero():
		return "created_at"
	}
	// Priority has no sentinel empty value distinct from 0 (itself valid),
	// so its absence can't be distinguished from an explicit 0 once parsed;
	// it is not checked here, and its range is not checked here either.
	return ""
}

// SyncState classifies the relationship between the store's modification
// time and the mirror's, for the read-only sync-status report.
type SyncState string

const (
	StateInSync    SyncState = "in_sync"
	StateDBNewer   SyncState = "db_newer"
	StateMirrorNewer SyncState = "mirror_newer"
	StateDiverged  SyncState = "diverged"
)
