package mirror

import (
	"context"
	"os"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/workspace"
)

// Status is the read-only report produced by `sync status`.
type Status struct {
	DBModTime     time.Time
	MirrorModTime time.Time
	DBCount       int
	MirrorCount   int
	DirtyCount    int
	State         SyncState
}

// Sync reports the current relationship between the store and its mirror
// without mutating either. A missing mirror file is reported as DBNewer
// (nothing to compare against yet) rather than an error.
func Sync(ctx context.Context, store *sqlite.Store, layout *workspace.Layout) (*Status, error) {
	dbInfo, err := os.Stat(layout.StorePath())
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "statting store file")
	}

	issues, err := store.AllIssues(ctx, true, false)
	if err != nil {
		return nil, err
	}
	dirty, err := store.DirtyIssueIDs(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		DBModTime:  dbInfo.ModTime(),
		DBCount:    len(issues),
		DirtyCount: len(dirty),
	}

	mirrorInfo, err := os.Stat(layout.MirrorPath())
	if os.IsNotExist(err) {
		st.State = StateDBNewer
		return st, nil
	}
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "statting mirror file")
	}
	st.MirrorModTime = mirrorInfo.ModTime()

	mirrorIssues, err := countMirrorLines(layout.MirrorPath())
	if err != nil {
		return nil, err
	}
	st.MirrorCount = mirrorIssues

	switch {
	case len(dirty) == 0 && st.DBCount == st.MirrorCount:
		st.State = StateInSync
	case st.DBModTime.After(st.MirrorModTime) && len(dirty) > 0:
		st.State = StateDBNewer
	case st.MirrorModTime.After(st.DBModTime) && len(dirty) == 0:
		st.State = StateMirrorNewer
	default:
		st.State = StateDiverged
	}
	return st, nil
}

func countMirrorLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, beadserr.Wrap(beadserr.KindIO, err, "reading mirror file")
	}
	count := 0
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				count++
			}
			start = i + 1
		}
	}
	if start < len(data) {
		count++
	}
	return count, nil
}
