package mirror_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/mirror"
	"github.com/steveyegge/beads/internal/mutate"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/workspace"
)

func newWorkspace(t *testing.T, prefix string) (*workspace.Layout, *sqlite.Store, *mutate.Engine) {
	t.Helper()
	dir := t.TempDir()
	layout, err := workspace.Init(dir)
	require.NoError(t, err)

	store, err := sqlite.Open(context.Background(), layout.StorePath(), sqlite.Options{Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return layout, store, mutate.New(store)
}

// S3 — export/import round-trip: export, import into a fresh store,
// export again; both mirrors must be byte-identical.
func TestFlushImportRoundTripIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	layout, store, engine := newWorkspace(t, "bd")

	a, err := engine.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen, Labels: []string{"backend"}}, "alice")
	require.NoError(t, err)
	b, err := engine.Create(ctx, &types.Issue{Title: "B", Priority: 2, IssueType: types.TypeBug, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	require.NoError(t, engine.AddDependency(ctx, b.ID, a.ID, types.DepBlocks, "alice"))
	_, err = engine.AddComment(ctx, a.ID, "looking into it", "bob")
	require.NoError(t, err)

	res1, err := mirror.Flush(ctx, store, layout, mirror.FlushOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)
	require.Equal(t, 2, res1.Count)

	dirty, err := store.DirtyIssueIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, dirty)

	layout2, store2, _ := newWorkspace(t, "bd")
	importRes, err := mirror.Import(ctx, store2, layout2, mirror.ImportOptions{Path: layout.MirrorPath(), PathOverride: true, Policy: mirror.PolicyStrict})
	require.NoError(t, err)
	require.Len(t, importRes.Inserted, 2)

	res2, err := mirror.Flush(ctx, store2, layout2, mirror.FlushOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)
	require.Equal(t, res1.Digest, res2.Digest)

	data1, err := os.ReadFile(layout.MirrorPath())
	require.NoError(t, err)
	data2, err := os.ReadFile(layout2.MirrorPath())
	require.NoError(t, err)
	require.Equal(t, data1, data2)
}

// S4 — path safety: an unvalidated path outside the workspace is rejected.
func TestFlushRejectsPathOutsideWorkspace(t *testing.T) {
	ctx := context.Background()
	layout, store, _ := newWorkspace(t, "bd")

	_, err := mirror.Flush(ctx, store, layout, mirror.FlushOptions{Path: "/etc/passwd"})
	require.Error(t, err)
	require.Equal(t, beadserr.KindPathNotAllowed, beadserr.KindOf(err))
}

// S5 — prefix mismatch: an imported issue whose id prefix disagrees with
// the workspace's is rejected unless an override is supplied.
func TestImportRejectsPrefixMismatchUnlessOverridden(t *testing.T) {
	ctx := context.Background()
	layout, store, _ := newWorkspace(t, "bd")

	mirrorPath := filepath.Join(layout.Root, "issues.jsonl")
	line := `{"id":"proj-abc","title":"Cross-project","issue_type":"task","priority":1,"status":"open","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(mirrorPath, []byte(line), 0o644))

	_, err := mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict})
	require.Error(t, err)
	require.Equal(t, beadserr.KindPrefixMismatch, beadserr.KindOf(err))

	res, err := mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict, PrefixOverride: "proj"})
	require.NoError(t, err)
	require.Equal(t, []string{"proj-abc"}, res.Inserted)

	issue, err := store.GetIssue(ctx, "proj-abc")
	require.NoError(t, err)
	require.Equal(t, "Cross-project", issue.Title)
}

func TestImportNoOpWhenHashesMatch(t *testing.T) {
	ctx := context.Background()
	layout, store, engine := newWorkspace(t, "bd")

	issue, err := engine.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	_, err = mirror.Flush(ctx, store, layout, mirror.FlushOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)

	res, err := mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)
	require.Equal(t, []string{issue.ID}, res.NoOp)
}

func TestImportReportsConflictByDefaultAndOverwritesWithForce(t *testing.T) {
	ctx := context.Background()
	layout, store, engine := newWorkspace(t, "bd")

	issue, err := engine.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	_, err = mirror.Flush(ctx, store, layout, mirror.FlushOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)

	// Diverge the local copy after the export captured the original content.
	_, err = engine.Update(ctx, issue.ID, "alice", func(i *types.Issue) error {
		i.Title = "A (edited locally)"
		return nil
	})
	require.NoError(t, err)

	res, err := mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)
	require.Equal(t, []string{issue.ID}, res.Conflicted)

	current, err := store.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Equal(t, "A (edited locally)", current.Title)

	res, err = mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict, Force: true})
	require.NoError(t, err)
	require.Equal(t, []string{issue.ID}, res.Updated)

	current, err = store.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Equal(t, "A", current.Title)
}

func TestImportOrphanPolicies(t *testing.T) {
	ctx := context.Background()
	layout, store, _ := newWorkspace(t, "bd")

	mirrorPath := layout.MirrorPath()
	line := `{"id":"bd-child1","title":"Has a missing dep","issue_type":"task","priority":1,"status":"open","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z","dependencies":[{"depends_on_id":"bd-ghost","dep_type":"blocks"}]}` + "\n"
	require.NoError(t, os.WriteFile(mirrorPath, []byte(line), 0o644))

	res, err := mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict, Orphan: storage.OrphanStrict})
	require.Error(t, err)
	require.Nil(t, res)

	res, err = mirror.Import(ctx, store, layout, mirror.ImportOptions{Policy: mirror.PolicyStrict, Orphan: storage.OrphanResurrect})
	require.NoError(t, err)
	require.Equal(t, []string{"bd-child1"}, res.Inserted)
	require.Equal(t, []string{"bd-ghost"}, res.OrphanStubs)

	stub, err := store.GetIssue(ctx, "bd-ghost")
	require.NoError(t, err)
	require.True(t, stub.IsDeleted())
}

func TestSyncStatusReportsInSyncAfterFlush(t *testing.T) {
	ctx := context.Background()
	layout, store, engine := newWorkspace(t, "bd")

	_, err := engine.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	status, err := mirror.Sync(ctx, store, layout)
	require.NoError(t, err)
	require.Equal(t, mirror.StateDBNewer, status.State)
	require.Equal(t, 1, status.DirtyCount)

	_, err = mirror.Flush(ctx, store, layout, mirror.FlushOptions{Policy: mirror.PolicyStrict})
	require.NoError(t, err)

	status, err = mirror.Sync(ctx, store, layout)
	require.NoError(t, err)
	require.Equal(t, mirror.StateInSync, status.State)
	require.Zero(t, status.DirtyCount)
}

func TestFlushWritesHistoryBackupAndManifest(t *testing.T) {
	ctx := context.Background()
	layout, store, engine := newWorkspace(t, "bd")
	_, err := engine.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	_, err = mirror.Flush(ctx, store, layout, mirror.FlushOptions{Policy: mirror.PolicyStrict, WriteBackup: true, Actor: "alice"})
	require.NoError(t, err)

	entries, err := os.ReadDir(layout.HistoryPath())
	require.NoError(t, err)
	require.Len(t, entries, 2) // backup jsonl + manifest
}
