package mutate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/mutate"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/types"
)

func newEngine(t *testing.T) (*mutate.Engine, *sqlite.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beads.db")
	store, err := sqlite.Open(context.Background(), path, sqlite.Options{Prefix: "bd"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mutate.New(store), store
}

func TestCreateAllocatesIDAndSetsCreator(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	issue, err := e.Create(ctx, &types.Issue{
		Title: "Fix login bug", Priority: 1, IssueType: types.TypeBug, Status: types.StatusOpen,
	}, "alice")
	require.NoError(t, err)
	require.True(t, len(issue.ID) > 3)
	require.Equal(t, "alice", issue.CreatedBy)
}

func TestCreateRejectsInvalidIssue(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Create(context.Background(), &types.Issue{Status: types.StatusOpen, IssueType: types.TypeTask}, "alice")
	require.Error(t, err)
	require.Equal(t, beadserr.KindValidation, beadserr.KindOf(err))
}

func TestClaimRequiresOpenOrBlocked(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	issue, err := e.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	claimed, err := e.Claim(ctx, issue.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, types.StatusInProgress, claimed.Status)
	require.Equal(t, "bob", claimed.Assignee)

	_, err = e.Claim(ctx, issue.ID, "carol")
	require.Error(t, err)
	require.Equal(t, beadserr.KindInvalidStatus, beadserr.KindOf(err))
}

func TestCloseSurfacesNewlyReadyDependents(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	blocker, err := e.Create(ctx, &types.Issue{Title: "Blocker", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	dependent, err := e.Create(ctx, &types.Issue{Title: "Dependent", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	require.NoError(t, e.AddDependency(ctx, dependent.ID, blocker.ID, types.DepBlocks, "alice"))

	closed, ready, err := e.Close(ctx, blocker.ID, "alice", "done")
	require.NoError(t, err)
	require.Equal(t, types.StatusClosed, closed.Status)
	require.Len(t, ready, 1)
	require.Equal(t, dependent.ID, ready[0].ID)
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	a, err := e.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	b, err := e.Create(ctx, &types.Issue{Title: "B", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	require.NoError(t, e.AddDependency(ctx, a.ID, b.ID, types.DepBlocks, "alice"))

	err = e.AddDependency(ctx, b.ID, a.ID, types.DepBlocks, "alice")
	require.Error(t, err)
	require.Equal(t, beadserr.KindDependencyCycle, beadserr.KindOf(err))
}

func TestAddDependencyRejectsSelf(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	a, err := e.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	err = e.AddDependency(ctx, a.ID, a.ID, types.DepBlocks, "alice")
	require.Error(t, err)
	require.Equal(t, beadserr.KindSelfDependency, beadserr.KindOf(err))
}

func TestDeleteClearsContentAndEdges(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	a, err := e.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	b, err := e.Create(ctx, &types.Issue{Title: "B", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	require.NoError(t, e.AddDependency(ctx, b.ID, a.ID, types.DepBlocks, "alice"))

	require.NoError(t, e.Delete(ctx, a.ID, "alice", "obsolete"))

	deleted, err := store.GetIssue(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, deleted.IsDeleted())
	require.Equal(t, "(deleted)", deleted.Title)

	deps, err := store.GetDependencies(ctx, b.ID, types.DirectionOutgoing)
	require.NoError(t, err)
	require.Empty(t, deps)
}

func TestUpdateRecomputesOnStatusChange(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	blocker, err := e.Create(ctx, &types.Issue{Title: "Blocker", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	dependent, err := e.Create(ctx, &types.Issue{Title: "Dependent", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)
	require.NoError(t, e.AddDependency(ctx, dependent.ID, blocker.ID, types.DepBlocks, "alice"))

	blocked, _, err := store.GetBlockedCache(ctx, dependent.ID)
	require.NoError(t, err)
	require.True(t, blocked)

	_, err = e.Update(ctx, blocker.ID, "alice", func(i *types.Issue) error {
		i.Status = types.StatusClosed
		i.CloseReason = "fixed"
		return nil
	})
	require.NoError(t, err)

	blocked, _, err = store.GetBlockedCache(ctx, dependent.ID)
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestAddCommentAndRejectEmptyBody(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	issue, err := e.Create(ctx, &types.Issue{Title: "A", Priority: 1, IssueType: types.TypeTask, Status: types.StatusOpen}, "alice")
	require.NoError(t, err)

	c, err := e.AddComment(ctx, issue.ID, "looking into it", "bob")
	require.NoError(t, err)
	require.NotZero(t, c.ID)

	_, err = e.AddComment(ctx, issue.ID, "", "bob")
	require.Error(t, err)
}
