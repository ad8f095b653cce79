package depsgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/types"
)

type fakeTreeStore struct {
	issues map[string]*types.Issue
	deps   map[string][]*types.Dependency
}

func (f *fakeTreeStore) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	return f.issues[id], nil
}

func (f *fakeTreeStore) GetDependencies(ctx context.Context, id string, dir types.Direction) ([]*types.Dependency, error) {
	return f.deps[id], nil
}

func TestTreeWalksBlockingEdges(t *testing.T) {
	f := &fakeTreeStore{
		issues: map[string]*types.Issue{
			"bd-1": {ID: "bd-1", Title: "Root", Status: types.StatusOpen},
			"bd-2": {ID: "bd-2", Title: "Child", Status: types.StatusOpen},
			"bd-3": {ID: "bd-3", Title: "Related only", Status: types.StatusOpen},
		},
		deps: map[string][]*types.Dependency{
			"bd-1": {
				{IssueID: "bd-1", DependsOnID: "bd-2", DepType: types.DepBlocks},
				{IssueID: "bd-1", DependsOnID: "bd-3", DepType: types.DepRelated},
			},
		},
	}

	nodes, err := Tree(context.Background(), f, "bd-1", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "bd-1", nodes[0].ID)
	require.Equal(t, 0, nodes[0].Depth)
	require.Equal(t, "bd-2", nodes[1].ID)
	require.Equal(t, 1, nodes[1].Depth)
}

func TestTreeIsCycleSafe(t *testing.T) {
	f := &fakeTreeStore{
		issues: map[string]*types.Issue{
			"bd-1": {ID: "bd-1", Title: "A", Status: types.StatusOpen},
			"bd-2": {ID: "bd-2", Title: "B", Status: types.StatusOpen},
		},
		deps: map[string][]*types.Dependency{
			"bd-1": {{IssueID: "bd-1", DependsOnID: "bd-2", DepType: types.DepBlocks}},
			"bd-2": {{IssueID: "bd-2", DependsOnID: "bd-1", DepType: types.DepBlocks}},
		},
	}

	nodes, err := Tree(context.Background(), f, "bd-1", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 3) // bd-1, bd-2, then bd-1 again (truncated)
	require.True(t, nodes[2].Truncated)
}

func TestTreeRespectsMaxDepth(t *testing.T) {
	f := &fakeTreeStore{
		issues: map[string]*types.Issue{
			"bd-1": {ID: "bd-1", Title: "A", Status: types.StatusOpen},
			"bd-2": {ID: "bd-2", Title: "B", Status: types.StatusOpen},
			"bd-3": {ID: "bd-3", Title: "C", Status: types.StatusOpen},
		},
		deps: map[string][]*types.Dependency{
			"bd-1": {{IssueID: "bd-1", DependsOnID: "bd-2", DepType: types.DepBlocks}},
			"bd-2": {{IssueID: "bd-2", DependsOnID: "bd-3", DepType: types.DepBlocks}},
		},
	}

	nodes, err := Tree(context.Background(), f, "bd-1", 1)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.True(t, nodes[1].Truncated)
}
