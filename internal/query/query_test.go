package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/types"
)

func sampleIssues(now time.Time) []*types.Issue {
	return []*types.Issue{
		{ID: "bd-1", Title: "Fix login", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeBug, CreatedAt: now.AddDate(0, 0, -10), UpdatedAt: now.AddDate(0, 0, -1)},
		{ID: "bd-2", Title: "Write docs", Status: types.StatusClosed, Priority: 3, IssueType: types.TypeDocs, Labels: []string{"urgent"}, CreatedAt: now.AddDate(0, 0, -20), UpdatedAt: now.AddDate(0, 0, -15)},
		{ID: "bd-3", Title: "Epic rollout", Status: types.StatusBlocked, Priority: 0, IssueType: types.TypeEpic, CreatedAt: now.AddDate(0, 0, -2), UpdatedAt: now.AddDate(0, 0, -2)},
	}
}

func TestFilterSimpleEquality(t *testing.T) {
	now := time.Now()
	out, err := Filter("status=open", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bd-1", out[0].ID)
}

func TestFilterAndOr(t *testing.T) {
	now := time.Now()
	out, err := Filter("status=open OR status=blocked", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFilterPriorityComparison(t *testing.T) {
	now := time.Now()
	out, err := Filter("priority<2", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFilterNot(t *testing.T) {
	now := time.Now()
	out, err := Filter("NOT status=closed", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFilterGrouping(t *testing.T) {
	now := time.Now()
	out, err := Filter("(status=open OR status=blocked) AND priority<1", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bd-3", out[0].ID)
}

func TestFilterLabel(t *testing.T) {
	now := time.Now()
	out, err := Filter("label=urgent", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bd-2", out[0].ID)
}

func TestFilterRelativeDuration(t *testing.T) {
	now := time.Now()
	out, err := Filter("updated>7d", sampleIssues(now), now)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFilterUnknownField(t *testing.T) {
	now := time.Now()
	_, err := Filter("bogus=1", sampleIssues(now), now)
	require.Error(t, err)
}

func TestFilterInvalidSyntax(t *testing.T) {
	now := time.Now()
	_, err := Filter("status=", sampleIssues(now), now)
	require.Error(t, err)
}
