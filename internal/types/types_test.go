package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueValidate(t *testing.T) {
	tests := []struct {
		name    string
		issue   Issue
		wantErr string
	}{
		{
			name: "valid issue",
			issue: Issue{
				ID: "test-1", Title: "Valid issue", Status: StatusOpen,
				Priority: 2, IssueType: TypeFeature,
			},
		},
		{
			name:    "missing title",
			issue:   Issue{ID: "test-1", Status: StatusOpen, Priority: 2, IssueType: TypeFeature},
			wantErr: "title is required",
		},
		{
			name: "title too long",
			issue: Issue{
				ID: "test-1", Title: string(make([]byte, 501)),
				Status: StatusOpen, Priority: 2, IssueType: TypeFeature,
			},
			wantErr: "500 characters",
		},
		{
			name:    "priority too low",
			issue:   Issue{ID: "test-1", Title: "Test", Status: StatusOpen, Priority: -1, IssueType: TypeFeature},
			wantErr: "priority must be between",
		},
		{
			name:    "priority too high",
			issue:   Issue{ID: "test-1", Title: "Test", Status: StatusOpen, Priority: 5, IssueType: TypeFeature},
			wantErr: "priority must be between",
		},
		{
			name:    "invalid status",
			issue:   Issue{ID: "test-1", Title: "Test", Status: Status("bogus"), Priority: 2, IssueType: TypeFeature},
			wantErr: "invalid status",
		},
		{
			name:    "invalid issue type",
			issue:   Issue{ID: "test-1", Title: "Test", Status: StatusOpen, Priority: 2, IssueType: IssueType("bogus")},
			wantErr: "invalid issue type",
		},
		{
			name: "negative estimated minutes",
			issue: Issue{
				ID: "test-1", Title: "Test", Status: StatusOpen, Priority: 2, IssueType: TypeFeature,
				EstimatedMinutes: intPtr(-10),
			},
			wantErr: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.issue.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIssueIsDeleted(t *testing.T) {
	open := Issue{ID: "test-1", DeletedBy: ""}
	require.False(t, open.IsDeleted())

	tombstoned := Issue{ID: "test-1", DeletedBy: "alice"}
	require.True(t, tombstoned.IsDeleted())
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusOpen.Valid())
	require.True(t, StatusInProgress.Valid())
	require.True(t, StatusBlocked.Valid())
	require.True(t, StatusClosed.Valid())
	require.False(t, Status("bogus").Valid())
	require.False(t, Status("").Valid())
}

func TestIssueTypeValid(t *testing.T) {
	require.True(t, TypeBug.Valid())
	require.True(t, TypeFeature.Valid())
	require.True(t, TypeTask.Valid())
	require.True(t, TypeEpic.Valid())
	require.True(t, TypeChore.Valid())
	require.True(t, TypeDocs.Valid())
	require.True(t, TypeQuestion.Valid())
	require.False(t, IssueType("bogus").Valid())
}

func TestDepTypeValid(t *testing.T) {
	require.True(t, DepBlocks.Valid())
	require.True(t, DepParentChild.Valid())
	require.True(t, DepDiscoveredFrom.Valid())
	require.True(t, DepRelated.Valid())
	require.False(t, DepType("bogus").Valid())
}

func TestDepTypeBlocking(t *testing.T) {
	require.True(t, DepBlocks.Blocking())
	require.True(t, DepParentChild.Blocking())
	require.False(t, DepDiscoveredFrom.Blocking())
	require.False(t, DepRelated.Blocking())
}

func TestValidateLabel(t *testing.T) {
	require.NoError(t, ValidateLabel("backend"))
	require.Error(t, ValidateLabel(""))
	require.Error(t, ValidateLabel("has space"))
}

func TestParseIssueSortOrder(t *testing.T) {
	opts := ParseIssueSortOrder("updated-desc,title-asc")
	require.Equal(t, []IssueSortOption{
		{Field: SortFieldUpdated, Direction: SortDesc},
		{Field: SortFieldTitle, Direction: SortAsc},
	}, opts)

	// Unknown fields and malformed entries are skipped, not rejected.
	opts = ParseIssueSortOrder("bogus-asc,priority-asc,nodash")
	require.Equal(t, []IssueSortOption{{Field: SortFieldPriority, Direction: SortAsc}}, opts)
}

func TestEncodeIssueSortOrderRoundTrip(t *testing.T) {
	opts := DefaultIssueSortOptions()
	encoded := EncodeIssueSortOrder(opts)
	require.Equal(t, opts, ParseIssueSortOrder(encoded))
}

func intPtr(i int) *int {
	return &i
}
