package depsgraph

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

// ReadySource supplies the subset of the store the ready query needs: the
// candidate issue pool and the blocked-state cache for each of them.
type ReadySource interface {
	ListIssues(ctx context.Context, filter types.IssueFilter, sort []types.IssueSortOption) ([]*types.Issue, error)
	GetBlockedCache(ctx context.Context, issueID string) (bool, []string, error)
}

// ReadyPolicy selects how the ready set is ordered.
type ReadyPolicy string

const (
	// ReadyByPriority orders by priority ascending (P0 first), then by
	// created_at ascending, then ID.
	ReadyByPriority ReadyPolicy = "priority"
	// ReadyOldest orders by creation time ascending, then ID.
	ReadyOldest ReadyPolicy = "oldest"
	// ReadyHybrid blends priority and age: score = 10*priority - log(1+age_days),
	// lower is more urgent. The age term closes one priority tier (10 points)
	// only after about 22,000 days, so priority dominates and, within a
	// tier, older issues come first.
	ReadyHybrid ReadyPolicy = "hybrid"
)

const (
	priorityWeight = 10.0
	ageWeight      = 1.0
)

// Ready returns the issues eligible for work: open, not blocked, not
// deferred into the future, not a tombstone, ordered by policy. Deferred
// issues are included only when includeDeferred is set.
func Ready(ctx context.Context, src ReadySource, policy ReadyPolicy, now time.Time, includeDeferred bool) ([]*types.Issue, error) {
	status := types.StatusOpen
	candidates, err := src.ListIssues(ctx, types.IssueFilter{Status: &status, IncludeDeferred: includeDeferred}, nil)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Issue, 0, len(candidates))
	for _, issue := range candidates {
		if !includeDeferred && issue.DeferUntil != nil && issue.DeferUntil.After(now) {
			continue
		}
		isBlocked, _, err := src.GetBlockedCache(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		if isBlocked {
			continue
		}
		out = append(out, issue)
	}

	sortReady(out, policy, now)
	return out, nil
}

func sortReady(issues []*types.Issue, policy ReadyPolicy, now time.Time) {
	switch policy {
	case ReadyOldest:
		sort.SliceStable(issues, func(i, j int) bool {
			a, b := issues[i], issues[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	case ReadyHybrid:
		sort.SliceStable(issues, func(i, j int) bool {
			a, b := issues[i], issues[j]
			sa, sb := hybridScore(a, now), hybridScore(b, now)
			if sa != sb {
				return sa < sb
			}
			return a.ID < b.ID
		})
	default: // ReadyByPriority
		sort.SliceStable(issues, func(i, j int) bool {
			a, b := issues[i], issues[j]
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	}
}

// hybridScore blends priority and age; lower is more urgent.
func hybridScore(issue *types.Issue, now time.Time) float64 {
	ageDays := now.Sub(issue.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return priorityWeight*float64(issue.Priority) - ageWeight*math.Log(1+ageDays)
}
