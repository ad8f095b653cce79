package depsgraph

import (
	"context"

	"github.com/steveyegge/beads/internal/types"
)

// BlockedSource is the transactional view blocked-cache recomputation needs.
// *sqlite.Tx satisfies this.
type BlockedSource interface {
	IssueStatus(ctx context.Context, id string) (types.Status, error)
	DirectBlockers(ctx context.Context, id string) ([]string, error)
	DirectPredecessors(ctx context.Context, id string) ([]string, error)
	SetBlockedCache(ctx context.Context, issueID string, isBlocked bool, blockingIDs []string) error
}

// ComputeBlocked evaluates whether id is blocked: it has at least one
// outgoing blocking edge to an issue whose status is not closed.
func ComputeBlocked(ctx context.Context, src BlockedSource, id string) (bool, []string, error) {
	blockers, err := src.DirectBlockers(ctx, id)
	if err != nil {
		return false, nil, err
	}

	var open []string
	for _, b := range blockers {
		status, err := src.IssueStatus(ctx, b)
		if err != nil {
			return false, nil, err
		}
		if status != types.StatusClosed {
			open = append(open, b)
		}
	}
	return len(open) > 0, open, nil
}

// RecomputeIssue recomputes and writes id's blocked_cache row.
func RecomputeIssue(ctx context.Context, src BlockedSource, id string) error {
	isBlocked, blockers, err := ComputeBlocked(ctx, src, id)
	if err != nil {
		return err
	}
	return src.SetBlockedCache(ctx, id, isBlocked, blockers)
}

// RecomputeEdgeChange recomputes e and e's direct predecessors, matching
// the Mutation Protocol's affected-set rule for edge add/remove.
func RecomputeEdgeChange(ctx context.Context, src BlockedSource, e string) error {
	if err := RecomputeIssue(ctx, src, e); err != nil {
		return err
	}
	preds, err := src.DirectPredecessors(ctx, e)
	if err != nil {
		return err
	}
	for _, p := range preds {
		if err := RecomputeIssue(ctx, src, p); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeStatusChange walks the reverse blocking graph from j (issues
// that transitively depend on j through blocks/parent-child edges) via a
// bounded breadth-first traversal, recomputing every issue it reaches (j
// itself is not recomputed). This is
// the "transitively dependent issues... enqueued for cache recomputation"
// rule triggered by close/reopen.
func RecomputeStatusChange(ctx context.Context, src BlockedSource, j string) error {
	visited := map[string]bool{j: true}
	queue := []string{j}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		preds, err := src.DirectPredecessors(ctx, cur)
		if err != nil {
			return err
		}
		for _, p := range preds {
			if visited[p] {
				continue
			}
			visited[p] = true
			if err := RecomputeIssue(ctx, src, p); err != nil {
				return err
			}
			queue = append(queue, p)
		}
	}
	return nil
}
