package depsgraph

import (
	"context"

	"github.com/steveyegge/beads/internal/types"
)

// TreeSource supplies the issue lookups the tree walk needs.
type TreeSource interface {
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	GetDependencies(ctx context.Context, id string, dir types.Direction) ([]*types.Dependency, error)
}

// DefaultMaxTreeDepth bounds `dep tree` output when the caller doesn't
// specify one, to keep a cyclic or very deep graph from printing forever.
const DefaultMaxTreeDepth = 10

// Tree performs a depth-first walk from root over the blocking subgraph
// (blocks, parent-child), following each issue's outgoing dependencies. The
// visited set makes it cycle-safe even if a cycle slipped past CheckCycle;
// depth is capped at maxDepth (DefaultMaxTreeDepth if <= 0), with nodes at
// the cutoff marked Truncated instead of expanded further.
func Tree(ctx context.Context, src TreeSource, rootID string, maxDepth int) ([]types.TreeNode, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxTreeDepth
	}

	var out []types.TreeNode
	visited := map[string]bool{}

	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		issue, err := src.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		node := types.TreeNode{
			ID:       issue.ID,
			Title:    issue.Title,
			Status:   issue.Status,
			Priority: issue.Priority,
			ParentID: issue.ParentID,
			Depth:    depth,
		}

		if visited[id] {
			node.Truncated = true
			out = append(out, node)
			return nil
		}
		visited[id] = true

		if depth >= maxDepth {
			node.Truncated = true
			out = append(out, node)
			return nil
		}

		deps, err := src.GetDependencies(ctx, id, types.DirectionOutgoing)
		if err != nil {
			return err
		}
		out = append(out, node)

		for _, d := range deps {
			if !d.DepType.Blocking() {
				continue
			}
			if err := walk(d.DependsOnID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootID, 0); err != nil {
		return nil, err
	}
	return out, nil
}
