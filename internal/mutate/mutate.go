// Package mutate implements the Mutation Protocol: every write to the
// store goes through here so the four-step ritual (write, event,
// dirty-mark, cache-invalidate) always happens inside one transaction,
// including the compound commands (claim, close) that would otherwise
// leave an intermediate state visible to concurrent readers.
package mutate

import (
	"context"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/depsgraph"
	"github.com/steveyegge/beads/internal/idgen"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/types"
)

// Engine executes mutations against a Store. It holds no state of its own
// beyond the store handle, so the same Engine is safe to share across
// goroutines the way the store itself is.
type Engine struct {
	store *sqlite.Store
}

// New wraps store in an Engine.
func New(store *sqlite.Store) *Engine {
	return &Engine{store: store}
}

// Create allocates an ID, validates, and inserts a new issue plus its
// initial labels in one transaction.
func (e *Engine) Create(ctx context.Context, issue *types.Issue, actor string) (*types.Issue, error) {
	if err := issue.Validate(); err != nil {
		return nil, beadserr.Wrap(beadserr.KindValidation, err, "creating issue")
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := idgen.Allocate(e.store.Prefix(), tx.Exists)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	issue.ID = id
	issue.CreatedAt = now
	issue.UpdatedAt = now
	if issue.CreatedBy == "" {
		issue.CreatedBy = actor
	}

	if err := tx.InsertIssue(ctx, issue); err != nil {
		return nil, err
	}
	for _, label := range issue.Labels {
		if err := tx.InsertLabel(ctx, id, label); err != nil {
			return nil, err
		}
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventCreated, IssueID: id}); err != nil {
		return nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.store.GetIssue(ctx, id)
}

// Update calls apply on the current row of id and writes the result
// back, recomputing blocked state for id and, if status changed, for
// every issue that transitively depends on it.
func (e *Engine) Update(ctx context.Context, id string, actor string, apply func(*types.Issue) error) (*types.Issue, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	issue, err := tx.GetIssueForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	prevStatus := issue.Status

	if err := apply(issue); err != nil {
		return nil, err
	}
	if err := issue.Validate(); err != nil {
		return nil, beadserr.Wrap(beadserr.KindValidation, err, "updating %s", id)
	}
	issue.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: issue.UpdatedAt, Actor: actor, Kind: types.EventUpdated, IssueID: id}); err != nil {
		return nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return nil, err
	}
	if issue.Status != prevStatus {
		if err := depsgraph.RecomputeStatusChange(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.store.GetIssue(ctx, id)
}

// Claim atomically sets assignee and status=in_progress. It errors unless
// the issue is currently open or blocked.
func (e *Engine) Claim(ctx context.Context, id, actor string) (*types.Issue, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	issue, err := tx.GetIssueForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Status != types.StatusOpen && issue.Status != types.StatusBlocked {
		return nil, beadserr.New(beadserr.KindInvalidStatus,
			"cannot claim %s: status is %q, must be open or blocked", id, issue.Status)
	}

	issue.Assignee = actor
	issue.Status = types.StatusInProgress
	issue.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: issue.UpdatedAt, Actor: actor, Kind: types.EventStatusChanged, IssueID: id, Detail: "claimed"}); err != nil {
		return nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.store.GetIssue(ctx, id)
}

// Close closes id and returns the issue alongside any previously-blocked
// issue that becomes ready as a direct result (status=open, no longer
// blocked).
func (e *Engine) Close(ctx context.Context, id, actor, reason string) (*types.Issue, []*types.Issue, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	issue, err := tx.GetIssueForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	preds, err := tx.DirectPredecessors(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	wasBlocked := make(map[string]bool, len(preds))
	for _, p := range preds {
		blocked, _, err := tx.GetBlockedCache(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		wasBlocked[p] = blocked
	}

	issue.Status = types.StatusClosed
	issue.CloseReason = reason
	issue.ClosedBySession = actor
	issue.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return nil, nil, err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: issue.UpdatedAt, Actor: actor, Kind: types.EventClosed, IssueID: id, Detail: reason}); err != nil {
		return nil, nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, nil, err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return nil, nil, err
	}
	if err := depsgraph.RecomputeStatusChange(ctx, tx, id); err != nil {
		return nil, nil, err
	}

	var newlyReady []string
	for _, p := range preds {
		if !wasBlocked[p] {
			continue
		}
		nowBlocked, _, err := tx.GetBlockedCache(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		if nowBlocked {
			continue
		}
		status, err := tx.IssueStatus(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		if status == types.StatusOpen {
			newlyReady = append(newlyReady, p)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	closed, err := e.store.GetIssue(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ready := make([]*types.Issue, 0, len(newlyReady))
	for _, rid := range newlyReady {
		r, err := e.store.GetIssue(ctx, rid)
		if err != nil {
			return nil, nil, err
		}
		ready = append(ready, r)
	}
	return closed, ready, nil
}

// Reopen moves a closed issue back to open, clearing its close metadata.
func (e *Engine) Reopen(ctx context.Context, id, actor string) (*types.Issue, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	issue, err := tx.GetIssueForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Status = types.StatusOpen
	issue.CloseReason = ""
	issue.ClosedBySession = ""
	issue.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: issue.UpdatedAt, Actor: actor, Kind: types.EventReopened, IssueID: id}); err != nil {
		return nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := depsgraph.RecomputeStatusChange(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.store.GetIssue(ctx, id)
}

// Delete tombstones id: content fields are cleared, deletion metadata is
// recorded, and every edge touching it is removed. The row itself stays so
// the tombstone can replicate through the mirror.
func (e *Engine) Delete(ctx context.Context, id, actor, reason string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	issue, err := tx.GetIssueForUpdate(ctx, id)
	if err != nil {
		return err
	}

	preds, err := tx.DirectPredecessors(ctx, id)
	if err != nil {
		return err
	}

	issue.Title = "(deleted)"
	issue.Description = ""
	issue.Design = ""
	issue.AcceptanceCriteria = ""
	issue.Notes = ""
	issue.DeletedBy = actor
	issue.DeleteReason = reason
	issue.UpdatedAt = time.Now().UTC()

	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return err
	}
	if err := tx.DeleteAllDependenciesFor(ctx, id); err != nil {
		return err
	}
	if err := tx.DeleteAllLabelsFor(ctx, id); err != nil {
		return err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: issue.UpdatedAt, Actor: actor, Kind: types.EventDeleted, IssueID: id, Detail: reason}); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, id); err != nil {
		return err
	}
	for _, p := range preds {
		if err := depsgraph.RecomputeIssue(ctx, tx, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddDependency inserts an edge after checking for cycles (blocking edge
// types only; informational edges can't close a cycle that matters here).
func (e *Engine) AddDependency(ctx context.Context, issueID, dependsOnID string, depType types.DepType, actor string) error {
	if !depType.Valid() {
		return beadserr.New(beadserr.KindValidation, "invalid dependency type %q", depType)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if depType.Blocking() {
		if err := depsgraph.CheckCycle(ctx, tx, issueID, dependsOnID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	dep := &types.Dependency{IssueID: issueID, DependsOnID: dependsOnID, DepType: depType, CreatedAt: now, CreatedBy: actor}
	if err := tx.InsertDependency(ctx, dep); err != nil {
		return err
	}
	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventDepAdded, IssueID: issueID, Detail: string(depType) + " " + dependsOnID}); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, issueID); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, dependsOnID); err != nil {
		return err
	}
	if depType.Blocking() {
		if err := depsgraph.RecomputeEdgeChange(ctx, tx, issueID); err != nil {
			return err
		}
		if err := depsgraph.RecomputeEdgeChange(ctx, tx, dependsOnID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveDependency deletes one edge and recomputes both endpoints.
func (e *Engine) RemoveDependency(ctx context.Context, issueID, dependsOnID string, depType types.DepType, actor string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.DeleteDependency(ctx, issueID, dependsOnID, depType); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventDepRemoved, IssueID: issueID, Detail: string(depType) + " " + dependsOnID}); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, issueID); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, dependsOnID); err != nil {
		return err
	}
	if depType.Blocking() {
		if err := depsgraph.RecomputeEdgeChange(ctx, tx, issueID); err != nil {
			return err
		}
		if err := depsgraph.RecomputeEdgeChange(ctx, tx, dependsOnID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddLabel attaches a label to id.
func (e *Engine) AddLabel(ctx context.Context, id, label, actor string) error {
	if err := types.ValidateLabel(label); err != nil {
		return beadserr.Wrap(beadserr.KindValidation, err, "adding label")
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.InsertLabel(ctx, id, label); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventLabelAdded, IssueID: id, Detail: label}); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveLabel detaches a label from id.
func (e *Engine) RemoveLabel(ctx context.Context, id, label, actor string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.DeleteLabel(ctx, id, label); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventLabelRemoved, IssueID: id, Detail: label}); err != nil {
		return err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddComment appends a comment to id.
func (e *Engine) AddComment(ctx context.Context, id, body, author string) (*types.Comment, error) {
	if body == "" {
		return nil, beadserr.New(beadserr.KindValidation, "comment body must not be empty")
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	c := &types.Comment{IssueID: id, Body: body, Author: author, CreatedAt: now}
	cid, err := tx.InsertComment(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = cid

	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: author, Kind: types.EventCommentAdded, IssueID: id}); err != nil {
		return nil, err
	}
	if err := tx.MarkDirty(ctx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}
