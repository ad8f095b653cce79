package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/steveyegge/beads/internal/contenthash"
	"github.com/steveyegge/beads/internal/types"
)

// Tx is a single database transaction. The Mutation Protocol opens exactly
// one Tx per mutation and performs all four ritual steps (write, event,
// dirty-mark, cache-invalidate) through it before calling Commit.
type Tx struct {
	tx *sql.Tx
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDBError("starting transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return wrapDBError("committing transaction", t.tx.Commit())
}

// Rollback aborts the transaction. Safe to call after Commit (no-op).
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return wrapDBError("rolling back transaction", err)
}

// Exists reports whether id is already used by any row, tombstones
// included, visible within this transaction. It satisfies idgen.Exists when bound to an
// in-flight Tx, so ID allocation is serialized with the insert that uses it.
func (t *Tx) Exists(id string) (bool, error) {
	var n int
	err := t.tx.QueryRow(`SELECT COUNT(1) FROM issues WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, wrapDBError("checking id existence", err)
	}
	return n > 0, nil
}

// InsertIssue inserts a new issue row. The caller must have already
// allocated issue.ID and populated CreatedAt/UpdatedAt.
func (t *Tx) InsertIssue(ctx context.Context, issue *types.Issue) error {
	hash := string(contenthash.Of(issue))
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO issues (
			id, content_hash, title, description, design, acceptance_criteria, notes,
			issue_type, priority, status, close_reason, closed_by_session,
			created_by, assignee, owner, created_at, updated_at, due_at, defer_until,
			estimated_minutes, parent_id, external_ref, ephemeral, deleted_by, delete_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, hash, issue.Title, issue.Description, issue.Design, issue.AcceptanceCriteria, issue.Notes,
		string(issue.IssueType), issue.Priority, string(issue.Status), issue.CloseReason, issue.ClosedBySession,
		issue.CreatedBy, issue.Assignee, issue.Owner,
		formatTime(issue.CreatedAt), formatTime(issue.UpdatedAt), formatTimePtr(issue.DueAt), formatTimePtr(issue.DeferUntil),
		nullableInt(issue.EstimatedMinutes), issue.ParentID, issue.ExternalRef, boolToInt(issue.Ephemeral),
		issue.DeletedBy, issue.DeleteReason,
	)
	return wrapDBError("inserting issue", err)
}

// UpdateIssue overwrites every content-bearing column of an existing issue
// and refreshes its content hash and updated_at.
func (t *Tx) UpdateIssue(ctx context.Context, issue *types.Issue) error {
	hash := string(contenthash.Of(issue))
	_, err := t.tx.ExecContext(ctx, `
		UPDATE issues SET
			content_hash = ?, title = ?, description = ?, design = ?, acceptance_criteria = ?, notes = ?,
			issue_type = ?, priority = ?, status = ?, close_reason = ?, closed_by_session = ?,
			created_by = ?, assignee = ?, owner = ?, updated_at = ?, due_at = ?, defer_until = ?,
			estimated_minutes = ?, parent_id = ?, external_ref = ?, ephemeral = ?,
			deleted_by = ?, delete_reason = ?
		WHERE id = ?`,
		hash, issue.Title, issue.Description, issue.Design, issue.AcceptanceCriteria, issue.Notes,
		string(issue.IssueType), issue.Priority, string(issue.Status), issue.CloseReason, issue.ClosedBySession,
		issue.CreatedBy, issue.Assignee, issue.Owner, formatTime(issue.UpdatedAt), formatTimePtr(issue.DueAt), formatTimePtr(issue.DeferUntil),
		nullableInt(issue.EstimatedMinutes), issue.ParentID, issue.ExternalRef, boolToInt(issue.Ephemeral),
		issue.DeletedBy, issue.DeleteReason, issue.ID,
	)
	return wrapDBError("updating issue", err)
}

// GetIssueForUpdate reads the current row of id within the transaction, so
// mutation handlers can apply partial updates against a consistent snapshot.
func (t *Tx) GetIssueForUpdate(ctx context.Context, id string) (*types.Issue, error) {
	row := t.tx.QueryRowContext(ctx, issueSelectColumns+" FROM issues WHERE id = ?", id)
	return scanIssue(row)
}

// InsertDependency adds one edge. Cycle-freedom must already have been
// checked by the Dependency Engine before this is called.
func (t *Tx) InsertDependency(ctx context.Context, dep *types.Dependency) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO dependencies (issue_id, depends_on_id, dep_type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)`,
		dep.IssueID, dep.DependsOnID, string(dep.DepType), formatTime(dep.CreatedAt), dep.CreatedBy)
	return wrapDBError("inserting dependency", err)
}

// DeleteDependency removes one edge.
func (t *Tx) DeleteDependency(ctx context.Context, issueID, dependsOnID string, depType types.DepType) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ? AND dep_type = ?`,
		issueID, dependsOnID, string(depType))
	return wrapDBError("deleting dependency", err)
}

// DeleteAllDependenciesFor removes every edge touching id, in either
// direction. Used by delete, which tombstones an issue and severs it from
// the graph entirely.
func (t *Tx) DeleteAllDependenciesFor(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM dependencies WHERE issue_id = ? OR depends_on_id = ?`, id, id)
	return wrapDBError("deleting dependencies for issue", err)
}

// DeleteAllLabelsFor removes every label attached to id.
func (t *Tx) DeleteAllLabelsFor(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM labels WHERE issue_id = ?`, id)
	return wrapDBError("deleting labels for issue", err)
}

// AllBlockingEdges returns every (issue_id, depends_on_id) pair whose
// dep_type contributes to reachability (blocks, parent-child), across the
// whole store. Used by the Dependency Engine for cycle detection and SCC
// audits; the small size of real workspaces makes an in-memory graph cheap
// to rebuild per call.
func (t *Tx) AllBlockingEdges(ctx context.Context) ([][2]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT issue_id, depends_on_id FROM dependencies
		WHERE dep_type IN (?, ?)`, string(types.DepBlocks), string(types.DepParentChild))
	if err != nil {
		return nil, wrapDBError("listing blocking edges", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, wrapDBError("scanning blocking edge", err)
		}
		out = append(out, [2]string{a, b})
	}
	return out, wrapDBError("listing blocking edges", rows.Err())
}

// InsertLabel attaches a label. A duplicate attach is a silent no-op.
func (t *Tx) InsertLabel(ctx context.Context, issueID, label string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`, issueID, label)
	return wrapDBError("inserting label", err)
}

// DeleteLabel detaches a label.
func (t *Tx) DeleteLabel(ctx context.Context, issueID, label string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM labels WHERE issue_id = ? AND label = ?`, issueID, label)
	return wrapDBError("deleting label", err)
}

// InsertComment appends a comment and returns its assigned ID.
func (t *Tx) InsertComment(ctx context.Context, c *types.Comment) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO comments (issue_id, body, author, created_at) VALUES (?, ?, ?, ?)`,
		c.IssueID, c.Body, c.Author, formatTime(c.CreatedAt))
	if err != nil {
		return 0, wrapDBError("inserting comment", err)
	}
	id, err := res.LastInsertId()
	return id, wrapDBError("reading comment id", err)
}

// InsertEvent appends one audit record. Events are never mutated or deleted.
func (t *Tx) InsertEvent(ctx context.Context, e *types.Event) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (ts, actor, kind, issue_id, detail) VALUES (?, ?, ?, ?, ?)`,
		formatTime(e.Ts), e.Actor, string(e.Kind), e.IssueID, e.Detail)
	return wrapDBError("inserting event", err)
}

// MarkDirty records issueID as changed since the last successful export.
func (t *Tx) MarkDirty(ctx context.Context, issueID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO dirty_issues (issue_id) VALUES (?)`, issueID)
	return wrapDBError("marking issue dirty", err)
}

// ClearDirty removes issueID from dirty_issues (called after export).
func (t *Tx) ClearDirty(ctx context.Context, issueID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM dirty_issues WHERE issue_id = ?`, issueID)
	return wrapDBError("clearing dirty flag", err)
}

// SetBlockedCache upserts the computed blocked state for issueID.
func (t *Tx) SetBlockedCache(ctx context.Context, issueID string, isBlocked bool, blockingIDs []string) error {
	payload, err := json.Marshal(blockingIDs)
	if err != nil {
		return wrapDBError("encoding blocking ids", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO blocked_cache (issue_id, is_blocked, blocking_ids_json) VALUES (?, ?, ?)
		ON CONFLICT(issue_id) DO UPDATE SET is_blocked = excluded.is_blocked, blocking_ids_json = excluded.blocking_ids_json`,
		issueID, boolToInt(isBlocked), string(payload))
	return wrapDBError("writing blocked cache", err)
}

// GetBlockedCache reads the cached blocked state for issueID. A missing row
// is treated as not-blocked with no recorded blockers (callers recompute
// lazily if they need a guarantee).
func (t *Tx) GetBlockedCache(ctx context.Context, issueID string) (bool, []string, error) {
	var isBlocked int
	var payload string
	err := t.tx.QueryRowContext(ctx, `SELECT is_blocked, blocking_ids_json FROM blocked_cache WHERE issue_id = ?`, issueID).
		Scan(&isBlocked, &payload)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, wrapDBError("reading blocked cache", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(payload), &ids); err != nil {
		return false, nil, wrapDBError("decoding blocking ids", err)
	}
	return isBlocked != 0, ids, nil
}

// IssueStatus returns the status of id within the transaction.
func (t *Tx) IssueStatus(ctx context.Context, id string) (types.Status, error) {
	var status string
	err := t.tx.QueryRowContext(ctx, `SELECT status FROM issues WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return "", wrapDBError("reading issue status", err)
	}
	return types.Status(status), nil
}

// DirectPredecessors returns every issue with a blocking edge into id
// (issue_id -> id), i.e. issues that would need re-evaluating when id's
// status changes.
func (t *Tx) DirectPredecessors(ctx context.Context, id string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT issue_id FROM dependencies
		WHERE depends_on_id = ? AND dep_type IN (?, ?)`, id, string(types.DepBlocks), string(types.DepParentChild))
	if err != nil {
		return nil, wrapDBError("listing direct predecessors", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, wrapDBError("scanning predecessor", err)
		}
		out = append(out, pid)
	}
	return out, wrapDBError("listing direct predecessors", rows.Err())
}

// DirectBlockers returns id's outgoing blocking edges (id -> depends_on_id).
func (t *Tx) DirectBlockers(ctx context.Context, id string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT depends_on_id FROM dependencies
		WHERE issue_id = ? AND dep_type IN (?, ?)`, id, string(types.DepBlocks), string(types.DepParentChild))
	if err != nil {
		return nil, wrapDBError("listing direct blockers", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var bid string
		if err := rows.Scan(&bid); err != nil {
			return nil, wrapDBError("scanning blocker", err)
		}
		out = append(out, bid)
	}
	return out, wrapDBError("listing direct blockers", rows.Err())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
