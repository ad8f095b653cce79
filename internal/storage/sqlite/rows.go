package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

const issueSelectColumns = `SELECT
	id, content_hash, title, description, design, acceptance_criteria, notes,
	issue_type, priority, status, close_reason, closed_by_session,
	created_by, assignee, owner, created_at, updated_at, due_at, defer_until,
	estimated_minutes, parent_id, external_ref, ephemeral, deleted_by, delete_reason`

type scannable interface {
	Scan(dest ...any) error
}

func scanIssue(row scannable) (*types.Issue, error) {
	issue := &types.Issue{}
	var (
		createdAt, updatedAt      string
		dueAt, deferUntil         sql.NullString
		estimatedMinutes          sql.NullInt64
		ephemeral                 int
		contentHash, status, typ  string
	)

	err := row.Scan(
		&issue.ID, &contentHash, &issue.Title, &issue.Description, &issue.Design,
		&issue.AcceptanceCriteria, &issue.Notes, &typ, &issue.Priority, &status,
		&issue.CloseReason, &issue.ClosedBySession, &issue.CreatedBy, &issue.Assignee,
		&issue.Owner, &createdAt, &updatedAt, &dueAt, &deferUntil, &estimatedMinutes,
		&issue.ParentID, &issue.ExternalRef, &ephemeral, &issue.DeletedBy, &issue.DeleteReason,
	)
	if err != nil {
		return nil, wrapDBError("scanning issue row", err)
	}

	issue.Status = types.Status(status)
	issue.IssueType = types.IssueType(typ)
	issue.Ephemeral = ephemeral != 0
	issue.Prefix, _, _ = splitPrefix(issue.ID)

	issue.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	issue.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}
	if dueAt.Valid && dueAt.String != "" {
		t, err := parseTimestamp(dueAt.String)
		if err != nil {
			return nil, err
		}
		issue.DueAt = &t
	}
	if deferUntil.Valid && deferUntil.String != "" {
		t, err := parseTimestamp(deferUntil.String)
		if err != nil {
			return nil, err
		}
		issue.DeferUntil = &t
	}
	if estimatedMinutes.Valid {
		n := int(estimatedMinutes.Int64)
		issue.EstimatedMinutes = &n
	}

	_ = contentHash // recomputed on demand by contenthash.Of; stored value is for drift detection only.
	return issue, nil
}

func (s *Store) scanIssueByID(ctx context.Context, id string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueSelectColumns+" FROM issues WHERE id = ?", id)
	return scanIssue(row)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, wrapDBError("parsing stored timestamp", err)
	}
	return t, nil
}

func splitPrefix(id string) (prefix, hash string, ok bool) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '-' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}
