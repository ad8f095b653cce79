// Package sqlite implements the Schema & Store component: relational
// persistence over a pure-Go SQLite driver, with write-ahead journaling,
// busy-timeout semantics, and schema-version enforcement on open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/types"
)

// DefaultLockTimeout is the busy-timeout applied when Options.LockTimeout
// is zero.
const DefaultLockTimeout = 30 * time.Second

// Options configures Open.
type Options struct {
	// Prefix is the workspace's issue ID prefix. On a fresh database it is
	// recorded into config; on an existing one it must agree (see
	// validation.ValidatePrefix) unless Force is set.
	Prefix string
	Force  bool

	LockTimeout time.Duration
	Log         *slog.Logger
}

// Store is a single open connection to a workspace's SQLite database. It
// implements the whole of the Schema & Store public contract; all writes
// happen through BeginTx, which the Mutation Protocol wraps.
type Store struct {
	db     *sql.DB
	path   string
	prefix string
	log    *slog.Logger
}

// Open opens (creating if necessary) the database at path, installs the
// schema if new, and verifies schema version and issue prefix agreement on
// an existing one.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	logger := opts.Log
	if logger == nil {
		logger = slog.Default()
	}

	connStr := storage.SQLiteConnString(path, false, opts.LockTimeout)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindDatabaseNotFound, err, "opening database at %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, beadserr.Wrap(beadserr.KindInternal, err, "installing schema")
	}

	s := &Store{db: db, path: path, log: logger}

	if err := s.reconcileSchemaVersion(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.reconcilePrefix(ctx, opts.Prefix, opts.Force); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("store opened", "path", path, "prefix", s.prefix)
	return s, nil
}

func (s *Store) reconcileSchemaVersion(ctx context.Context) error {
	existing, err := s.getConfigRaw(ctx, "schema_version")
	if err != nil {
		return beadserr.Wrap(beadserr.KindInternal, err, "reading schema version")
	}
	if existing == "" {
		return s.setConfigRaw(ctx, "schema_version", fmt.Sprintf("%d", SchemaVersion))
	}
	var got int
	if _, err := fmt.Sscanf(existing, "%d", &got); err != nil || got != SchemaVersion {
		return beadserr.New(beadserr.KindSchemaMismatch,
			"database schema version %q does not match implementation version %d", existing, SchemaVersion)
	}
	return nil
}

func (s *Store) reconcilePrefix(ctx context.Context, requested string, force bool) error {
	existing, err := s.getConfigRaw(ctx, "issue_prefix")
	if err != nil {
		return beadserr.Wrap(beadserr.KindInternal, err, "reading issue prefix")
	}
	if existing == "" {
		if requested == "" {
			requested = "bd"
		}
		if err := s.setConfigRaw(ctx, "issue_prefix", requested); err != nil {
			return err
		}
		s.prefix = requested
		return nil
	}
	if requested != "" && requested != existing && !force {
		return beadserr.New(beadserr.KindValidation,
			"prefix mismatch: database uses %q but requested %q (pass force to override)", existing, requested)
	}
	s.prefix = existing
	return nil
}

// Prefix returns the workspace's issue ID prefix.
func (s *Store) Prefix() string { return s.prefix }

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether a non-deleted issue with the given exact id exists.
// It satisfies idgen.Exists.
func (s *Store) Exists(id string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM issues WHERE id = ? AND deleted_by = ''`, id).Scan(&n)
	if err != nil {
		return false, wrapDBError("checking id existence", err)
	}
	return n > 0, nil
}

// ResolveID resolves idOrPrefix to a full issue ID. An exact match wins
// outright; otherwise it looks for non-deleted issues whose ID starts with
// idOrPrefix. Zero matches is KindNotFound; more than one is
// KindAmbiguousID listing the candidates.
func (s *Store) ResolveID(ctx context.Context, idOrPrefix string) (string, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM issues WHERE id = ?`, idOrPrefix).Scan(&n); err != nil {
		return "", wrapDBError("resolving id", err)
	}
	if n == 1 {
		return idOrPrefix, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM issues WHERE substr(id, 1, length(?)) = ? AND deleted_by = '' ORDER BY id`, idOrPrefix, idOrPrefix)
	if err != nil {
		return "", wrapDBError("resolving id prefix", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", wrapDBError("scanning id match", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", wrapDBError("resolving id prefix", err)
	}

	switch len(matches) {
	case 0:
		return "", beadserr.New(beadserr.KindNotFound, "no issue matches %q", idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", beadserr.New(beadserr.KindAmbiguousID, "%q matches %d issues", idOrPrefix, len(matches)).
			WithPayload("matches", matches)
	}
}

// GetIssue returns the full issue row for the exact id, including inlined
// labels, dependencies, and comments.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	issue, err := s.scanIssueByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *Store) hydrate(ctx context.Context, issue *types.Issue) error {
	labels, err := s.GetLabels(ctx, issue.ID)
	if err != nil {
		return err
	}
	issue.Labels = labels

	deps, err := s.GetDependencies(ctx, issue.ID, types.DirectionOutgoing)
	if err != nil {
		return err
	}
	issue.Dependencies = deps

	comments, err := s.GetComments(ctx, issue.ID)
	if err != nil {
		return err
	}
	issue.Comments = comments
	return nil
}

// GetLabels returns the labels attached to id, sorted lexicographically.
func (s *Store) GetLabels(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM labels WHERE issue_id = ? ORDER BY label`, id)
	if err != nil {
		return nil, wrapDBError("listing labels", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, wrapDBError("scanning label", err)
		}
		labels = append(labels, l)
	}
	return labels, wrapDBError("listing labels", rows.Err())
}

// GetComments returns id's comments in creation order.
func (s *Store) GetComments(ctx context.Context, id string) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body, author, created_at FROM comments WHERE issue_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, wrapDBError("listing comments", err)
	}
	defer rows.Close()

	var out []*types.Comment
	for rows.Next() {
		c := &types.Comment{IssueID: id}
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Body, &c.Author, &createdAt); err != nil {
			return nil, wrapDBError("scanning comment", err)
		}
		c.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, wrapDBError("listing comments", rows.Err())
}

// GetDependencies returns id's edges in the given direction, ordered by
// depends_on_id (outgoing) or issue_id (incoming) for determinism.
func (s *Store) GetDependencies(ctx context.Context, id string, dir types.Direction) ([]*types.Dependency, error) {
	var query string
	if dir == types.DirectionIncoming {
		query = `SELECT issue_id, dep_type, created_at, created_by FROM dependencies WHERE depends_on_id = ? ORDER BY issue_id, dep_type`
	} else {
		query = `SELECT depends_on_id, dep_type, created_at, created_by FROM dependencies WHERE issue_id = ? ORDER BY depends_on_id, dep_type`
	}
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, wrapDBError("listing dependencies", err)
	}
	defer rows.Close()

	var out []*types.Dependency
	for rows.Next() {
		d := &types.Dependency{IssueID: id}
		var other, depType, createdAt, createdBy string
		if err := rows.Scan(&other, &depType, &createdAt, &createdBy); err != nil {
			return nil, wrapDBError("scanning dependency", err)
		}
		if dir == types.DirectionIncoming {
			d.IssueID = other
			d.DependsOnID = id
		} else {
			d.DependsOnID = other
		}
		d.DepType = types.DepType(depType)
		d.CreatedBy = createdBy
		d.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, wrapDBError("listing dependencies", rows.Err())
}

// ListIssues returns issues matching filter, ordered by sortOpts (falling
// back to types.DefaultIssueSortOptions if empty), limited to filter.Limit
// when positive.
func (s *Store) ListIssues(ctx context.Context, filter types.IssueFilter, sortOpts []types.IssueSortOption) ([]*types.Issue, error) {
	where, args := buildWhere(filter)
	order := buildOrderBy(sortOpts)

	query := issueSelectColumns + " FROM issues" + where + order
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("listing issues", err)
	}
	defer rows.Close()

	var out []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("listing issues", err)
	}

	for _, issue := range out {
		if err := s.hydrate(ctx, issue); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildWhere(f types.IssueFilter) (string, []any) {
	var clauses []string
	var args []any

	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted_by = ''")
	}
	if !f.All && f.Status == nil {
		clauses = append(clauses, "status != ?")
		args = append(args, string(types.StatusClosed))
	}
	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.IssueType != nil {
		clauses = append(clauses, "issue_type = ?")
		args = append(args, string(*f.IssueType))
	}
	if f.PriorityMin != nil {
		clauses = append(clauses, "priority >= ?")
		args = append(args, *f.PriorityMin)
	}
	if f.PriorityMax != nil {
		clauses = append(clauses, "priority <= ?")
		args = append(args, *f.PriorityMax)
	}
	if f.Assignee != nil {
		clauses = append(clauses, "assignee = ?")
		args = append(args, *f.Assignee)
	}
	if f.Owner != nil {
		clauses = append(clauses, "owner = ?")
		args = append(args, *f.Owner)
	}
	if f.TitleContains != "" {
		clauses = append(clauses, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.TitleContains)+"%")
	}
	if f.DescContains != "" {
		clauses = append(clauses, "LOWER(description) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.DescContains)+"%")
	}
	if f.ParentID != nil {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, *f.ParentID)
	}
	if !f.IncludeDeferred {
		clauses = append(clauses, "(defer_until IS NULL OR defer_until <= ?)")
		args = append(args, nowRFC3339())
	}
	if f.CreatedAfter != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, f.CreatedAfter.UTC().Format(time.RFC3339Nano))
	}
	if f.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.CreatedBefore.UTC().Format(time.RFC3339Nano))
	}
	if f.UpdatedAfter != nil {
		clauses = append(clauses, "updated_at > ?")
		args = append(args, f.UpdatedAfter.UTC().Format(time.RFC3339Nano))
	}
	if f.UpdatedBefore != nil {
		clauses = append(clauses, "updated_at < ?")
		args = append(args, f.UpdatedBefore.UTC().Format(time.RFC3339Nano))
	}
	for _, l := range f.Label {
		clauses = append(clauses, "id IN (SELECT issue_id FROM labels WHERE label = ?)")
		args = append(args, l)
	}
	if len(f.LabelAny) > 0 {
		placeholders := make([]string, len(f.LabelAny))
		for i, l := range f.LabelAny {
			placeholders[i] = "?"
			args = append(args, l)
		}
		clauses = append(clauses, "id IN (SELECT issue_id FROM labels WHERE label IN ("+strings.Join(placeholders, ",")+"))")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildOrderBy(opts []types.IssueSortOption) string {
	if len(opts) == 0 {
		opts = types.DefaultIssueSortOptions()
	}
	parts := make([]string, 0, len(opts)+1)
	for _, o := range opts {
		col := sortColumn(o.Field)
		dir := "ASC"
		if o.Direction == types.SortDesc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func sortColumn(f types.SortField) string {
	switch f {
	case types.SortFieldPriority:
		return "priority"
	case types.SortFieldCreated:
		return "created_at"
	case types.SortFieldUpdated:
		return "updated_at"
	case types.SortFieldTitle:
		return "title"
	default:
		return "id"
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// GetConfig returns a value from the persisted config table, or "" if unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	return s.getConfigRaw(ctx, key)
}

// SetConfig writes a value into the persisted config table.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	return s.setConfigRaw(ctx, key, value)
}

func (s *Store) getConfigRaw(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapDBError("reading config", err)
	}
	return v, nil
}

func (s *Store) setConfigRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return wrapDBError("writing config", err)
}

// DirtyIssueIDs returns every ID currently marked dirty, sorted.
func (s *Store) DirtyIssueIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT issue_id FROM dirty_issues ORDER BY issue_id`)
	if err != nil {
		return nil, wrapDBError("listing dirty issues", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("scanning dirty issue id", err)
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, wrapDBError("listing dirty issues", rows.Err())
}

// GetBlockedCache reads issueID's cached blocked state outside of any
// transaction, for read-only callers like the ready query. A missing row
// is treated as not-blocked.
func (s *Store) GetBlockedCache(ctx context.Context, issueID string) (bool, []string, error) {
	var isBlocked int
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT is_blocked, blocking_ids_json FROM blocked_cache WHERE issue_id = ?`, issueID).
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

// AllIssues returns issues ordered by id ascending, fully hydrated.
// includeEphemeral controls whether ephemeral issues are included;
// includeDeleted controls whether tombstoned issues are included. Mirror
// Sync export passes includeDeleted=true (tombstones must still be
// emitted so other working copies replicate the deletion) and
// includeEphemeral=false (ephemeral issues never appear in the mirror).
func (s *Store) AllIssues(ctx context.Context, includeEphemeral, includeDeleted bool) ([]*types.Issue, error) {
	query := issueSelectColumns + " FROM issues"
	var clauses []string
	if !includeDeleted {
		clauses = append(clauses, "deleted_by = ''")
	}
	if !includeEphemeral {
		clauses = append(clauses, "ephemeral = 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapDBError("listing all issues", err)
	}
	defer rows.Close()

	var out []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("listing all issues", err)
	}
	for _, issue := range out {
		if err := s.hydrate(ctx, issue); err != nil {
			return nil, err
		}
	}
	return out, nil
}
