package mirror

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/contenthash"
	"github.com/steveyegge/beads/internal/depsgraph"
	"github.com/steveyegge/beads/internal/idgen"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/workspace"
)

// ImportOptions configures one import.
type ImportOptions struct {
	Path         string
	PathOverride bool
	Policy       ErrorPolicy
	// PrefixOverride additionally accepts mirror lines whose id carries this
	// prefix instead of (or alongside) the workspace's own, so issues from
	// more than one prefix can coexist in one store.
	PrefixOverride string
	// Orphan selects how a dangling parent/dependency reference is handled.
	// Defaults to storage.OrphanStrict.
	Orphan storage.OrphanHandling
	// Force overwrites local content on a hash conflict and resurrects a
	// local tombstone when the mirror's copy is live (Open Question (c):
	// tombstone wins unless Force is set).
	Force bool
	Actor string
}

// ParseError is one line that failed to parse as a mirror entry.
type ParseError struct {
	Line   int
	Reason string
}

// ImportResult reports what Import did with each mirror line.
type ImportResult struct {
	Inserted     []string
	Updated      []string
	NoOp         []string
	Conflicted   []string
	Skipped      []string
	OrphanStubs  []string
	ParseErrors  []ParseError
}

const maxLineSize = 64 * 1024 * 1024

// Import reads Path line by line and applies each entry against store.
// Path validation failures and a disallowed prefix are always fatal; an
// unparseable line or a malformed id is fatal unless Policy is
// best-effort; per-line content conflicts follow Policy and Orphan.
func Import(ctx context.Context, store *sqlite.Store, layout *workspace.Layout, opts ImportOptions) (*ImportResult, error) {
	target := opts.Path
	if target == "" {
		target = layout.MirrorPath()
	}
	if err := workspace.ValidatePath(layout.Root, target, opts.PathOverride); err != nil {
		return nil, err
	}
	if opts.Orphan == "" {
		opts.Orphan = storage.OrphanStrict
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "reading mirror file %s", target)
	}

	result := &ImportResult{}
	issues, err := parseLines(data, store.Prefix(), opts, result)
	if err != nil {
		return nil, err
	}

	for _, issue := range issues {
		if err := applyImportedIssue(ctx, store, issue, opts, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// parseLines decodes each mirror line and checks prefix agreement. It
// returns the accepted issues in file order. Bad JSON or a malformed id
// aborts the whole import unless Policy is best-effort, in which case the
// offending line is recorded and skipped; a prefix mismatch always aborts.
func parseLines(data []byte, workspacePrefix string, opts ImportOptions, result *ImportResult) ([]*types.Issue, error) {
	var issues []*types.Issue
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var issue types.Issue
		if err := json.Unmarshal(raw, &issue); err != nil {
			if opts.Policy == PolicyBestEffort {
				result.ParseErrors = append(result.ParseErrors, ParseError{Line: lineNo, Reason: err.Error()})
				continue
			}
			return nil, beadserr.New(beadserr.KindJSONLParse, "line %d: %v", lineNo, err).
				WithPayload("line", lineNo)
		}

		prefix, _, ok := idgen.SplitID(issue.ID)
		if !ok {
			if opts.Policy == PolicyBestEffort {
				result.ParseErrors = append(result.ParseErrors, ParseError{Line: lineNo, Reason: "malformed id"})
				continue
			}
			return nil, beadserr.New(beadserr.KindJSONLParse, "line %d: malformed id %q", lineNo, issue.ID).
				WithPayload("line", lineNo)
		}
		if prefix != workspacePrefix && prefix != opts.PrefixOverride {
			return nil, beadserr.New(beadserr.KindPrefixMismatch,
				"line %d: issue %s has prefix %q, workspace uses %q", lineNo, issue.ID, prefix, workspacePrefix).
				WithPayload("line", lineNo)
		}

		issues = append(issues, &issue)
	}
	if err := scanner.Err(); err != nil {
		return nil, beadserr.Wrap(beadserr.KindJSONLParse, err, "scanning mirror file")
	}
	return issues, nil
}

func applyImportedIssue(ctx context.Context, store *sqlite.Store, issue *types.Issue, opts ImportOptions, result *ImportResult) error {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, getErr := tx.GetIssueForUpdate(ctx, issue.ID)
	now := time.Now().UTC()

	switch {
	case beadserr.KindOf(getErr) == beadserr.KindNotFound:
		if err := insertImported(ctx, tx, issue, opts, result, now); err != nil {
			return err
		}
		result.Inserted = append(result.Inserted, issue.ID)

	case getErr != nil:
		return getErr

	default:
		localHash := contenthash.Of(existing)
		incomingHash := contenthash.Of(issue)

		switch {
		case existing.IsDeleted() && !issue.IsDeleted() && !opts.Force:
			result.Skipped = append(result.Skipped, issue.ID)
			return tx.Commit()

		case localHash == incomingHash && existing.IsDeleted() == issue.IsDeleted():
			result.NoOp = append(result.NoOp, issue.ID)
			return tx.Commit()

		case opts.Force || existing.IsDeleted():
			if err := overwriteImported(ctx, tx, issue, opts, result, now); err != nil {
				return err
			}
			result.Updated = append(result.Updated, issue.ID)

		default:
			result.Conflicted = append(result.Conflicted, issue.ID)
			return tx.Commit()
		}
	}

	if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: opts.Actor, Kind: types.EventImported, IssueID: issue.ID}); err != nil {
		return err
	}
	if err := tx.ClearDirty(ctx, issue.ID); err != nil {
		return err
	}
	if err := depsgraph.RecomputeIssue(ctx, tx, issue.ID); err != nil {
		return err
	}
	if err := depsgraph.RecomputeStatusChange(ctx, tx, issue.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func insertImported(ctx context.Context, tx *sqlite.Tx, issue *types.Issue, opts ImportOptions, result *ImportResult, now time.Time) error {
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = now
	}
	if err := tx.InsertIssue(ctx, issue); err != nil {
		return err
	}
	return applySubRecords(ctx, tx, issue, opts, result)
}

func overwriteImported(ctx context.Context, tx *sqlite.Tx, issue *types.Issue, opts ImportOptions, result *ImportResult, now time.Time) error {
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	if err := tx.UpdateIssue(ctx, issue); err != nil {
		return err
	}
	if err := tx.DeleteAllDependenciesFor(ctx, issue.ID); err != nil {
		return err
	}
	if err := tx.DeleteAllLabelsFor(ctx, issue.ID); err != nil {
		return err
	}
	return applySubRecords(ctx, tx, issue, opts, result)
}

func applySubRecords(ctx context.Context, tx *sqlite.Tx, issue *types.Issue, opts ImportOptions, result *ImportResult) error {
	for _, label := range issue.Labels {
		if err := tx.InsertLabel(ctx, issue.ID, label); err != nil {
			return err
		}
	}
	for _, c := range issue.Comments {
		c.IssueID = issue.ID
		if _, err := tx.InsertComment(ctx, c); err != nil {
			return err
		}
	}
	for _, dep := range issue.Dependencies {
		dep.IssueID = issue.ID
		ok, err := resolveOrphan(ctx, tx, dep.DependsOnID, opts, result)
		if err != nil {
			return err
		}
		if !ok {
			continue // skip policy dropped this edge
		}
		if dep.DepType.Blocking() {
			if err := depsgraph.CheckCycle(ctx, tx, dep.IssueID, dep.DependsOnID); err != nil {
				return err
			}
		}
		if err := tx.InsertDependency(ctx, dep); err != nil {
			return err
		}
		if dep.DepType.Blocking() {
			if err := depsgraph.RecomputeEdgeChange(ctx, tx, dep.DependsOnID); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveOrphan ensures depID exists (under the configured policy) before
// an edge to it is inserted. It returns ok=false when the edge should be
// dropped instead (OrphanSkip).
func resolveOrphan(ctx context.Context, tx *sqlite.Tx, depID string, opts ImportOptions, result *ImportResult) (bool, error) {
	exists, err := tx.Exists(depID)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	switch opts.Orphan {
	case storage.OrphanSkip:
		return false, nil
	case storage.OrphanResurrect, storage.OrphanAllow:
		if err := createOrphanStub(ctx, tx, depID, opts.Actor); err != nil {
			return false, err
		}
		result.OrphanStubs = append(result.OrphanStubs, depID)
		return true, nil
	default: // OrphanStrict
		return false, beadserr.New(beadserr.KindValidation, "dangling dependency reference %s", depID).
			WithPayload("missing_id", depID)
	}
}

// createOrphanStub inserts a tombstoned placeholder for an id referenced by
// an imported edge but absent from the store, so the foreign-key-enforced
// schema accepts the edge pending the next integrity audit.
func createOrphanStub(ctx context.Context, tx *sqlite.Tx, id string, actor string) error {
	now := time.Now().UTC()
	stub := &types.Issue{
		ID:           id,
		Title:        "(orphaned reference)",
		IssueType:    types.TypeTask,
		Priority:     types.MaxPriority,
		Status:       types.StatusClosed,
		CreatedAt:    now,
		UpdatedAt:    now,
		DeletedBy:    firstNonEmpty(actor, "mirror-import"),
		DeleteReason: "stub created to satisfy a dangling reference on import",
	}
	if err := tx.InsertIssue(ctx, stub); err != nil {
		return err
	}
	return tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: actor, Kind: types.EventImported, IssueID: id, Detail: "orphan stub"})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
