package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/workspace"
)

// FlushOptions configures one export.
type FlushOptions struct {
	// Path is the target mirror file. Defaults to the workspace's mirror
	// path when empty.
	Path string
	// PathOverride bypasses workspace.ValidatePath's extension/filename
	// checks (never its root-containment or VCS-directory checks).
	PathOverride bool
	Policy       ErrorPolicy
	Actor        string
	// WriteBackup, when true, also writes a timestamped copy into the
	// workspace history directory alongside a manifest.
	WriteBackup bool
}

// FlushResult reports what an export actually wrote.
type FlushResult struct {
	Path      string
	Count     int
	Digest    string
	Skipped   []string
	Timestamp time.Time
}

// Manifest describes one export, written alongside a history backup.
type Manifest struct {
	Count     int       `json:"count"`
	Digest    string    `json:"digest"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
}

// Flush performs the export: it reads every non-ephemeral issue from
// store, serializes them as one JSON object per line ordered by id
// ascending, writes the result to a temp file in the target's directory,
// fsyncs it, computes its digest, and atomically renames it into place.
// No partial file is ever visible at Path: either the rename happens after
// everything is durably on disk, or nothing changes.
func Flush(ctx context.Context, store *sqlite.Store, layout *workspace.Layout, opts FlushOptions) (*FlushResult, error) {
	target := opts.Path
	if target == "" {
		target = layout.MirrorPath()
	}
	if err := workspace.ValidatePath(layout.Root, target, opts.PathOverride); err != nil {
		return nil, err
	}

	issues, err := store.AllIssues(ctx, false, true)
	if err != nil {
		return nil, err
	}

	lines := make([][]byte, 0, len(issues))
	var kept []*types.Issue
	var skipped []string
	for _, issue := range issues {
		if opts.Policy == PolicyRequiredCore {
			if missing := missingRequiredCoreField(issue); missing != "" {
				return nil, beadserr.New(beadserr.KindValidation,
					"issue %s missing required field %q", issue.ID, missing).
					WithPayload("issue_id", issue.ID)
			}
		}
		line, err := serializeLine(issue)
		if err != nil {
			switch opts.Policy {
			case PolicyBestEffort, PolicyPartial, PolicyRequiredCore:
				skipped = append(skipped, issue.ID)
				continue
			default:
				return nil, err
			}
		}
		lines = append(lines, line)
		kept = append(kept, issue)
	}

	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".mirror-flush-*.tmp")
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "creating temp file for export")
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op once renamed away

	h := sha256.New()
	for _, line := range lines {
		if _, err := tmp.Write(line); err != nil {
			_ = tmp.Close()
			return nil, beadserr.Wrap(beadserr.KindIO, err, "writing export temp file")
		}
		if _, err := tmp.Write([]byte("\n")); err != nil {
			_ = tmp.Close()
			return nil, beadserr.Wrap(beadserr.KindIO, err, "writing export temp file")
		}
		h.Write(line)
		h.Write([]byte("\n"))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, beadserr.Wrap(beadserr.KindIO, err, "fsyncing export temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "closing export temp file")
	}

	digest := hex.EncodeToString(h.Sum(nil))

	if err := os.Rename(tmpPath, target); err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "replacing %s", target)
	}

	now := time.Now().UTC()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, issue := range kept {
		if err := tx.ClearDirty(ctx, issue.ID); err != nil {
			return nil, err
		}
		if err := tx.InsertEvent(ctx, &types.Event{Ts: now, Actor: opts.Actor, Kind: types.EventExported, IssueID: issue.ID}); err != nil {
			return nil, err
		}
	}
	if opts.Policy == PolicyPartial {
		for _, id := range skipped {
			if err := tx.MarkDirty(ctx, id); err != nil {
				return nil, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result := &FlushResult{Path: target, Count: len(kept), Digest: digest, Skipped: skipped, Timestamp: now}

	if opts.WriteBackup {
		if err := writeBackup(layout, lines, result, opts.Actor); err != nil {
			return result, err
		}
	}

	return result, nil
}

func serializeLine(issue *types.Issue) ([]byte, error) {
	line, err := json.Marshal(issue)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindInternal, err, "serializing issue %s", issue.ID)
	}
	return line, nil
}

// writeBackup copies the just-exported content into the history directory
// under a timestamped name, alongside a manifest describing the export.
func writeBackup(layout *workspace.Layout, lines [][]byte, result *FlushResult, actor string) error {
	stamp := result.Timestamp.Format("20060102T150405Z")
	backupPath := filepath.Join(layout.HistoryPath(), fmt.Sprintf("issues-%s.jsonl", stamp))
	manifestPath := filepath.Join(layout.HistoryPath(), fmt.Sprintf("issues-%s.manifest.json", stamp))

	var buf []byte
	for _, line := range lines {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if err := os.WriteFile(backupPath, buf, 0o644); err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "writing history backup")
	}

	manifest := Manifest{Count: result.Count, Digest: result.Digest, Timestamp: result.Timestamp, Actor: actor}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return beadserr.Wrap(beadserr.KindInternal, err, "encoding manifest")
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "writing history manifest")
	}
	return nil
}
