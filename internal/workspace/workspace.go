// Package workspace resolves the on-disk layout of a working copy and
// owns metadata.json, the one small file that records which prefix and
// schema version a workspace was initialized with.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/beads/internal/beadserr"
)

// Filenames fixed inside every workspace directory.
const (
	StoreFile    = "beads.db"
	MirrorFile   = "issues.jsonl"
	MetadataFile = "metadata.json"
	ConfigFile   = "config.yaml"
	AuditFile    = "interactions.jsonl"
	HistoryDir   = "history"
)

// versionControlDirs are skipped by path validation; the mirror must never
// land inside one of these.
var versionControlDirs = []string{".git", ".hg", ".svn", ".jj"}

// Layout resolves every workspace path from a single root directory.
type Layout struct {
	Root string
}

// New returns a Layout rooted at dir. dir must already exist.
func New(dir string) (*Layout, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "resolving workspace root %q", dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindDatabaseNotFound, err, "workspace root %q", abs)
	}
	if !info.IsDir() {
		return nil, beadserr.New(beadserr.KindIO, "workspace root %q is not a directory", abs)
	}
	return &Layout{Root: abs}, nil
}

// Init creates dir (and its history subdirectory) if missing and returns
// the resulting Layout. It does not write metadata.json; callers do that
// once they know the issue prefix.
func Init(dir string) (*Layout, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "resolving workspace root %q", dir)
	}
	if err := os.MkdirAll(filepath.Join(abs, HistoryDir), 0o755); err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "creating workspace at %q", abs)
	}
	return &Layout{Root: abs}, nil
}

func (l *Layout) StorePath() string    { return filepath.Join(l.Root, StoreFile) }
func (l *Layout) MirrorPath() string   { return filepath.Join(l.Root, MirrorFile) }
func (l *Layout) MetadataPath() string { return filepath.Join(l.Root, MetadataFile) }
func (l *Layout) ConfigPath() string   { return filepath.Join(l.Root, ConfigFile) }
func (l *Layout) AuditPath() string    { return filepath.Join(l.Root, AuditFile) }
func (l *Layout) HistoryPath() string  { return filepath.Join(l.Root, HistoryDir) }

// Metadata is the contents of metadata.json: the durable record of how this
// workspace was initialized, independent of the mutable config layer.
type Metadata struct {
	Database      string    `json:"database"`
	JSONLExport   string    `json:"jsonl_export"`
	IssuePrefix   string    `json:"issue_prefix"`
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReadMetadata loads metadata.json from the workspace root.
func (l *Layout) ReadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(l.MetadataPath())
	if os.IsNotExist(err) {
		return nil, beadserr.New(beadserr.KindDatabaseNotFound, "workspace %q has no metadata.json; run init first", l.Root)
	}
	if err != nil {
		return nil, beadserr.Wrap(beadserr.KindIO, err, "reading metadata.json")
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, beadserr.Wrap(beadserr.KindInternal, err, "parsing metadata.json")
	}
	return &meta, nil
}

// WriteMetadata writes metadata.json, replacing it atomically so a crash
// mid-write never leaves a truncated file behind.
func (l *Layout) WriteMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return beadserr.Wrap(beadserr.KindInternal, err, "encoding metadata.json")
	}
	tmp := l.MetadataPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "writing metadata.json")
	}
	if err := os.Rename(tmp, l.MetadataPath()); err != nil {
		_ = os.Remove(tmp)
		return beadserr.Wrap(beadserr.KindIO, err, "replacing metadata.json")
	}
	return nil
}

// allowedFlushExtensions are the file types Mirror Sync is permitted to
// write to, beyond the two fixed filenames below.
var allowedFlushExtensions = map[string]bool{
	".jsonl": true,
	".json":  true,
	".db":    true,
	".yaml":  true,
}

// ValidatePath enforces the workspace write boundary: target must resolve
// to somewhere inside root, must not sit inside a version-control metadata
// directory, and must either be one of the two fixed config filenames or
// carry an allowed extension. override bypasses every check except the
// root-containment one, which is never negotiable.
func ValidatePath(root, target string, override bool) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "resolving workspace root")
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return beadserr.Wrap(beadserr.KindIO, err, "resolving target path %q", target)
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return beadserr.New(beadserr.KindPathNotAllowed, "%q lies outside the workspace", target)
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, vcs := range versionControlDirs {
			if part == vcs {
				return beadserr.New(beadserr.KindPathNotAllowed, "%q is inside a version-control metadata directory", target)
			}
		}
	}

	if override {
		return nil
	}

	base := filepath.Base(absTarget)
	if base == MetadataFile || base == ConfigFile {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(absTarget))
	if !allowedFlushExtensions[ext] {
		return beadserr.New(beadserr.KindPathNotAllowed, "%q has a disallowed extension %q", target, ext)
	}
	return nil
}

// DefaultMetadata builds a fresh Metadata for a workspace being initialized
// now, with the given issue prefix and schema version.
func DefaultMetadata(prefix string, schemaVersion int, now time.Time) *Metadata {
	return &Metadata{
		Database:      StoreFile,
		JSONLExport:   MirrorFile,
		IssuePrefix:   prefix,
		SchemaVersion: schemaVersion,
		CreatedAt:     now,
	}
}
