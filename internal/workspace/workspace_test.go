package workspace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitCreatesHistoryDir(t *testing.T) {
	dir := t.TempDir()
	l, err := Init(filepath.Join(dir, "ws"))
	require.NoError(t, err)
	require.DirExists(t, l.HistoryPath())
}

func TestMetadataRoundTrip(t *testing.T) {
	l, err := Init(t.TempDir())
	require.NoError(t, err)

	meta := DefaultMetadata("bd", 1, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, l.WriteMetadata(meta))

	got, err := l.ReadMetadata()
	require.NoError(t, err)
	require.Equal(t, meta.IssuePrefix, got.IssuePrefix)
	require.Equal(t, meta.SchemaVersion, got.SchemaVersion)
	require.True(t, meta.CreatedAt.Equal(got.CreatedAt))
}

func TestReadMetadataMissingFile(t *testing.T) {
	l, err := Init(t.TempDir())
	require.NoError(t, err)

	_, err = l.ReadMetadata()
	require.Error(t, err)
}

func TestLayoutPaths(t *testing.T) {
	l, err := Init(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, filepath.Join(l.Root, "beads.db"), l.StorePath())
	require.Equal(t, filepath.Join(l.Root, "issues.jsonl"), l.MirrorPath())
	require.Equal(t, filepath.Join(l.Root, "metadata.json"), l.MetadataPath())
	require.Equal(t, filepath.Join(l.Root, "config.yaml"), l.ConfigPath())
	require.Equal(t, filepath.Join(l.Root, "interactions.jsonl"), l.AuditPath())
}

func TestValidatePathRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	err := ValidatePath(root, filepath.Join(outside, "issues.jsonl"), false)
	require.Error(t, err)
}

func TestValidatePathRejectsVersionControlDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, ".git", "issues.jsonl")

	err := ValidatePath(root, target, false)
	require.Error(t, err)
}

func TestValidatePathRejectsDisallowedExtension(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "notes.txt")

	err := ValidatePath(root, target, false)
	require.Error(t, err)
}

func TestValidatePathAllowsFixedFilenames(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, ValidatePath(root, filepath.Join(root, MetadataFile), false))
	require.NoError(t, ValidatePath(root, filepath.Join(root, ConfigFile), false))
	require.NoError(t, ValidatePath(root, filepath.Join(root, "issues.jsonl"), false))
}

func TestValidatePathOverrideBypassesExtensionCheckButNotRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, ValidatePath(root, filepath.Join(root, "notes.txt"), true))
	require.Error(t, ValidatePath(root, filepath.Join(outside, "notes.txt"), true))
}
