package audit_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/audit"
)

type recordErr struct{}

func (recordErr) Error() string { return "close requires an open issue" }

func TestAppendCreatesFileAndWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interactions.jsonl")
	logger := audit.Open(path)

	require.NoError(t, logger.Record("create", "alice", "bd-abc", nil))
	require.NoError(t, logger.Record("close", "bob", "bd-abc", recordErr{}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)

	var first audit.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "create", first.Operation)
	require.Equal(t, "alice", first.Actor)
	require.Equal(t, "bd-abc", first.IssueID)
	require.Empty(t, first.Error)
	require.False(t, first.Ts.IsZero())

	var second audit.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "close requires an open issue", second.Error)
}

func TestRecordSessionGroupsByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interactions.jsonl")
	logger := audit.Open(path)

	require.NoError(t, logger.RecordSession("sess-1", "create", "alice", "bd-abc", nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var e audit.Entry
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &e))
	require.Equal(t, "sess-1", e.Session)
}

func TestAppendIsAdditive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interactions.jsonl")
	logger := audit.Open(path)

	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Append(&audit.Entry{Operation: "list"}))
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	count := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		count++
	}
	require.NoError(t, sc.Err())
	require.Equal(t, 3, count)
}
