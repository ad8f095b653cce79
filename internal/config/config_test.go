package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/config"
)

func TestGetFallsBackThroughPrecedenceChain(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(projectPath, []byte("ready-policy: hybrid\n"), 0o644))

	r, err := config.New(projectPath, "")
	require.NoError(t, err)

	require.Equal(t, "hybrid", r.Get("ready-policy"))
	require.Equal(t, "strict", r.Get("mirror-policy")) // built-in default
}

func TestSetFlagWinsOverEverything(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(projectPath, []byte("ready-policy: hybrid\n"), 0o644))

	r, err := config.New(projectPath, "")
	require.NoError(t, err)
	r.SetFlag("ready-policy", "oldest")

	require.Equal(t, "oldest", r.Get("ready-policy"))
}

func TestTableLayerFillsGapsBelowFiles(t *testing.T) {
	r, err := config.New("", "")
	require.NoError(t, err)
	r.SetTableLayer(map[string]string{"orphan-policy": "resurrect"})

	require.Equal(t, "resurrect", r.Get("orphan-policy"))
}

func TestStartupOnlyKeysCannotLiveInTheTable(t *testing.T) {
	require.True(t, config.IsStartupOnly("db"))
	require.True(t, config.IsStartupOnly("ACTOR"))
	require.False(t, config.IsStartupOnly("ready-policy"))
}

func TestParseLocalConfigHandlesEmptyContent(t *testing.T) {
	cfg, err := config.ParseLocalConfig(nil)
	require.NoError(t, err)
	require.Equal(t, &config.LocalConfig{}, cfg)

	cfg, err = config.ParseLocalConfig([]byte("actor: alice\nissue-prefix: bd\n"))
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.Actor)
	require.Equal(t, "bd", cfg.IssuePrefix)
}
