package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireExclusiveBlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.lock")

	g1, err := AcquireExclusive(path)
	require.NoError(t, err)

	_, err = AcquireExclusive(path)
	require.Error(t, err)
	require.True(t, IsLocked(err))

	require.NoError(t, g1.Release())

	g2, err := AcquireExclusive(path)
	require.NoError(t, err)
	require.NoError(t, g2.Release())
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.lock")
	g, err := AcquireExclusive(path)
	require.NoError(t, err)
	require.NoError(t, g.Release())
	require.NoError(t, g.Release())
}
