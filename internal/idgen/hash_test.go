package idgen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeBase36PadsAndTruncates(t *testing.T) {
	require.Equal(t, "000", EncodeBase36([]byte{0}, 3))
	require.Len(t, EncodeBase36([]byte{255, 255, 255}, 4), 4)
}

func TestAllocateNoCollisions(t *testing.T) {
	seen := map[string]bool{}
	exists := func(id string) (bool, error) { return seen[id], nil }

	for i := 0; i < 2000; i++ {
		id, err := Allocate("bd", exists)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id emitted: %s", id)
		seen[id] = true
	}
}

func TestAllocateExtendsLengthUnderForcedCollisions(t *testing.T) {
	// Force every 3-char candidate to collide so the allocator must extend
	// to at least 4 characters.
	exists := func(id string) (bool, error) {
		_, hash, ok := SplitID(id)
		if !ok {
			return false, nil
		}
		return len(hash) == MinHashLength, nil
	}

	id, err := Allocate("bd", exists)
	require.NoError(t, err)
	_, hash, ok := SplitID(id)
	require.True(t, ok)
	require.Greater(t, len(hash), MinHashLength)
}

func TestAllocateFailsWhenExhausted(t *testing.T) {
	exists := func(id string) (bool, error) { return true, nil }
	_, err := Allocate("bd", exists)
	require.Error(t, err)
}

func TestSplitID(t *testing.T) {
	prefix, hash, ok := SplitID("bd-abc123")
	require.True(t, ok)
	require.Equal(t, "bd", prefix)
	require.Equal(t, "abc123", hash)

	_, _, ok = SplitID("noseparator")
	require.False(t, ok)
}

func TestAllocateFormat(t *testing.T) {
	id, err := Allocate("proj", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	require.True(t, len(id) > len("proj-"))
	require.Equal(t, fmt.Sprintf("proj-%s", id[len("proj-"):]), id)
}
