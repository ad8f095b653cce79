package depsgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/types"
)

// fakeBlockedStore is an in-memory BlockedSource double for exercising the
// recompute policies without a real sqlite.Tx.
type fakeBlockedStore struct {
	status   map[string]types.Status
	blockers map[string][]string // id -> direct outgoing blocking edges
	preds    map[string][]string // id -> direct incoming blocking edges
	cache    map[string]struct {
		blocked bool
		ids     []string
	}
}

func newFakeBlockedStore() *fakeBlockedStore {
	return &fakeBlockedStore{
		status:   map[string]types.Status{},
		blockers: map[string][]string{},
		preds:    map[string][]string{},
		cache: map[string]struct {
			blocked bool
			ids     []string
		}{},
	}
}

func (f *fakeBlockedStore) link(from, to string) {
	f.blockers[from] = append(f.blockers[from], to)
	f.preds[to] = append(f.preds[to], from)
}

func (f *fakeBlockedStore) IssueStatus(ctx context.Context, id string) (types.Status, error) {
	return f.status[id], nil
}

func (f *fakeBlockedStore) DirectBlockers(ctx context.Context, id string) ([]string, error) {
	return f.blockers[id], nil
}

func (f *fakeBlockedStore) DirectPredecessors(ctx context.Context, id string) ([]string, error) {
	return f.preds[id], nil
}

func (f *fakeBlockedStore) SetBlockedCache(ctx context.Context, id string, isBlocked bool, blockingIDs []string) error {
	f.cache[id] = struct {
		blocked bool
		ids     []string
	}{isBlocked, blockingIDs}
	return nil
}

func TestComputeBlockedTrueWhenBlockerOpen(t *testing.T) {
	f := newFakeBlockedStore()
	f.status["bd-1"] = types.StatusOpen
	f.status["bd-2"] = types.StatusOpen
	f.link("bd-2", "bd-1") // bd-2 depends on bd-1

	isBlocked, ids, err := ComputeBlocked(context.Background(), f, "bd-2")
	require.NoError(t, err)
	require.True(t, isBlocked)
	require.Equal(t, []string{"bd-1"}, ids)
}

func TestComputeBlockedFalseWhenBlockerClosed(t *testing.T) {
	f := newFakeBlockedStore()
	f.status["bd-1"] = types.StatusClosed
	f.status["bd-2"] = types.StatusOpen
	f.link("bd-2", "bd-1")

	isBlocked, ids, err := ComputeBlocked(context.Background(), f, "bd-2")
	require.NoError(t, err)
	require.False(t, isBlocked)
	require.Empty(t, ids)
}

func TestRecomputeEdgeChangeUpdatesEndpointAndPredecessors(t *testing.T) {
	f := newFakeBlockedStore()
	f.status["bd-1"] = types.StatusOpen
	f.status["bd-2"] = types.StatusOpen
	f.status["bd-3"] = types.StatusOpen
	f.link("bd-2", "bd-1")
	f.link("bd-3", "bd-2")

	require.NoError(t, RecomputeEdgeChange(context.Background(), f, "bd-2"))
	require.True(t, f.cache["bd-2"].blocked)
	require.True(t, f.cache["bd-3"].blocked)
}

func TestRecomputeStatusChangeWalksTransitivePredecessors(t *testing.T) {
	f := newFakeBlockedStore()
	f.status["bd-1"] = types.StatusOpen
	f.status["bd-2"] = types.StatusOpen
	f.status["bd-3"] = types.StatusOpen
	f.link("bd-2", "bd-1")
	f.link("bd-3", "bd-2")

	require.NoError(t, RecomputeStatusChange(context.Background(), f, "bd-1"))
	require.Contains(t, f.cache, "bd-2")
	require.Contains(t, f.cache, "bd-3")
	require.True(t, f.cache["bd-2"].blocked)
	require.True(t, f.cache["bd-3"].blocked)
}
