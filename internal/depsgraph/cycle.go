// Package depsgraph implements the Dependency Engine: cycle detection,
// blocked-state computation and caching, ready queries with pluggable sort
// policies, and tree/rollup traversal. All of it operates over the
// subgraph induced by blocking edge types (blocks, parent-child);
// informational edges (discovered-from, related) are invisible here.
package depsgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/beads/internal/beadserr"
)

// EdgeSource supplies the blocking-edge view of the store that cycle
// detection and the full audit need. *sqlite.Tx satisfies this.
type EdgeSource interface {
	AllBlockingEdges(ctx context.Context) ([][2]string, error)
}

// CheckCycle rejects an edge u->v if v can already reach u over the
// blocking subgraph (which would close a cycle through the new edge). It
// returns the offending path v -> ... -> u -> v in the error payload.
func CheckCycle(ctx context.Context, src EdgeSource, u, v string) error {
	if u == v {
		return beadserr.New(beadserr.KindSelfDependency, "an issue cannot depend on itself (%s)", u)
	}

	edges, err := src.AllBlockingEdges(ctx)
	if err != nil {
		return err
	}
	adj := buildAdjacency(edges)

	path, reachable := findPath(adj, v, u)
	if !reachable {
		return nil
	}
	fullPath := append(path, v)
	return beadserr.New(beadserr.KindDependencyCycle,
		"adding %s -> %s would create a cycle: %s", u, v, strings.Join(fullPath, " -> ")).
		WithPayload("path", fullPath)
}

func buildAdjacency(edges [][2]string) map[string][]string {
	adj := make(map[string][]string, len(edges))
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
	}
	return adj
}

// findPath runs a deterministic DFS from start looking for target,
// returning the path start -> ... -> target (inclusive of target).
func findPath(adj map[string][]string, start, target string) ([]string, bool) {
	visited := map[string]bool{}
	var path []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		if visited[node] {
			return false
		}
		visited[node] = true
		path = append(path, node)
		if node == target {
			return true
		}
		for _, next := range adj[node] {
			if dfs(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if dfs(start) {
		return path, true
	}
	return nil, false
}

// SCC is one strongly connected component of size > 1, or a single
// self-looping node (which the Dependency Engine rejects on insert but the
// full audit still surfaces if one ever reaches the store by other means).
type SCC struct {
	Members []string
}

func (s SCC) String() string {
	return fmt.Sprintf("{%s}", strings.Join(s.Members, ", "))
}

// FindCycles runs Tarjan's strongly connected components algorithm over
// the blocking subgraph and returns every SCC of size > 1, plus any
// self-loop, for the `dep cycles` full audit.
func FindCycles(ctx context.Context, src EdgeSource) ([]SCC, error) {
	edges, err := src.AllBlockingEdges(ctx)
	if err != nil {
		return nil, err
	}
	adj := buildAdjacency(edges)

	nodes := map[string]bool{}
	for _, e := range edges {
		nodes[e[0]] = true
		nodes[e[1]] = true
	}

	t := &tarjan{
		adj:     adj,
		index:   map[string]int{},
		lowlink: map[string]int{},
		onStack: map[string]bool{},
	}
	// Deterministic iteration order.
	ordered := make([]string, 0, len(nodes))
	for n := range nodes {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)

	for _, n := range ordered {
		if _, seen := t.index[n]; !seen {
			t.strongConnect(n)
		}
	}

	var out []SCC
	for _, scc := range t.sccs {
		if len(scc) > 1 {
			out = append(out, SCC{Members: scc})
			continue
		}
		// Single-node SCC: only interesting if it's a self-loop.
		n := scc[0]
		for _, next := range adj[n] {
			if next == n {
				out = append(out, SCC{Members: scc})
				break
			}
		}
	}
	return out, nil
}

type tarjan struct {
	adj     map[string][]string
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		sort.Strings(scc)
		t.sccs = append(t.sccs, scc)
	}
}
