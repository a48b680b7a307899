package algo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/algo"
	"github.com/orneryd/cygraph/internal/csr"
)

// buildTriangle returns a 3-node directed cycle 0->1->2->0 plus an isolated
// node 3, built directly from csr.Snapshot's exported fields (no store
// round-trip needed for these pure-computation tests).
func buildTriangle(t *testing.T) *csr.Snapshot {
	t.Helper()
	return &csr.Snapshot{
		NodeCount: 4,
		EdgeCount: 3,
		RowPtr:    []int32{0, 1, 2, 3, 3},
		ColIdx:    []int32{1, 2, 0},
		EdgeIDs:   []int64{10, 11, 12},
		InRowPtr:  []int32{0, 1, 2, 3, 3},
		InColIdx:  []int32{2, 0, 1},
		InEdgeIDs: []int64{12, 10, 11},
		NodeIDs:   []int64{1, 2, 3, 4},
		UserIDs:   []any{nil, nil, nil, nil},
	}
}

func TestPageRankEmitsNodeAndScore(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.PageRank(snap, algo.DefaultPageRankOptions())
	require.Contains(t, out, `"score"`)
	require.Contains(t, out, `"node"`)
}

func TestPageRankNilSnapshot(t *testing.T) {
	require.Equal(t, "[]", algo.PageRank(nil, algo.DefaultPageRankOptions()))
}

func TestWCCEmitsComponentPerNode(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.WCC(snap)
	require.Contains(t, out, `"component"`)
}

func TestDegreeCounts(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.Degree(snap)
	require.Contains(t, out, `"in_degree":1`)
	require.Contains(t, out, `"out_degree":1`)
	require.Contains(t, out, `"in_degree":0`)
	require.Contains(t, out, `"out_degree":0`)
}

func TestDijkstraFindsShortestPath(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.Dijkstra(snap, 0, 2, nil)
	require.Contains(t, out, `"found":true`)
	require.Contains(t, out, `"distance":2`)
}

func TestDijkstraUnreachable(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.Dijkstra(snap, 0, 3, nil)
	require.Contains(t, out, `"found":false`)
}

func TestBFSVisitsAllReachableNodes(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.BFS(snap, 0, -1)
	require.Contains(t, out, `"depth":0`)
	require.Contains(t, out, `"depth":1`)
	require.Contains(t, out, `"depth":2`)
}

func TestTriangleCountFindsOneTriangle(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.TriangleCount(snap)
	require.Contains(t, out, `"triangles":1`)
}

func TestNodeSimilarityPair(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.NodeSimilarity(snap, algo.SimilarityOptions{HasPair: true, PairA: 0, PairB: 1})
	require.Contains(t, out, `"score"`)
}

func TestSCCEmitsComponentPerNode(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.SCC(snap)
	require.Contains(t, out, `"component"`)
}

func TestLabelPropagationConverges(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.LabelPropagation(snap, algo.LabelPropagationOptions{})
	require.Contains(t, out, `"community"`)
}

func TestLouvainRuns(t *testing.T) {
	snap := buildTriangle(t)
	out := algo.Louvain(snap, algo.LouvainOptions{Resolution: 1.0})
	require.Contains(t, out, `"community"`)
}

func TestClosenessSingleNodeIsZero(t *testing.T) {
	snap := &csr.Snapshot{
		NodeCount: 1,
		RowPtr:    []int32{0, 0},
		InRowPtr:  []int32{0, 0},
		NodeIDs:   []int64{1},
		UserIDs:   []any{nil},
	}
	out := algo.Closeness(snap)
	require.Contains(t, out, `"score":0`)
}
