// Package csr builds the Compressed Sparse Row graph snapshot spec.md §4.6
// describes: an O(V+E) pass over the nodes and edges tables into in-memory
// row_ptr/col_idx arrays, used by every algorithm in internal/algo. Grounded
// on the teacher's apoc/algo/algo.go, which builds an equivalent adjacency
// view (there, a map of *Node -> []*Relationship) before running PageRank /
// centrality / traversal; csr.Snapshot generalizes that to integer-indexed
// arrays so internal/algo never touches catalog or reldb directly.
package csr

import (
	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/convert"
	"github.com/orneryd/cygraph/internal/reldb"
)

// Snapshot is an immutable, point-in-time CSR view of the graph. It is owned
// exclusively by one algorithm invocation (spec.md §5): never shared, never
// mutated after Load returns, and eligible for garbage collection the moment
// the algorithm call returns its JSON result.
type Snapshot struct {
	NodeCount int
	EdgeCount int

	RowPtr   []int32 // len NodeCount+1, out-edge offsets into ColIdx
	ColIdx   []int32 // len EdgeCount, out-edge targets as internal indices
	EdgeIDs  []int64 // len EdgeCount, rowid of the edges row for ColIdx[k]

	InRowPtr  []int32 // len NodeCount+1, in-edge offsets into InColIdx
	InColIdx  []int32 // len EdgeCount, in-edge sources as internal indices
	InEdgeIDs []int64 // len EdgeCount, rowid of the edges row for InColIdx[k]

	NodeIDs []int64 // internal index -> rowid
	UserIDs []any   // internal index -> value of the "id" property, or nil

	nodeIdx map[int64]int32 // rowid -> internal index
}

// IndexOf returns the internal index for rowid, or (-1, false) if rowid is
// not present in this snapshot.
func (s *Snapshot) IndexOf(rowid int64) (int32, bool) {
	i, ok := s.nodeIdx[rowid]
	return i, ok
}

// OutNeighbors returns the ColIdx slice for node index i's out-edges.
func (s *Snapshot) OutNeighbors(i int32) []int32 {
	return s.ColIdx[s.RowPtr[i]:s.RowPtr[i+1]]
}

// InNeighbors returns the InColIdx slice for node index i's in-edges.
func (s *Snapshot) InNeighbors(i int32) []int32 {
	return s.InColIdx[s.InRowPtr[i]:s.InRowPtr[i+1]]
}

// OutEdgeIDs returns the edges-table rowids parallel to OutNeighbors(i).
func (s *Snapshot) OutEdgeIDs(i int32) []int64 {
	return s.EdgeIDs[s.RowPtr[i]:s.RowPtr[i+1]]
}

// InEdgeIDsOf returns the edges-table rowids parallel to InNeighbors(i).
func (s *Snapshot) InEdgeIDsOf(i int32) []int64 {
	return s.InEdgeIDs[s.InRowPtr[i]:s.InRowPtr[i+1]]
}

// OutDegree and InDegree are O(1) from the prefix-summed offset arrays.
func (s *Snapshot) OutDegree(i int32) int32 { return s.RowPtr[i+1] - s.RowPtr[i] }
func (s *Snapshot) InDegree(i int32) int32  { return s.InRowPtr[i+1] - s.InRowPtr[i] }

// Load builds a fresh Snapshot from tx's view of the nodes and edges tables.
// Returns (nil, nil) when the graph is empty, per spec.md §4.6: "Returns
// null if node_count = 0; callers must treat null as an empty graph."
//
// Algorithm (spec.md §4.6):
//  1. enumerate nodes ordered by id, filling NodeIDs and nodeIdx
//  2. scan edges once, collecting the rows and accumulating out/in degree counts
//  3. prefix-sum both offset arrays
//  4. walk the collected edges again, using per-source/per-target write cursors to place
//     targets/sources into ColIdx/InColIdx
//
// Any edge referencing a rowid absent from nodeIdx (a race the snapshot's
// enclosing transaction otherwise forecloses) is skipped silently.
func Load(tx *reldb.Txn, cat *catalog.Manager) (*Snapshot, error) {
	var nodeIDs []int64
	err := tx.ScanTable(catalog.TableNodes, func(id int64, _ map[string]any) (bool, error) {
		nodeIDs = append(nodeIDs, id)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	n := len(nodeIDs)
	if n == 0 {
		return nil, nil
	}

	nodeIdx := make(map[int64]int32, n*2)
	for i, id := range nodeIDs {
		nodeIdx[id] = int32(i)
	}

	userIDs := make([]any, n)
	if idKeyID, ok, err := cat.GetPropertyKeyID(tx, "id"); err == nil && ok {
		for i, rowid := range nodeIDs {
			if v, found, err := cat.GetNodeProperty(tx, rowid, idKeyID); err == nil && found {
				userIDs[i] = v
			}
		}
	}

	type edge struct {
		src, tgt int32
		id       int64
	}
	var edges []edge
	err = tx.ScanTable(catalog.TableEdges, func(id int64, row map[string]any) (bool, error) {
		srcID, tgtID := asInt64(row["source_id"]), asInt64(row["target_id"])
		srcIdx, srcOK := nodeIdx[srcID]
		tgtIdx, tgtOK := nodeIdx[tgtID]
		if !srcOK || !tgtOK {
			return true, nil
		}
		edges = append(edges, edge{srcIdx, tgtIdx, id})
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	rowPtr := make([]int32, n+1)
	inRowPtr := make([]int32, n+1)
	for _, e := range edges {
		rowPtr[e.src+1]++
		inRowPtr[e.tgt+1]++
	}
	for i := 0; i < n; i++ {
		rowPtr[i+1] += rowPtr[i]
		inRowPtr[i+1] += inRowPtr[i]
	}

	m := len(edges)
	colIdx := make([]int32, m)
	inColIdx := make([]int32, m)
	edgeIDs := make([]int64, m)
	inEdgeIDs := make([]int64, m)
	outCursor := append([]int32(nil), rowPtr[:n]...)
	inCursor := append([]int32(nil), inRowPtr[:n]...)
	for _, e := range edges {
		colIdx[outCursor[e.src]] = e.tgt
		edgeIDs[outCursor[e.src]] = e.id
		outCursor[e.src]++
		inColIdx[inCursor[e.tgt]] = e.src
		inEdgeIDs[inCursor[e.tgt]] = e.id
		inCursor[e.tgt]++
	}

	return &Snapshot{
		NodeCount: n,
		EdgeCount: m,
		RowPtr:    rowPtr,
		ColIdx:    colIdx,
		EdgeIDs:   edgeIDs,
		InRowPtr:  inRowPtr,
		InColIdx:  inColIdx,
		InEdgeIDs: inEdgeIDs,
		NodeIDs:   nodeIDs,
		UserIDs:   userIDs,
		nodeIdx:   nodeIdx,
	}, nil
}

func asInt64(v any) int64 {
	i, _ := convert.ToInt64(v)
	return i
}
