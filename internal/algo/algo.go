// Package algo is the graph-algorithm library of spec.md §4.7: a set of pure
// functions over an *csr.Snapshot, each producing a JSON-encoded result via
// internal/jsonbuilder. Grounded on the teacher's apoc/algo/algo.go, which
// implements the same algorithm family (PageRank, betweenness, closeness,
// degree, label-propagation "community", Dijkstra, A*) against *Node/
// *Relationship pointers and a container/heap priority queue; here the same
// shapes operate on CSR's int32 node indices instead of pointers, since the
// snapshot is already a dense array-of-structs rather than a pointer graph.
//
// No function in this package ever opens a transaction or touches
// internal/reldb or internal/catalog directly — internal/executor supplies
// whatever store-backed data an algorithm needs (edge weights, a node's
// external user_id) as plain values or small callback functions, keeping
// this package a pure, independently testable computation layer.
package algo

import (
	"fmt"

	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// EdgeWeight resolves the weight of the edge identified by edgeID, the
// rowid csr.Snapshot.EdgeIDs/InEdgeIDs records per adjacency slot. Dijkstra,
// A* and APSP accept one; a nil EdgeWeight (or UnitWeight) treats every edge
// as weight 1, matching spec.md §4.7's "default weight 1".
type EdgeWeight func(edgeID int64) float64

// UnitWeight is the default EdgeWeight: every edge costs 1.
func UnitWeight(int64) float64 { return 1 }

// emptyResult is the JSON the CSR-is-nil contract of spec.md §4.7 requires:
// "on null CSR -> \"[]\"".
const emptyResult = "[]"

// errorResult builds the allocation-failure shape of spec.md §4.7:
// {success:false, error_message}.
func errorResult(format string, args ...any) string {
	b := jsonbuilder.New()
	b.StartObject().
		Key("success").Bool(false).
		Key("error_message").String(fmt.Sprintf(format, args...)).
		EndObject()
	return b.Take()
}

// label returns the user-facing identifier for node index i: its declared
// "id" property if present (UserIDs[i] != nil), otherwise its raw rowid —
// the same fallback spec.md §4.7's path-result shape ("user_id or rowid")
// names explicitly.
func label(snap *csr.Snapshot, i int32) any {
	if snap.UserIDs[i] != nil {
		return snap.UserIDs[i]
	}
	return snap.NodeIDs[i]
}

func writeLabel(b *jsonbuilder.Builder, snap *csr.Snapshot, i int32) {
	switch v := label(snap, i).(type) {
	case string:
		b.String(v)
	case int64:
		b.Int(v)
	case float64:
		b.Float(v)
	case bool:
		b.Bool(v)
	default:
		b.Int(snap.NodeIDs[i])
	}
}

// heapItem and nodeHeap are the binary min-heap Dijkstra and A* pop
// the frontier from, the generalized equivalent of the teacher's
// container/heap PriorityQueue over *Item{node *Node, priority float64}.
type heapItem struct {
	node     int32
	priority float64
}

type nodeHeap []heapItem

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)         { *h = append(*h, x.(heapItem)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
