package algo

import (
	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// LabelPropagationOptions bounds the iteration count; spec.md §4.7 gives no
// fixed default beyond "converges when no label changes in an iteration", so
// MaxIter is a safety backstop against a pathological oscillation.
type LabelPropagationOptions struct {
	MaxIter int
}

// LabelPropagation assigns each node its own index as an initial label, then
// repeatedly adopts the plurality label among in- and out-neighbours (ties
// broken toward the smaller label) until a pass makes no change. Communities
// are renumbered to contiguous ids before returning, per spec.md §4.7.
func LabelPropagation(snap *csr.Snapshot, opts LabelPropagationOptions) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	labels := make([]int32, n)
	for i := range labels {
		labels[i] = int32(i)
	}

	// counts is reused across nodes; touched records which keys were set
	// this step so resetting it stays O(degree) rather than O(N).
	counts := make(map[int32]int, 16)
	var touched []int32

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			for k := range counts {
				delete(counts, k)
			}
			touched = touched[:0]
			for _, nb := range snap.OutNeighbors(int32(i)) {
				l := labels[nb]
				if _, ok := counts[l]; !ok {
					touched = append(touched, l)
				}
				counts[l]++
			}
			for _, nb := range snap.InNeighbors(int32(i)) {
				l := labels[nb]
				if _, ok := counts[l]; !ok {
					touched = append(touched, l)
				}
				counts[l]++
			}
			if len(touched) == 0 {
				continue
			}
			best := touched[0]
			bestCount := counts[best]
			for _, l := range touched[1:] {
				c := counts[l]
				if c > bestCount || (c == bestCount && l < best) {
					best, bestCount = l, c
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	renumbered := renumberContiguous(labels)

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("community").Int(int64(renumbered[i])).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// renumberContiguous maps each distinct value in labels to a dense
// [0, k) id, assigned in first-seen order, and returns the remapped slice.
// Shared by LabelPropagation, Louvain and WCC, each of which must renumber
// its community/component ids contiguously per spec.md §4.7.
func renumberContiguous(labels []int32) []int32 {
	next := make(map[int32]int32, len(labels))
	out := make([]int32, len(labels))
	var nextID int32
	for i, l := range labels {
		id, ok := next[l]
		if !ok {
			id = nextID
			next[l] = id
			nextID++
		}
		out[i] = id
	}
	return out
}
