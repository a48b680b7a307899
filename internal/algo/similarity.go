package algo

import (
	"sort"

	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// TriangleCount enumerates neighbour pairs per node, treating edges as
// undirected, emitting per-node triangle count and the local clustering
// coefficient 2*T/(d*(d-1)) (0 when d<2), per spec.md §4.7.
func TriangleCount(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	neighborSets := buildUndirectedSets(snap)

	triangles := make([]int64, n)
	for v := 0; v < n; v++ {
		nbs := sortedMembers(neighborSets[v])
		for i := 0; i < len(nbs); i++ {
			for j := i + 1; j < len(nbs); j++ {
				if neighborSets[nbs[i]][nbs[j]] {
					triangles[v]++
				}
			}
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for v := 0; v < n; v++ {
		d := len(neighborSets[v])
		coeff := 0.0
		if d >= 2 {
			coeff = 2 * float64(triangles[v]) / float64(d*(d-1))
		}
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(v))
		b.Key("triangles").Int(triangles[v])
		b.Key("clustering_coefficient").Float(coeff)
		b.EndObject()
	}
	b.EndArray()
	return b.Take()
}

func buildUndirectedSets(snap *csr.Snapshot) []map[int32]bool {
	n := snap.NodeCount
	sets := make([]map[int32]bool, n)
	for i := range sets {
		sets[i] = make(map[int32]bool)
	}
	for v := 0; v < n; v++ {
		for _, w := range snap.OutNeighbors(int32(v)) {
			if int32(v) != w {
				sets[v][w] = true
				sets[w][int32(v)] = true
			}
		}
	}
	return sets
}

func sortedMembers(set map[int32]bool) []int32 {
	out := make([]int32, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func jaccard(a, b map[int32]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if large[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SimilarityOptions selects Jaccard node similarity's output shape, per
// spec.md §4.7: a single pair, a threshold filter, or a top_k truncation.
type SimilarityOptions struct {
	PairA, PairB int32 // used when HasPair
	HasPair      bool
	Threshold    float64
	HasThreshold bool
	TopK         int // 0 means unbounded
}

type pairScore struct {
	a, b  int32
	score float64
}

// NodeSimilarity computes Jaccard similarity over out-neighbour sets for
// every ordered pair (i,j), i<j, per spec.md §4.7.
func NodeSimilarity(snap *csr.Snapshot, opts SimilarityOptions) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	sets := make([]map[int32]bool, n)
	for i := 0; i < n; i++ {
		s := make(map[int32]bool)
		for _, w := range snap.OutNeighbors(int32(i)) {
			s[w] = true
		}
		sets[i] = s
	}

	if opts.HasPair {
		score := jaccard(sets[opts.PairA], sets[opts.PairB])
		b := jsonbuilder.New()
		b.StartArray().StartObject().
			Key("a")
		writeLabel(b, snap, opts.PairA)
		b.Key("b")
		writeLabel(b, snap, opts.PairB)
		b.Key("score").Float(score).EndObject().EndArray()
		return b.Take()
	}

	var scored []pairScore
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score := jaccard(sets[i], sets[j])
			if opts.HasThreshold && score < opts.Threshold {
				continue
			}
			scored = append(scored, pairScore{int32(i), int32(j), score})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if opts.TopK > 0 && opts.TopK < len(scored) {
		scored = scored[:opts.TopK]
	}

	b := jsonbuilder.New()
	b.StartArray()
	for _, p := range scored {
		b.StartObject().Key("a")
		writeLabel(b, snap, p.a)
		b.Key("b")
		writeLabel(b, snap, p.b)
		b.Key("score").Float(p.score).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// KNN computes Jaccard similarity between source and every other node,
// returning the top k by descending score with rank, per spec.md §4.7.
func KNN(snap *csr.Snapshot, source int32, k int) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	sets := make([]map[int32]bool, n)
	for i := 0; i < n; i++ {
		s := make(map[int32]bool)
		for _, w := range snap.OutNeighbors(int32(i)) {
			s[w] = true
		}
		sets[i] = s
	}

	var scored []pairScore
	for i := 0; i < n; i++ {
		if int32(i) == source {
			continue
		}
		scored = append(scored, pairScore{source, int32(i), jaccard(sets[source], sets[i])})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}

	b := jsonbuilder.New()
	b.StartArray()
	for rank, p := range scored {
		b.StartObject().Key("node")
		writeLabel(b, snap, p.b)
		b.Key("score").Float(p.score)
		b.Key("rank").Int(int64(rank + 1)).EndObject()
	}
	b.EndArray()
	return b.Take()
}
