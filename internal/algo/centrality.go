package algo

import (
	"math"

	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// Betweenness computes Brandes' betweenness centrality, O(V*E), directed
// (no /2 normalisation), per spec.md §4.7. For each source it runs a BFS
// that records shortest-path counts sigma and predecessor lists, then
// accumulates dependency scores in reverse visitation order — the teacher's
// apoc/algo/algo.go BetweennessCentrality follows the identical shape over
// *Node pointers; this is the same algorithm over CSR indices.
func Betweenness(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	score := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int32, n)
	delta := make([]float64, n)
	var preds [][]int32

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
		}
		if preds == nil || len(preds) != n {
			preds = make([][]int32, n)
		}
		for i := range preds {
			preds[i] = preds[i][:0]
		}

		sigma[s] = 1
		dist[s] = 0
		queue := []int32{int32(s)}
		var stack []int32

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range snap.OutNeighbors(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				if sigma[w] != 0 {
					delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
				}
			}
			if int(w) != s {
				score[w] += delta[w]
			}
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("score").Float(score[i]).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// Closeness computes harmonic closeness centrality (handles disconnected
// graphs): for each source, BFS treating edges as undirected, score =
// (sum 1/d(s,t)) / (n-1). Single-node graphs score 0, per spec.md §4.7.
func Closeness(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	score := make([]float64, n)

	if n > 1 {
		dist := make([]int32, n)
		for s := 0; s < n; s++ {
			for i := range dist {
				dist[i] = -1
			}
			dist[s] = 0
			queue := []int32{int32(s)}
			for len(queue) > 0 {
				v := queue[0]
				queue = queue[1:]
				for _, w := range undirectedNeighbors(snap, v) {
					if dist[w] < 0 {
						dist[w] = dist[v] + 1
						queue = append(queue, w)
					}
				}
			}
			sum := 0.0
			for t := 0; t < n; t++ {
				if t != s && dist[t] > 0 {
					sum += 1.0 / float64(dist[t])
				}
			}
			score[s] = sum / float64(n-1)
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("score").Float(score[i]).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// Eigenvector computes eigenvector centrality by power iteration on the
// transposed adjacency (incoming edges), with L2 normalisation each step.
// Converges when max |delta| < 1e-10; a degenerate zero-norm iteration
// resets to the uniform vector, per spec.md §4.7.
func Eigenvector(snap *csr.Snapshot, maxIter int) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	if maxIter <= 0 {
		maxIter = 100
	}
	uniform := 1.0 / math.Sqrt(float64(n))
	x := make([]float64, n)
	for i := range x {
		x[i] = uniform
	}
	next := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		for i := range next {
			next[i] = 0
		}
		for v := 0; v < n; v++ {
			for _, u := range snap.InNeighbors(int32(v)) {
				next[v] += x[u]
			}
		}
		norm := 0.0
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			for i := range next {
				next[i] = uniform
			}
			norm = 1
		} else {
			for i := range next {
				next[i] /= norm
			}
		}
		maxDelta := 0.0
		for i := range x {
			if d := math.Abs(next[i] - x[i]); d > maxDelta {
				maxDelta = d
			}
		}
		x, next = next, x
		if maxDelta < 1e-10 {
			break
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("score").Float(x[i]).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// Degree emits in-degree and out-degree for every node in a single pass
// over the CSR offset arrays, per spec.md §4.7.
func Degree(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < snap.NodeCount; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("in_degree").Int(int64(snap.InDegree(int32(i))))
		b.Key("out_degree").Int(int64(snap.OutDegree(int32(i))))
		b.EndObject()
	}
	b.EndArray()
	return b.Take()
}

// undirectedNeighbors returns v's neighbours with edge direction ignored,
// used by Closeness, which spec.md §4.7 defines "treating edges as
// undirected" (TriangleCount builds its own sets via buildUndirectedSets).
func undirectedNeighbors(snap *csr.Snapshot, v int32) []int32 {
	out := snap.OutNeighbors(v)
	in := snap.InNeighbors(v)
	combined := make([]int32, 0, len(out)+len(in))
	combined = append(combined, out...)
	combined = append(combined, in...)
	return combined
}
