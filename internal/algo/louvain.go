package algo

import (
	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// LouvainOptions carries the resolution parameter gamma, default 1.0 per
// spec.md §4.7.
type LouvainOptions struct {
	Resolution float64
}

// Louvain runs the local-moving phase of modularity optimisation: each node
// starts alone, then repeatedly moves to the neighbouring community giving
// the best positive deltaQ = k_{i,in}/m - gamma*Sigma_tot*k_i/(2m^2) against
// the baseline of removing i from its current community, up to 100 passes,
// stopping early when a pass makes no moves. Edges are treated as undirected
// by summing in- and out-degrees, per spec.md §4.7. Communities are
// renumbered contiguously before returning.
func Louvain(snap *csr.Snapshot, opts LouvainOptions) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	gamma := opts.Resolution
	if gamma <= 0 {
		gamma = 1.0
	}
	n := snap.NodeCount

	adj := make([]map[int32]float64, n)
	for i := range adj {
		adj[i] = make(map[int32]float64)
	}
	m := 0.0
	for v := 0; v < n; v++ {
		for _, w := range snap.OutNeighbors(int32(v)) {
			adj[v][w]++
			adj[w][int32(v)]++
			m++
		}
	}
	if m == 0 {
		m = 1
	}

	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, wgt := range adj[i] {
			sum += wgt
		}
		deg[i] = sum
	}

	comm := make([]int32, n)
	sigmaTot := make([]float64, n)
	for i := range comm {
		comm[i] = int32(i)
		sigmaTot[i] = deg[i]
	}

	twoM2 := 2 * m * m
	neighborWeight := make(map[int32]float64, 16)

	for pass := 0; pass < 100; pass++ {
		moved := false
		for i := 0; i < n; i++ {
			current := comm[i]
			for k := range neighborWeight {
				delete(neighborWeight, k)
			}
			for w, wgt := range adj[i] {
				if w == int32(i) {
					continue
				}
				neighborWeight[comm[w]] += wgt
			}
			if len(neighborWeight) == 0 {
				continue
			}

			sigmaTot[current] -= deg[i]
			currentLinked := neighborWeight[current]
			bestGain := (currentLinked/m - gamma*sigmaTot[current]*deg[i]/twoM2) -
				(0 - gamma*0*deg[i]/twoM2)
			bestComm := current

			for c, linked := range neighborWeight {
				if c == current {
					continue
				}
				gain := linked/m - gamma*sigmaTot[c]*deg[i]/twoM2
				if gain > bestGain {
					bestGain = gain
					bestComm = c
				}
			}

			sigmaTot[bestComm] += deg[i]
			if bestComm != current {
				comm[i] = bestComm
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	renumbered := renumberContiguous(comm)

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
