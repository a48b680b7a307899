package algo

import (
	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// unionFind is a union-by-rank, path-compressed disjoint-set forest over
// node indices, the standard structure WCC's O((V+E)*alpha(V)) bound assumes.
type unionFind struct {
	parent []int32
	rank   []int8
}

func newUnionFind(n int) *unionFind {
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	return &unionFind{parent: parent, rank: make([]int8, n)}
}

func (u *unionFind) find(x int32) int32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int32) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		ra, rb = rb, ra
	case u.rank[ra] == u.rank[rb]:
		u.rank[ra]++
	}
	u.parent[rb] = ra
}

// WCC computes weakly connected components by treating every edge as
// undirected, per spec.md §4.7. Components are renumbered contiguously
// from 0.
func WCC(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for _, nb := range snap.OutNeighbors(int32(i)) {
			uf.union(int32(i), nb)
		}
	}

	roots := make([]int32, n)
	for i := 0; i < n; i++ {
		roots[i] = uf.find(int32(i))
	}
	renumbered := renumberContiguous(roots)

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("component").Int(int64(renumbered[i])).EndObject()
	}
	b.EndArray()
	return b.Take()
}

// tarjanFrame is one explicit call frame of the iterative Tarjan's algorithm,
// replacing the native recursion stack spec.md §4.7 requires avoiding
// ("implemented iteratively with an explicit call-frame stack to avoid
// native-stack blow-up on long chains").
type tarjanFrame struct {
	node     int32
	nbIdx    int
	childRet int32 // set when resuming after a child's strongconnect returns
}

// SCC computes strongly connected components with an iterative Tarjan's
// algorithm, O(V+E), renumbering components contiguously from 0.
func SCC(snap *csr.Snapshot) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount

	index := make([]int32, n)
	low := make([]int32, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var nextIndex int32
	var stack []int32
	comp := make([]int32, n)
	for i := range comp {
		comp[i] = -1
	}
	var nextComp int32

	for s := 0; s < n; s++ {
		if index[s] != -1 {
			continue
		}
		frames := []*tarjanFrame{{node: int32(s), childRet: -1}}
		for len(frames) > 0 {
			f := frames[len(frames)-1]
			v := f.node
			if index[v] == -1 {
				index[v] = nextIndex
				low[v] = nextIndex
				nextIndex++
				stack = append(stack, v)
				onStack[v] = true
			} else if f.childRet >= 0 {
				if low[f.childRet] < low[v] {
					low[v] = low[f.childRet]
				}
				f.childRet = -1
			}

			advanced := false
			nbs := snap.OutNeighbors(v)
			for f.nbIdx < len(nbs) {
				w := nbs[f.nbIdx]
				f.nbIdx++
				if index[w] == -1 {
					frames = append(frames, &tarjanFrame{node: w, childRet: -1})
					advanced = true
					break
				} else if onStack[w] {
					if index[w] < low[v] {
						low[v] = index[w]
					}
				}
			}
			if advanced {
				continue
			}

			frames = frames[:len(frames)-1]
			if low[v] == index[v] {
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = nextComp
					if w == v {
						break
					}
				}
				nextComp++
			}
			if len(frames) > 0 {
				frames[len(frames)-1].childRet = v
			}
		}
	}

	renumbered := renumberContiguous(comp)

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(i))
		b.Key("component").Int(int64(renumbered[i])).EndObject()
	}
	b.EndArray()
	return b.Take()
}
