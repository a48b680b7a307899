package algo

import (
	"container/heap"
	"log"
	"math"

	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// pathResult writes the {"path":[...],"distance":d,"found":bool} shape
// spec.md §4.7 fixes for Dijkstra and A*.
func pathResult(snap *csr.Snapshot, path []int32, distance float64, found bool, extra func(*jsonbuilder.Builder)) string {
	b := jsonbuilder.New()
	b.StartObject().Key("path").StartArray()
	for _, idx := range path {
		writeLabel(b, snap, idx)
	}
	b.EndArray()
	b.Key("distance").Float(distance)
	b.Key("found").Bool(found)
	if extra != nil {
		extra(b)
	}
	b.EndObject()
	return b.Take()
}

func reconstructPath(prev []int32, start, end int32) []int32 {
	if prev[end] == -1 && end != start {
		return nil
	}
	var path []int32
	for v := end; ; {
		path = append(path, v)
		if v == start {
			break
		}
		v = prev[v]
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Dijkstra finds the shortest weighted path from start to end using a
// min-heap priority queue, with weight resolved per edge by weight (nil
// means UnitWeight). Predecessors reconstruct the path; unreachable targets
// report found=false, per spec.md §4.7.
func Dijkstra(snap *csr.Snapshot, start, end int32, weight EdgeWeight) string {
	if snap == nil || snap.NodeCount == 0 {
		return pathResult(nil, nil, 0, false, nil)
	}
	if weight == nil {
		weight = UnitWeight
	}
	n := snap.NodeCount
	dist := make([]float64, n)
	prev := make([]int32, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[start] = 0

	pq := &nodeHeap{{node: start, priority: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapItem)
		v := cur.node
		if visited[v] {
			continue
		}
		visited[v] = true
		if v == end {
			break
		}
		nbs := snap.OutNeighbors(v)
		eids := snap.OutEdgeIDs(v)
		for k, w := range nbs {
			if visited[w] {
				continue
			}
			alt := dist[v] + weight(eids[k])
			if alt < dist[w] {
				dist[w] = alt
				prev[w] = v
				heap.Push(pq, heapItem{node: w, priority: alt})
			}
		}
	}

	if math.IsInf(dist[end], 1) {
		return pathResult(snap, nil, 0, false, nil)
	}
	path := reconstructPath(prev, start, end)
	return pathResult(snap, path, dist[end], true, nil)
}

// haversineKM is the great-circle distance in kilometres, grounded on the
// teacher's apoc/algo/algo.go heuristic function.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// euclidean is the straight-line A* heuristic for an x/y coordinate pair.
func euclidean(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}

// Heuristic computes the A* admissible heuristic for node v toward goal.
// NewGeoHeuristic (lat, lon) and NewEuclideanHeuristic (x, y) build one from
// a per-node coordinate lookup returning (a, b, ok); ok=false for either node
// falls back to h=0 (plain Dijkstra).
type Heuristic func(v, goal int32) float64

// NewGeoHeuristic builds a haversine-distance Heuristic from a per-node
// (lat, lon) lookup.
func NewGeoHeuristic(coord func(i int32) (lat, lon float64, ok bool)) Heuristic {
	return func(v, goal int32) float64 {
		lat1, lon1, ok1 := coord(v)
		lat2, lon2, ok2 := coord(goal)
		if !ok1 || !ok2 {
			return 0
		}
		return haversineKM(lat1, lon1, lat2, lon2)
	}
}

// NewEuclideanHeuristic builds a Euclidean-distance Heuristic from a
// per-node (x, y) lookup.
func NewEuclideanHeuristic(coord func(i int32) (x, y float64, ok bool)) Heuristic {
	return func(v, goal int32) float64 {
		x1, y1, ok1 := coord(v)
		x2, y2, ok2 := coord(goal)
		if !ok1 || !ok2 {
			return 0
		}
		return euclidean(x1, y1, x2, y2)
	}
}

// AStar extends Dijkstra with an admissible heuristic (h=0 degenerates to
// plain Dijkstra). Returns the Dijkstra shape plus "nodes_explored", per
// spec.md §4.7.
func AStar(snap *csr.Snapshot, start, end int32, weight EdgeWeight, h Heuristic) string {
	if snap == nil || snap.NodeCount == 0 {
		return pathResult(nil, nil, 0, false, nil)
	}
	if weight == nil {
		weight = UnitWeight
	}
	if h == nil {
		h = func(int32, int32) float64 { return 0 }
	}
	n := snap.NodeCount
	gScore := make([]float64, n)
	prev := make([]int32, n)
	visited := make([]bool, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		prev[i] = -1
	}
	gScore[start] = 0
	explored := 0

	pq := &nodeHeap{{node: start, priority: h(start, end)}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapItem)
		v := cur.node
		if visited[v] {
			continue
		}
		visited[v] = true
		explored++
		if v == end {
			break
		}
		nbs := snap.OutNeighbors(v)
		eids := snap.OutEdgeIDs(v)
		for k, w := range nbs {
			if visited[w] {
				continue
			}
			tentative := gScore[v] + weight(eids[k])
			if tentative < gScore[w] {
				gScore[w] = tentative
				prev[w] = v
				heap.Push(pq, heapItem{node: w, priority: tentative + h(w, end)})
			}
		}
	}

	if math.IsInf(gScore[end], 1) {
		return pathResult(snap, nil, 0, false, func(b *jsonbuilder.Builder) {
			b.Key("nodes_explored").Int(int64(explored))
		})
	}
	path := reconstructPath(prev, start, end)
	return pathResult(snap, path, gScore[end], true, func(b *jsonbuilder.Builder) {
		b.Key("nodes_explored").Int(int64(explored))
	})
}

// APSP runs Floyd-Warshall on a dense V x V matrix, O(V^3). Guarded by a
// size warning above V=10000 (spec.md §4.7); output includes only reachable
// non-diagonal pairs.
func APSP(snap *csr.Snapshot, weight EdgeWeight) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	if weight == nil {
		weight = UnitWeight
	}
	n := snap.NodeCount
	if n > 10000 {
		log.Printf("apsp: warning: graph has %d nodes, above the dense-matrix size guard of 10000", n)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i == j {
				dist[i][j] = 0
			} else {
				dist[i][j] = math.Inf(1)
			}
		}
	}
	for i := 0; i < n; i++ {
		nbs := snap.OutNeighbors(int32(i))
		eids := snap.OutEdgeIDs(int32(i))
		for k, j := range nbs {
			if w := weight(eids[k]); w < dist[i][j] {
				dist[i][j] = w
			}
		}
	}

	for k := 0; k < n; k++ {
		dk := dist[k]
		for i := 0; i < n; i++ {
			dik := dist[i][k]
			if math.IsInf(dik, 1) {
				continue
			}
			row := dist[i]
			for j := 0; j < n; j++ {
				if alt := dik + dk[j]; alt < row[j] {
					row[j] = alt
				}
			}
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || math.IsInf(dist[i][j], 1) {
				continue
			}
			b.StartObject().Key("source")
			writeLabel(b, snap, int32(i))
			b.Key("target")
			writeLabel(b, snap, int32(j))
			b.Key("distance").Float(dist[i][j]).EndObject()
		}
	}
	b.EndArray()
	return b.Take()
}

// BFS performs an iterative breadth-first traversal from start. A negative
// maxDepth means unbounded; otherwise nodes beyond maxDepth are omitted,
// per spec.md §4.7.
func BFS(snap *csr.Snapshot, start int32, maxDepth int) string {
	return traverse(snap, start, maxDepth, true)
}

// DFS performs an iterative depth-first traversal from start, pushing
// neighbours in reverse so left-to-right visit order matches a recursive
// DFS, per spec.md §4.7.
func DFS(snap *csr.Snapshot, start int32, maxDepth int) string {
	return traverse(snap, start, maxDepth, false)
}

func traverse(snap *csr.Snapshot, start int32, maxDepth int, breadthFirst bool) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	visited := make([]bool, n)
	type frame struct {
		node  int32
		depth int
	}
	var order []frame

	if breadthFirst {
		queue := []frame{{start, 0}}
		visited[start] = true
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			order = append(order, f)
			if maxDepth >= 0 && f.depth >= maxDepth {
				continue
			}
			for _, w := range snap.OutNeighbors(f.node) {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, frame{w, f.depth + 1})
				}
			}
		}
	} else {
		stack := []frame{{start, 0}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[f.node] {
				continue
			}
			visited[f.node] = true
			order = append(order, f)
			if maxDepth >= 0 && f.depth >= maxDepth {
				continue
			}
			nbs := snap.OutNeighbors(f.node)
			for i := len(nbs) - 1; i >= 0; i-- {
				w := nbs[i]
				if !visited[w] {
					stack = append(stack, frame{w, f.depth + 1})
				}
			}
		}
	}

	b := jsonbuilder.New()
	b.StartArray()
	for _, f := range order {
		b.StartObject().Key("node")
		writeLabel(b, snap, f.node)
		b.Key("depth").Int(int64(f.depth)).EndObject()
	}
	b.EndArray()
	return b.Take()
}
