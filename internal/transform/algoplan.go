package transform

import (
	"strings"

	"github.com/orneryd/cygraph/internal/ast"
)

// algorithmNames is the fixed vocabulary spec.md §4.4 lists: "pageRank,
// topPageRank, personalizedPageRank, labelPropagation, louvain, wcc, scc,
// betweennessCentrality, closenessCentrality, eigenvectorCentrality,
// degreeCentrality, dijkstra, astar, apsp/allPairsShortestPath, bfs, dfs,
// triangleCount, nodeSimilarity, knn".
var algorithmNames = map[string]bool{
	"pagerank": true, "toppagerank": true, "personalizedpagerank": true,
	"labelpropagation": true, "louvain": true, "wcc": true, "scc": true,
	"betweennesscentrality": true, "closenesscentrality": true,
	"eigenvectorcentrality": true, "degreecentrality": true,
	"dijkstra": true, "astar": true, "apsp": true, "allpairsshortestpath": true,
	"bfs": true, "dfs": true, "trianglecount": true, "nodesimilarity": true,
	"knn": true,
}

// AlgoPlan is the algorithm-call descriptor spec.md §4.4 names: "the
// algorithm id plus parsed, bounds-checked parameters".
type AlgoPlan struct {
	Name  string
	Args  []ast.Expression
	Alias string
}

// clampInt enforces spec.md §4.4's parameter bounds: "iteration counts
// clamped to [1, 100]; top-k clamped to [1, 1000]".
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampIterations clamps an algorithm's iteration-count parameter.
func ClampIterations(n int) int { return clampInt(n, 1, 100) }

// ClampTopK clamps an algorithm's top-k parameter.
func ClampTopK(k int) int { return clampInt(k, 1, 1000) }

// DetectAlgorithm inspects ret's first (or sole) item: if it is a call to a
// known graph-algorithm function, it returns the AlgoPlan describing it;
// otherwise ok is false and the query proceeds down the pattern-matching
// path, per spec.md §4.4: "Before SQL lowering, the transform inspects the
// first (or sole) RETURN item ... Unknown function names propagate to the
// [pattern-matching] path as user-defined function calls."
func DetectAlgorithm(ret *ast.Return) (*AlgoPlan, bool) {
	if ret == nil || len(ret.Items) == 0 {
		return nil, false
	}
	item := ret.Items[0]
	call, ok := item.Expression.(*ast.FunctionCall)
	if !ok {
		return nil, false
	}
	name := strings.ToLower(call.Name)
	if !algorithmNames[name] {
		return nil, false
	}
	alias := item.Alias
	if alias == "" {
		alias = call.Name
	}
	return &AlgoPlan{Name: name, Args: call.Args, Alias: alias}, true
}
