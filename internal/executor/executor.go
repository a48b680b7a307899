package executor

import (
	"encoding/json"
	"errors"

	"github.com/orneryd/cygraph/internal/algo"
	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/reldb"
	"github.com/orneryd/cygraph/internal/transform"
)

// errNoMatch signals "this candidate fails the pattern", used internally by
// match.go to prune a branch without aborting the enclosing scan.
var errNoMatch = errors.New("executor: candidate does not match pattern")

// engine is the executor's receiver, bound to one catalog for the lifetime
// of a store; it carries no per-query state so the same engine serves every
// Execute call.
type engine struct {
	cat *catalog.Manager
}

// Execute runs query against store, per spec.md §4.5: it opens one write
// transaction, walks query.Parts in order, materializes projected rows in a
// read transaction after the commit, and returns the single Result
// every execution produces (success, projected rows, and side-effect
// counters), or success=false with error_message populated on failure.
func Execute(store *reldb.Store, cat *catalog.Manager, query *ast.Query, params map[string]any) (*Result, error) {
	e := &engine{cat: cat}
	result := &Result{Success: true}
	c := &counters{}

	var allRows []transform.Row
	var columnNames []string

	err := store.Update(func(tx *reldb.Txn) error {
		for i, part := range query.Parts {
			names, rows, err := e.runPart(tx, part, params, c)
			if err != nil {
				return err
			}
			if i == 0 {
				columnNames = names
				allRows = rows
				continue
			}
			allRows = append(allRows, rows...)
			if i-1 < len(query.UnionAll) && !query.UnionAll[i-1] {
				allRows = dedupRows(allRows, columnNames)
			}
		}
		return nil
	})
	if err != nil {
		return &Result{Success: false, ErrorMessage: err.Error()}, nil
	}

	c.apply(result)
	result.ColumnNames = columnNames
	if len(columnNames) > 0 {
		data, err := e.materializeRowsView(store, columnNames, allRows)
		if err != nil {
			return &Result{Success: false, ErrorMessage: err.Error()}, nil
		}
		result.Data = data
	}
	return result, nil
}

// materializeRowsView opens a fresh read transaction to resolve node/edge
// labels and properties for the final JSON-shaped projection, after the
// write transaction that produced allRows has already committed.
func (e *engine) materializeRowsView(store *reldb.Store, names []string, rows []transform.Row) ([][]any, error) {
	var data [][]any
	err := store.View(func(tx *reldb.Txn) error {
		d, err := e.materializeRows(tx, names, rows)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	return data, err
}

func (e *engine) runPart(tx *reldb.Txn, part *ast.SinglePartQuery, params map[string]any, c *counters) ([]string, []transform.Row, error) {
	if part.Return != nil {
		if plan, ok := transform.DetectAlgorithm(part.Return); ok {
			names, rows, err := e.runAlgorithm(tx, plan, params)
			if err != nil {
				return nil, nil, err
			}
			return names, rows, nil
		}
	}

	rows := []transform.Row{{}}
	for _, clause := range part.Clauses {
		var err error
		switch cl := clause.(type) {
		case *ast.Match:
			rows, err = e.matchClause(tx, cl, rows)
		case *ast.Create:
			rows, err = e.createClause(tx, cl, rows, c)
		case *ast.Merge:
			rows, err = e.mergeClause(tx, cl, rows, c)
		case *ast.Set:
			err = e.setClause(tx, cl, rows, c)
		case *ast.Remove:
			err = e.removeClause(tx, cl, rows, c)
		case *ast.Delete:
			err = e.deleteClause(tx, cl, rows, c)
		case *ast.Unwind:
			rows, err = e.unwindClause(tx, cl, rows)
		case *ast.With:
			spec := &projectionSpec{Items: cl.Items, Distinct: cl.Distinct, OrderBy: cl.OrderBy, Skip: cl.Skip, Limit: cl.Limit}
			var names []string
			names, rows, err = e.projectRows(tx, rows, spec)
			if err == nil && cl.Where != nil {
				rows, err = e.filterRows(tx, rows, cl.Where)
			}
			_ = names
		case *ast.Foreach:
			err = e.foreachClause(tx, cl, rows, c)
		case *ast.Call:
			// Standalone procedure calls beyond algorithm detection are out
			// of scope; YIELD-less calls are accepted as no-ops.
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if part.Return == nil {
		return nil, rows, nil
	}
	spec := &projectionSpec{Items: part.Return.Items, Distinct: part.Return.Distinct, OrderBy: part.Return.OrderBy, Skip: part.Return.Skip, Limit: part.Return.Limit}
	names, projected, err := e.projectRows(tx, rows, spec)
	if err != nil {
		return nil, nil, err
	}
	return names, projected, nil
}

func (e *engine) foreachClause(tx *reldb.Txn, clause *ast.Foreach, rows []transform.Row, c *counters) error {
	for _, row := range rows {
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, clause.List)
		if err != nil {
			return err
		}
		list, ok := val.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			sub := row.Clone()
			sub[clause.Variable] = item
			subRows := []transform.Row{sub}
			for _, inner := range clause.Clauses {
				var err error
				switch cl := inner.(type) {
				case *ast.Create:
					subRows, err = e.createClause(tx, cl, subRows, c)
				case *ast.Merge:
					subRows, err = e.mergeClause(tx, cl, subRows, c)
				case *ast.Set:
					err = e.setClause(tx, cl, subRows, c)
				case *ast.Remove:
					err = e.removeClause(tx, cl, subRows, c)
				case *ast.Delete:
					err = e.deleteClause(tx, cl, subRows, c)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// runAlgorithm loads a CSR snapshot and dispatches plan to internal/algo,
// wrapping the resulting JSON array as a single-row, single-column result
// whose column name is the RETURN item's alias, per spec.md §4.4's
// "algorithm detection" note that these queries bypass pattern matching
// entirely.
func (e *engine) runAlgorithm(tx *reldb.Txn, plan *transform.AlgoPlan, params map[string]any) ([]string, []transform.Row, error) {
	snap, err := csr.Load(tx, e.cat)
	if err != nil {
		return nil, nil, err
	}
	args := make([]any, len(plan.Args))
	for i, a := range plan.Args {
		v, err := transform.Eval(&transform.EvalContext{Params: params, Store: e.storeFor(tx)}, a)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}

	raw := e.dispatchAlgorithm(tx, snap, plan.Name, args)
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		parsed = raw
	}
	return []string{plan.Alias}, []transform.Row{{plan.Alias: parsed}}, nil
}

func argInt(args []any, i int, def int) int {
	if i >= len(args) || args[i] == nil {
		return def
	}
	switch n := args[i].(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func argFloat(args []any, i int, def float64) float64 {
	if i >= len(args) || args[i] == nil {
		return def
	}
	switch n := args[i].(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return def
}

func argString(args []any, i int, def string) string {
	if i >= len(args) || args[i] == nil {
		return def
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return def
}

func (e *engine) nodeIndex(snap *csr.Snapshot, args []any, i int) (int32, bool) {
	if i >= len(args) || args[i] == nil {
		return 0, false
	}
	id, ok := args[i].(int64)
	if !ok {
		return 0, false
	}
	return snap.IndexOf(id)
}

func (e *engine) weightFunc(tx *reldb.Txn, propName string) algo.EdgeWeight {
	if propName == "" {
		return algo.UnitWeight
	}
	keyID, ok, err := e.cat.GetPropertyKeyID(tx, propName)
	if err != nil || !ok {
		return algo.UnitWeight
	}
	return func(edgeID int64) float64 {
		v, found, err := e.cat.GetEdgeProperty(tx, edgeID, keyID)
		if err != nil || !found {
			return 1
		}
		switch n := v.(type) {
		case int64:
			return float64(n)
		case float64:
			return n
		default:
			return 1
		}
	}
}

func (e *engine) dispatchAlgorithm(tx *reldb.Txn, snap *csr.Snapshot, name string, args []any) string {
	switch name {
	case "pagerank":
		opts := algo.DefaultPageRankOptions()
		opts.Damping = argFloat(args, 0, opts.Damping)
		opts.MaxIter = transform.ClampIterations(argInt(args, 1, opts.MaxIter))
		return algo.PageRank(snap, opts)
	case "toppagerank":
		opts := algo.DefaultPageRankOptions()
		opts.TopK = transform.ClampTopK(argInt(args, 0, 10))
		return algo.PageRank(snap, opts)
	case "personalizedpagerank":
		opts := algo.DefaultPageRankOptions()
		if len(args) > 0 {
			if list, ok := args[0].([]any); ok {
				for _, v := range list {
					if id, ok := v.(int64); ok {
						if idx, ok := snap.IndexOf(id); ok {
							opts.Seeds = append(opts.Seeds, idx)
						}
					}
				}
			}
		}
		return algo.PageRank(snap, opts)
	case "labelpropagation":
		return algo.LabelPropagation(snap, algo.LabelPropagationOptions{MaxIter: transform.ClampIterations(argInt(args, 0, 100))})
	case "louvain":
		return algo.Louvain(snap, algo.LouvainOptions{Resolution: argFloat(args, 0, 1.0)})
	case "wcc":
		return algo.WCC(snap)
	case "scc":
		return algo.SCC(snap)
	case "betweennesscentrality":
		return algo.Betweenness(snap)
	case "closenesscentrality":
		return algo.Closeness(snap)
	case "eigenvectorcentrality":
		return algo.Eigenvector(snap, transform.ClampIterations(argInt(args, 0, 100)))
	case "degreecentrality":
		return algo.Degree(snap)
	case "dijkstra":
		start, ok1 := e.nodeIndex(snap, args, 0)
		end, ok2 := e.nodeIndex(snap, args, 1)
		if !ok1 || !ok2 {
			return emptyAlgoResult()
		}
		return algo.Dijkstra(snap, start, end, e.weightFunc(tx, argString(args, 2, "")))
	case "astar":
		start, ok1 := e.nodeIndex(snap, args, 0)
		end, ok2 := e.nodeIndex(snap, args, 1)
		if !ok1 || !ok2 {
			return emptyAlgoResult()
		}
		return algo.AStar(snap, start, end, e.weightFunc(tx, argString(args, 2, "")), func(int32, int32) float64 { return 0 })
	case "apsp", "allpairsshortestpath":
		return algo.APSP(snap, e.weightFunc(tx, argString(args, 0, "")))
	case "bfs":
		start, ok := e.nodeIndex(snap, args, 0)
		if !ok {
			return emptyAlgoResult()
		}
		return algo.BFS(snap, start, argInt(args, 1, -1))
	case "dfs":
		start, ok := e.nodeIndex(snap, args, 0)
		if !ok {
			return emptyAlgoResult()
		}
		return algo.DFS(snap, start, argInt(args, 1, -1))
	case "trianglecount":
		return algo.TriangleCount(snap)
	case "nodesimilarity":
		opts := algo.SimilarityOptions{}
		if a, ok := e.nodeIndex(snap, args, 0); ok {
			if b, ok := e.nodeIndex(snap, args, 1); ok {
				opts.PairA, opts.PairB, opts.HasPair = a, b, true
			}
		}
		return algo.NodeSimilarity(snap, opts)
	case "knn":
		source, ok := e.nodeIndex(snap, args, 0)
		if !ok {
			return emptyAlgoResult()
		}
		return algo.KNN(snap, source, transform.ClampTopK(argInt(args, 1, 10)))
	default:
		return emptyAlgoResult()
	}
}

func emptyAlgoResult() string { return "[]" }
