package executor

import (
	"fmt"
	"sort"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/reldb"
	"github.com/orneryd/cygraph/internal/transform"
)

// projectionSpec is the shared shape of RETURN and WITH: a list of
// projected items plus DISTINCT/ORDER BY/SKIP/LIMIT, per spec.md §4.4's
// observation that WITH is "a RETURN that feeds the next clause instead of
// terminating the query".
type projectionSpec struct {
	Items    []*ast.ReturnItem
	Distinct bool
	OrderBy  []*ast.OrderItem
	Skip     ast.Expression
	Limit    ast.Expression
}

// projectRows evaluates spec against rows and returns a fresh set of Rows
// keyed by each item's alias, preserving NodeRef/RelRef/PathRef wrapper
// values unconverted so a following clause still sees their Kind, per the
// WITH boundary kind-preservation requirement of spec.md §3.
func (e *engine) projectRows(tx *reldb.Txn, rows []transform.Row, spec *projectionSpec) ([]string, []transform.Row, error) {
	names := e.columnNames(spec.Items, rows)
	grouped := containsAggregate(spec.Items)

	var out []transform.Row
	if grouped {
		groups := map[string]*aggGroup{}
		var order []string
		for _, row := range rows {
			key, keyVals, err := e.groupKey(tx, row, spec.Items)
			if err != nil {
				return nil, nil, err
			}
			g, ok := groups[key]
			if !ok {
				g = newAggGroup(spec.Items, keyVals)
				groups[key] = g
				order = append(order, key)
			}
			if err := g.add(tx, e, row, spec.Items); err != nil {
				return nil, nil, err
			}
		}
		for _, key := range order {
			out = append(out, groups[key].finish(names))
		}
	} else {
		for _, row := range rows {
			r, err := e.projectOne(tx, row, spec.Items, names)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, r)
		}
	}

	if spec.Distinct {
		out = dedupRows(out, names)
	}
	if len(spec.OrderBy) > 0 {
		e.sortProjected(tx, out, spec.OrderBy)
	}
	out = applySkipLimit(out, spec.Skip, spec.Limit, tx, e)
	return names, out, nil
}

func (e *engine) columnNames(items []*ast.ReturnItem, rows []transform.Row) []string {
	var names []string
	for _, item := range items {
		if item.Star {
			var keys []string
			if len(rows) > 0 {
				for k := range rows[0] {
					keys = append(keys, k)
				}
				sort.Strings(keys)
			}
			names = append(names, keys...)
			continue
		}
		name := item.Alias
		if name == "" {
			name = exprLabel(item.Expression)
		}
		names = append(names, name)
	}
	return names
}

// exprLabel falls back to a readable column name for unaliased expressions,
// per spec.md §4.4's column-name regression note that list-valued results
// like "range(0,3) AS nums" must keep their alias; identifiers and function
// calls get their natural name when no alias is given.
func exprLabel(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.FunctionCall:
		return e.Name
	case *ast.PropertyAccess:
		return exprLabel(e.Target) + "." + e.Property
	default:
		return "expr"
	}
}

func (e *engine) projectOne(tx *reldb.Txn, row transform.Row, items []*ast.ReturnItem, names []string) (transform.Row, error) {
	out := transform.Row{}
	idx := 0
	for _, item := range items {
		if item.Star {
			for k, v := range row {
				out[k] = v
			}
			idx += len(row)
			continue
		}
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, item.Expression)
		if err != nil {
			return nil, err
		}
		name := names[idx]
		out[name] = val
		idx++
	}
	return out, nil
}

func containsAggregate(items []*ast.ReturnItem) bool {
	for _, item := range items {
		if !item.Star && transform.ContainsAggregate(item.Expression) {
			return true
		}
	}
	return false
}

type aggGroup struct {
	keyVals map[string]any
	aggs    map[string]*transform.Aggregator
}

func newAggGroup(items []*ast.ReturnItem, keyVals map[string]any) *aggGroup {
	g := &aggGroup{keyVals: keyVals, aggs: map[string]*transform.Aggregator{}}
	for _, item := range items {
		if item.Star {
			continue
		}
		if call, ok := item.Expression.(*ast.FunctionCall); ok && transform.IsAggregate(call.Name) {
			g.aggs[itemKey(item)] = transform.NewAggregator(call)
		}
	}
	return g
}

func itemKey(item *ast.ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return exprLabel(item.Expression)
}

func (g *aggGroup) add(tx *reldb.Txn, e *engine, row transform.Row, items []*ast.ReturnItem) error {
	for _, item := range items {
		if item.Star {
			continue
		}
		call, ok := item.Expression.(*ast.FunctionCall)
		if !ok || !transform.IsAggregate(call.Name) {
			continue
		}
		agg := g.aggs[itemKey(item)]
		isStar := len(call.Args) == 0
		var val any
		if !isStar {
			v, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, call.Args[0])
			if err != nil {
				return err
			}
			val = v
		}
		agg.Add(val, isStar)
	}
	return nil
}

func (g *aggGroup) finish(names []string) transform.Row {
	out := transform.Row{}
	for name, v := range g.keyVals {
		out[name] = v
	}
	for key, agg := range g.aggs {
		out[key] = agg.Result()
	}
	return out
}

func (e *engine) groupKey(tx *reldb.Txn, row transform.Row, items []*ast.ReturnItem) (string, map[string]any, error) {
	keyVals := map[string]any{}
	keyParts := ""
	for _, item := range items {
		if item.Star {
			continue
		}
		if call, ok := item.Expression.(*ast.FunctionCall); ok && transform.IsAggregate(call.Name) {
			continue
		}
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, item.Expression)
		if err != nil {
			return "", nil, err
		}
		name := itemKey(item)
		keyVals[name] = val
		keyParts += fmt.Sprintf("%v\x1f", val)
	}
	return keyParts, keyVals, nil
}

func dedupRows(rows []transform.Row, names []string) []transform.Row {
	seen := map[string]bool{}
	var out []transform.Row
	for _, r := range rows {
		key := ""
		for _, n := range names {
			key += fmt.Sprintf("%v\x1f", r[n])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func (e *engine) sortProjected(tx *reldb.Txn, rows []transform.Row, orderBy []*ast.OrderItem) {
	var keyFns []func(transform.Row) any
	var desc []bool
	for _, o := range orderBy {
		expr := o.Expression
		keyFns = append(keyFns, func(r transform.Row) any {
			v, _ := transform.Eval(&transform.EvalContext{Row: r, Store: e.storeFor(tx)}, expr)
			return v
		})
		desc = append(desc, o.Descending)
	}
	transform.SortRows(rows, keyFns, desc)
}

func applySkipLimit(rows []transform.Row, skipExpr, limitExpr ast.Expression, tx *reldb.Txn, e *engine) []transform.Row {
	skip := evalIntOrZero(skipExpr, tx, e)
	if skip > 0 {
		if skip >= len(rows) {
			return nil
		}
		rows = rows[skip:]
	}
	if limitExpr != nil {
		limit := evalIntOrZero(limitExpr, tx, e)
		if limit < len(rows) {
			rows = rows[:limit]
		}
	}
	return rows
}

func evalIntOrZero(expr ast.Expression, tx *reldb.Txn, e *engine) int {
	if expr == nil {
		return 0
	}
	v, err := transform.Eval(&transform.EvalContext{Store: e.storeFor(tx)}, expr)
	if err != nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// materialize converts a Row's Kind-tagged wrapper values into the plain
// JSON-ready shape spec.md §4.4 describes for RETURN output: nodes and
// relationships become {id, labels/type, properties} maps, paths become
// their node/relationship id lists.
func (e *engine) materialize(tx *reldb.Txn, v any) (any, error) {
	switch ref := v.(type) {
	case transform.NodeRef:
		labels, err := e.cat.NodeLabels(tx, ref.ID)
		if err != nil {
			return nil, err
		}
		props, err := e.cat.NodeProperties(tx, ref.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": ref.ID, "labels": labels, "properties": props}, nil
	case transform.RelRef:
		props, err := e.cat.EdgeProperties(tx, ref.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": ref.ID, "type": ref.Type, "source": ref.Source, "target": ref.Target, "properties": props}, nil
	case transform.PathRef:
		return map[string]any{"nodes": ref.NodeIDs, "relationships": ref.RelIDs}, nil
	case []any:
		out := make([]any, len(ref))
		for i, item := range ref {
			m, err := e.materialize(tx, item)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e *engine) materializeRows(tx *reldb.Txn, names []string, rows []transform.Row) ([][]any, error) {
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		cols := make([]any, len(names))
		for i, name := range names {
			m, err := e.materialize(tx, row[name])
			if err != nil {
				return nil, err
			}
			cols[i] = m
		}
		data = append(data, cols)
	}
	return data, nil
}

// unwindClause expands Expression (evaluated once per input row) into one
// output row per list element, bound to Variable.
func (e *engine) unwindClause(tx *reldb.Txn, clause *ast.Unwind, rows []transform.Row) ([]transform.Row, error) {
	var out []transform.Row
	for _, row := range rows {
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, clause.Expression)
		if err != nil {
			return nil, err
		}
		list, ok := val.([]any)
		if !ok {
			if val == nil {
				continue
			}
			list = []any{val}
		}
		for _, item := range list {
			r := row.Clone()
			r[clause.Variable] = item
			out = append(out, r)
		}
	}
	return out, nil
}

// filterRows keeps only rows for which where evaluates truthy, per Cypher's
// three-valued WHERE semantics (NULL and false both drop the row).
func (e *engine) filterRows(tx *reldb.Txn, rows []transform.Row, where ast.Expression) ([]transform.Row, error) {
	if where == nil {
		return rows, nil
	}
	var out []transform.Row
	for _, row := range rows {
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, where)
		if err != nil {
			return nil, err
		}
		if b, ok := val.(bool); ok && b {
			out = append(out, row)
		}
	}
	return out, nil
}
