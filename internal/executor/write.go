package executor

import (
	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/reldb"
	"github.com/orneryd/cygraph/internal/transform"
)

// createClause runs one CREATE clause for every input row, per spec.md
// §4.4's node-then-label-then-edge ordering: each node in a path is created
// (and its labels attached) before the edges connecting it are created, so
// an edge never references a not-yet-materialized endpoint.
func (e *engine) createClause(tx *reldb.Txn, clause *ast.Create, rows []transform.Row, c *counters) ([]transform.Row, error) {
	out := make([]transform.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		for _, path := range clause.Patterns {
			if err := e.createPath(tx, path, r, c); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (e *engine) createPath(tx *reldb.Txn, path *ast.Path, row transform.Row, c *counters) error {
	ids := make([]int64, len(path.Nodes))
	for i, n := range path.Nodes {
		if n.Variable != "" {
			if bound, ok := row[n.Variable]; ok {
				if ref, ok := bound.(transform.NodeRef); ok {
					ids[i] = ref.ID
					continue
				}
			}
		}
		id, err := e.cat.CreateNode(tx)
		if err != nil {
			return err
		}
		c.nodesCreated++
		for _, label := range n.Labels {
			if err := e.cat.AddNodeLabel(tx, id, label); err != nil {
				return err
			}
		}
		if err := e.setNodeProps(tx, id, n.Properties, row, c); err != nil {
			return err
		}
		if n.Variable != "" {
			row[n.Variable] = transform.NodeRef{ID: id}
		}
		ids[i] = id
	}

	relIDs := make([]int64, len(path.Rels))
	for i, r := range path.Rels {
		src, tgt := ids[i], ids[i+1]
		if r.Direction == ast.DirLeft {
			src, tgt = tgt, src
		}
		typ := "RELATED"
		if len(r.Types) > 0 {
			typ = r.Types[0]
		}
		edgeID, err := e.cat.CreateEdge(tx, src, tgt, typ)
		if err != nil {
			return err
		}
		c.relsCreated++
		if err := e.setEdgeProps(tx, edgeID, r.Properties, row, c); err != nil {
			return err
		}
		if r.Variable != "" {
			row[r.Variable] = transform.RelRef{ID: edgeID, Source: src, Target: tgt, Type: typ}
		}
		relIDs[i] = edgeID
	}

	if path.Variable != "" {
		row[path.Variable] = transform.PathRef{NodeIDs: ids, RelIDs: relIDs}
	}
	return nil
}

func (e *engine) setNodeProps(tx *reldb.Txn, nodeID int64, props *ast.MapLiteral, row transform.Row, c *counters) error {
	if props == nil {
		return nil
	}
	for i, key := range props.Keys {
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, props.Values[i])
		if err != nil {
			return err
		}
		if err := e.putNodeProp(tx, nodeID, key, val, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) setEdgeProps(tx *reldb.Txn, edgeID int64, props *ast.MapLiteral, row transform.Row, c *counters) error {
	if props == nil {
		return nil
	}
	for i, key := range props.Keys {
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, props.Values[i])
		if err != nil {
			return err
		}
		if err := e.putEdgeProp(tx, edgeID, key, val, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) putNodeProp(tx *reldb.Txn, nodeID int64, key string, val any, c *counters) error {
	keyID, err := e.cat.EnsurePropertyKey(tx, key)
	if err != nil {
		return err
	}
	typ, err := catalog.PropertyTypeOf(val)
	if err != nil {
		return err
	}
	if err := e.cat.SetNodeProperty(tx, nodeID, keyID, typ, val); err != nil {
		return err
	}
	c.propertiesSet++
	return nil
}

func (e *engine) putEdgeProp(tx *reldb.Txn, edgeID int64, key string, val any, c *counters) error {
	keyID, err := e.cat.EnsurePropertyKey(tx, key)
	if err != nil {
		return err
	}
	typ, err := catalog.PropertyTypeOf(val)
	if err != nil {
		return err
	}
	if err := e.cat.SetEdgeProperty(tx, edgeID, keyID, typ, val); err != nil {
		return err
	}
	c.propertiesSet++
	return nil
}

// mergeClause implements MERGE as create-if-missing: the pattern is matched
// as a read; a zero-row result falls back to CREATE plus ON CREATE SET,
// a non-empty result runs ON MATCH SET against every matched row, per
// spec.md §4.4's "MERGE as CREATE-if-missing via zero-row branch".
func (e *engine) mergeClause(tx *reldb.Txn, clause *ast.Merge, rows []transform.Row, c *counters) ([]transform.Row, error) {
	out := make([]transform.Row, 0, len(rows))
	for _, row := range rows {
		matched, err := e.expandPath(tx, clause.Pattern, row)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			r := row.Clone()
			if err := e.createPath(tx, clause.Pattern, r, c); err != nil {
				return nil, err
			}
			if err := e.applySetItems(tx, clause.OnCreate, r, c); err != nil {
				return nil, err
			}
			out = append(out, r)
			continue
		}
		for _, m := range matched {
			if err := e.applySetItems(tx, clause.OnMatch, m, c); err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *engine) applySetItems(tx *reldb.Txn, items []*ast.SetItem, row transform.Row, c *counters) error {
	for _, item := range items {
		if err := e.applySetItem(tx, item, row, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) setClause(tx *reldb.Txn, clause *ast.Set, rows []transform.Row, c *counters) error {
	for _, row := range rows {
		if err := e.applySetItems(tx, clause.Items, row, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) applySetItem(tx *reldb.Txn, item *ast.SetItem, row transform.Row, c *counters) error {
	bound, ok := row[item.Variable]
	if !ok {
		return nil
	}
	switch item.Kind {
	case ast.SetLabel:
		n, ok := bound.(transform.NodeRef)
		if !ok {
			return nil
		}
		for _, label := range item.Labels {
			if err := e.cat.AddNodeLabel(tx, n.ID, label); err != nil {
				return err
			}
		}
	case ast.SetProperty:
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, item.Value)
		if err != nil {
			return err
		}
		return e.setEntityProp(tx, bound, item.Property, val, c)
	case ast.SetMergeMap, ast.SetVariable:
		val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, item.Value)
		if err != nil {
			return err
		}
		m, ok := val.(map[string]any)
		if !ok {
			return nil
		}
		for k, v := range m {
			if err := e.setEntityProp(tx, bound, k, v, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *engine) setEntityProp(tx *reldb.Txn, bound any, key string, val any, c *counters) error {
	switch ref := bound.(type) {
	case transform.NodeRef:
		return e.putNodeProp(tx, ref.ID, key, val, c)
	case transform.RelRef:
		return e.putEdgeProp(tx, ref.ID, key, val, c)
	}
	return nil
}

func (e *engine) removeClause(tx *reldb.Txn, clause *ast.Remove, rows []transform.Row, c *counters) error {
	for _, row := range rows {
		for _, item := range clause.Items {
			bound, ok := row[item.Variable]
			if !ok {
				continue
			}
			if len(item.Labels) > 0 {
				n, ok := bound.(transform.NodeRef)
				if !ok {
					continue
				}
				for _, label := range item.Labels {
					if err := e.cat.RemoveNodeLabel(tx, n.ID, label); err != nil {
						return err
					}
				}
				continue
			}
			if item.Property == "" {
				continue
			}
			switch ref := bound.(type) {
			case transform.NodeRef:
				keyID, ok, err := e.cat.GetPropertyKeyID(tx, item.Property)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				removed, err := e.cat.RemoveNodeProperty(tx, ref.ID, keyID)
				if err != nil {
					return err
				}
				if removed {
					c.propertiesSet++
				}
			case transform.RelRef:
				keyID, ok, err := e.cat.GetPropertyKeyID(tx, item.Property)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				removed, err := e.cat.RemoveEdgeProperty(tx, ref.ID, keyID)
				if err != nil {
					return err
				}
				if removed {
					c.propertiesSet++
				}
			}
		}
	}
	return nil
}

func (e *engine) deleteClause(tx *reldb.Txn, clause *ast.Delete, rows []transform.Row, c *counters) error {
	for _, row := range rows {
		for _, expr := range clause.Expressions {
			val, err := transform.Eval(&transform.EvalContext{Row: row, Store: e.storeFor(tx)}, expr)
			if err != nil {
				return err
			}
			switch ref := val.(type) {
			case transform.NodeRef:
				incident := map[int64]bool{}
				if clause.Detach {
					for _, idx := range []string{catalog.IdxEdgesSourceType, catalog.IdxEdgesTargetType} {
						if err := tx.ScanIndex(idx, reldb.SortableInt64(ref.ID), func(edgeID int64) (bool, error) {
							incident[edgeID] = true
							return true, nil
						}); err != nil {
							return err
						}
					}
				}
				if err := e.cat.DeleteNode(tx, ref.ID, clause.Detach); err != nil {
					return err
				}
				c.nodesDeleted++
				c.relsDeleted += int64(len(incident))
			case transform.RelRef:
				if err := e.cat.DeleteEdge(tx, ref.ID); err != nil {
					return err
				}
				c.relsDeleted++
			}
		}
	}
	return nil
}

func (e *engine) storeFor(tx *reldb.Txn) transform.Store {
	return &storeAdapter{tx: tx, cat: e.cat}
}
