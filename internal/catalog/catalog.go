package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/orneryd/cygraph/internal/convert"
	"github.com/orneryd/cygraph/internal/errs"
	"github.com/orneryd/cygraph/internal/reldb"
)

// PropertyType is the tagged-union discriminant of spec.md §3 ("Property
// value is a tagged union of {integer, text, real, boolean}"). Unlike the
// stored value itself, the type is never persisted alongside the value
// (invariant 4); it only ever exists as a Go-level argument/return value
// selecting which of the four typed tables a row lives in.
type PropertyType int

const (
	TypeInt PropertyType = iota
	TypeText
	TypeReal
	TypeBool
)

func (t PropertyType) String() string {
	switch t {
	case TypeInt:
		return "integer"
	case TypeReal:
		return "real"
	case TypeBool:
		return "boolean"
	default:
		return "text"
	}
}

// Manager is the Schema / Catalog Manager of spec.md §4.3. A Manager owns no
// transactions of its own (spec.md §4.3 "Failure semantics": "the manager
// does not open transactions itself") — every method takes a *reldb.Txn
// supplied by the caller (internal/executor), which opens one reldb.Store
// transaction per Cypher statement per spec.md §5.
type Manager struct {
	store *reldb.Store
	mu    sync.Mutex
	cache *keyCache
}

// New wraps store in a catalog Manager. Call Initialize before first use.
func New(store *reldb.Store) *Manager {
	return &Manager{store: store, cache: newKeyCache()}
}

// Initialize creates all tables and indices if absent, per spec.md §4.3.
// There is no DDL to run: reldb's key-prefix scheme (internal/reldb/keys.go)
// makes every table and index implicitly "exist" the moment it is
// addressed, the same role the teacher's BadgerEngine constructor plays for
// its own fixed key scheme (pkg/storage/badger.go's prefixNode/prefixEdge/
// ... constants, which also need no runtime DDL). Initialize is kept as an
// explicit, idempotent entry point so callers (internal/cygraph.Open) have
// a single place matching the "initialize()" operation spec.md names,
// rather than because it does any work today.
func (m *Manager) Initialize() error {
	return nil
}

// CacheStats exposes the property-key cache counters (spec.md §3).
func (m *Manager) CacheStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.stats()
}

// EnsurePropertyKey interns name, creating its property_keys row if
// necessary, and returns its stable id. Updates the cache and counts
// insertions, per spec.md §4.3. Plan-time callers (internal/transform, for
// keys appearing in SET/CREATE patterns) should call this so the runtime
// path only ever binds an already-resolved key_id (spec.md §9 "Plan-time
// key-id resolution").
func (m *Manager) EnsurePropertyKey(tx *reldb.Txn, name string) (int64, error) {
	m.mu.Lock()
	if id, ok := m.cache.lookup(name); ok {
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	id, ok, err := tx.GetUnique(IdxPropertyKeysKey, []byte(name))
	if err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if ok {
		m.mu.Lock()
		m.cache.insert(name, id)
		m.mu.Unlock()
		return id, nil
	}

	id, err = m.store.NextRowID(TablePropertyKeys)
	if err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutRow(TablePropertyKeys, id, map[string]any{"key": name}); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutUnique(IdxPropertyKeysKey, []byte(name), id); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	m.mu.Lock()
	m.cache.insert(name, id)
	m.mu.Unlock()
	return id, nil
}

// GetPropertyKeyID looks up name without interning it. Used at plan time for
// keys that only ever appear in WHERE/RETURN position (spec.md §9): if the
// key was never written, the query simply cannot match any property on it.
func (m *Manager) GetPropertyKeyID(tx *reldb.Txn, name string) (int64, bool, error) {
	m.mu.Lock()
	if id, ok := m.cache.lookup(name); ok {
		m.mu.Unlock()
		return id, true, nil
	}
	m.mu.Unlock()

	id, ok, err := tx.GetUnique(IdxPropertyKeysKey, []byte(name))
	if err != nil {
		return 0, false, errs.Wrap(errs.Store, err)
	}
	if !ok {
		return 0, false, nil
	}
	m.mu.Lock()
	m.cache.insert(name, id)
	m.mu.Unlock()
	return id, true, nil
}

// CreateNode inserts a new, label-less, property-less row into nodes and
// returns its id.
func (m *Manager) CreateNode(tx *reldb.Txn) (int64, error) {
	id, err := m.store.NextRowID(TableNodes)
	if err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutRow(TableNodes, id, map[string]any{}); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	return id, nil
}

// NodeExists reports whether nodeID is a live row in nodes.
func (m *Manager) NodeExists(tx *reldb.Txn, nodeID int64) (bool, error) {
	ok, err := tx.HasRow(TableNodes, nodeID)
	if err != nil {
		return false, errs.Wrap(errs.Store, err)
	}
	return ok, nil
}

// DeleteNode removes nodeID and, per spec.md §3 invariant 2, cascades to its
// edges, its label rows, and its per-type property rows. The relational
// store described in spec.md §6 models this cascade with
// "ON DELETE CASCADE foreign keys"; reldb has none, so DeleteNode performs
// the cascade explicitly inside the caller's transaction, which is the
// behavioral equivalent spec.md §1 asks an "external collaborator" stand-in
// to provide.
//
// DeleteNode refuses a node with live edges unless detach is true, matching
// the DELETE-without-DETACH schema error of spec.md §7.
func (m *Manager) DeleteNode(tx *reldb.Txn, nodeID int64, detach bool) error {
	hasEdges := false
	err := tx.ScanIndex(IdxEdgesSourceType, reldb.SortableInt64(nodeID), func(int64) (bool, error) {
		hasEdges = true
		return false, nil
	})
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if !hasEdges {
		err = tx.ScanIndex(IdxEdgesTargetType, reldb.SortableInt64(nodeID), func(int64) (bool, error) {
			hasEdges = true
			return false, nil
		})
		if err != nil {
			return errs.Wrap(errs.Store, err)
		}
	}
	if hasEdges && !detach {
		return errs.New(errs.Schema, "cannot delete node %d with live edges without DETACH", nodeID)
	}
	if hasEdges {
		if err := m.detachEdgesOf(tx, nodeID); err != nil {
			return err
		}
	}
	if err := m.clearNodeLabels(tx, nodeID); err != nil {
		return err
	}
	for _, tbl := range nodePropTables {
		if err := m.clearEntityProps(tx, tbl, nodeValueIndexByTable(tbl), nodeID); err != nil {
			return err
		}
	}
	if err := tx.DeleteRow(TableNodes, nodeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

func (m *Manager) detachEdgesOf(tx *reldb.Txn, nodeID int64) error {
	var ids []int64
	err := tx.ScanIndex(IdxEdgesSourceType, reldb.SortableInt64(nodeID), func(edgeID int64) (bool, error) {
		ids = append(ids, edgeID)
		return true, nil
	})
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	err = tx.ScanIndex(IdxEdgesTargetType, reldb.SortableInt64(nodeID), func(edgeID int64) (bool, error) {
		ids = append(ids, edgeID)
		return true, nil
	})
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := m.DeleteEdge(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) clearNodeLabels(tx *reldb.Txn, nodeID int64) error {
	labels, err := m.NodeLabels(tx, nodeID)
	if err != nil {
		return err
	}
	for _, label := range labels {
		if err := m.RemoveNodeLabel(tx, nodeID, label); err != nil {
			return err
		}
	}
	return nil
}

// clearEntityProps removes every row of table belonging to entityID, along
// with each row's (key_id,value,entity_id) index entry, per the cascade of
// spec.md §3 invariant 2.
func (m *Manager) clearEntityProps(tx *reldb.Txn, table string, valueIndex string, entityID int64) error {
	type kv struct {
		keyID int64
		value any
	}
	var rows []kv
	err := tx.ScanProps(table, entityID, func(keyID int64, value any) error {
		rows = append(rows, kv{keyID, normalizeProp(table, value)})
		return nil
	})
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	for _, row := range rows {
		if err := tx.DeleteProp(table, entityID, row.keyID); err != nil {
			return errs.Wrap(errs.Store, err)
		}
		if err := tx.DeleteIndex(valueIndex, indexValueParts(row.keyID, row.value), entityID); err != nil {
			return errs.Wrap(errs.Store, err)
		}
	}
	return nil
}

// AddNodeLabel attaches label to nodeID, idempotently (spec.md §4.3:
// "idempotent via INSERT OR IGNORE").
func (m *Manager) AddNodeLabel(tx *reldb.Txn, nodeID int64, label string) error {
	have, err := m.hasNodeLabel(tx, nodeID, label)
	if err != nil {
		return err
	}
	if have {
		return nil
	}
	if err := tx.PutIndex(IdxNodeLabelsLabel, reldb.SortableString(label), nodeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if err := tx.PutSetMember(tableNodeLabelsByNode, nodeID, label); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

// RemoveNodeLabel detaches label from nodeID. Idempotent: removing an
// unattached label is a no-op.
func (m *Manager) RemoveNodeLabel(tx *reldb.Txn, nodeID int64, label string) error {
	if err := tx.DeleteIndex(IdxNodeLabelsLabel, reldb.SortableString(label), nodeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if err := tx.DeleteSetMember(tableNodeLabelsByNode, nodeID, label); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

func (m *Manager) hasNodeLabel(tx *reldb.Txn, nodeID int64, label string) (bool, error) {
	labels, err := m.NodeLabels(tx, nodeID)
	if err != nil {
		return false, err
	}
	for _, l := range labels {
		if l == label {
			return true, nil
		}
	}
	return false, nil
}

// NodeLabels returns every label attached to nodeID, in no particular order.
func (m *Manager) NodeLabels(tx *reldb.Txn, nodeID int64) ([]string, error) {
	var labels []string
	err := tx.ScanSetMembers(tableNodeLabelsByNode, nodeID, func(label string) (bool, error) {
		labels = append(labels, label)
		return true, nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.Store, err)
	}
	return labels, nil
}

// NodesWithLabel scans idx_node_labels_label for every node_id carrying
// label, the covering index spec.md §3 requires for pattern lowering
// (internal/transform's node-pattern label join).
func (m *Manager) NodesWithLabel(tx *reldb.Txn, label string, visit func(nodeID int64) (bool, error)) error {
	err := tx.ScanIndex(IdxNodeLabelsLabel, reldb.SortableString(label), visit)
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

// CreateEdge inserts a new directed edge of the given type and returns its id.
func (m *Manager) CreateEdge(tx *reldb.Txn, src, tgt int64, edgeType string) (int64, error) {
	srcOK, err := m.NodeExists(tx, src)
	if err != nil {
		return 0, err
	}
	tgtOK, err := m.NodeExists(tx, tgt)
	if err != nil {
		return 0, err
	}
	if !srcOK || !tgtOK {
		return 0, errs.New(errs.Schema, "edge references a non-existent node (src=%d tgt=%d)", src, tgt)
	}
	id, err := m.store.NextRowID(TableEdges)
	if err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	row := map[string]any{"source_id": src, "target_id": tgt, "type": edgeType}
	if err := tx.PutRow(TableEdges, id, row); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutIndex(IdxEdgesSourceType, sourceTypeParts(src, edgeType), id); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutIndex(IdxEdgesTargetType, targetTypeParts(tgt, edgeType), id); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	if err := tx.PutIndex(IdxEdgesType, reldb.SortableString(edgeType), id); err != nil {
		return 0, errs.Wrap(errs.Store, err)
	}
	return id, nil
}

// Edge returns the (source, target, type) triple for edgeID.
func (m *Manager) Edge(tx *reldb.Txn, edgeID int64) (src, tgt int64, edgeType string, ok bool, err error) {
	row, found, err := tx.GetRow(TableEdges, edgeID)
	if err != nil {
		return 0, 0, "", false, errs.Wrap(errs.Store, err)
	}
	if !found {
		return 0, 0, "", false, nil
	}
	return toInt64(row["source_id"]), toInt64(row["target_id"]), toString(row["type"]), true, nil
}

// DeleteEdge removes edgeID, its index entries, and its per-type property rows.
func (m *Manager) DeleteEdge(tx *reldb.Txn, edgeID int64) error {
	src, tgt, edgeType, ok, err := m.Edge(tx, edgeID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := tx.DeleteIndex(IdxEdgesSourceType, sourceTypeParts(src, edgeType), edgeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if err := tx.DeleteIndex(IdxEdgesTargetType, targetTypeParts(tgt, edgeType), edgeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if err := tx.DeleteIndex(IdxEdgesType, reldb.SortableString(edgeType), edgeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	for _, tbl := range edgePropTables {
		if err := m.clearEntityProps(tx, tbl, edgeValueIndexByTable(tbl), edgeID); err != nil {
			return err
		}
	}
	if err := tx.DeleteRow(TableEdges, edgeID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

// SetNodeProperty assigns value (of the given type) to (nodeID, keyID).
// Semantics per spec.md §4.3 invariant 1: delete any existing row for
// (entity_id, key_id) across all four typed tables, then insert into the
// table matching typ. A strategy that tries to UPSERT in place loses the
// invariant under a type change (spec.md §9); this always pays the full
// delete-then-insert cost instead.
func (m *Manager) SetNodeProperty(tx *reldb.Txn, nodeID, keyID int64, typ PropertyType, value any) error {
	return m.setProperty(tx, nodePropTables[:], nodeValueIndexByTable, nodeID, keyID, typ, value)
}

// SetEdgeProperty is the edge analogue of SetNodeProperty. spec.md §9 flags
// the source's edge-property path as asymmetric (INSERT OR REPLACE into one
// table, without clearing the other three) and instructs implementations to
// "fix by applying the node path's delete-then-insert policy across all four
// edge-property tables" — done here by sharing setProperty with SetNodeProperty.
func (m *Manager) SetEdgeProperty(tx *reldb.Txn, edgeID, keyID int64, typ PropertyType, value any) error {
	return m.setProperty(tx, edgePropTables[:], edgeValueIndexByTable, edgeID, keyID, typ, value)
}

func (m *Manager) setProperty(tx *reldb.Txn, tables []string, valueIndexOf func(string) string, entityID, keyID int64, typ PropertyType, value any) error {
	target := tables[int(typ)]
	for _, tbl := range tables {
		if tbl == target {
			continue
		}
		old, found, err := tx.GetProp(tbl, entityID, keyID)
		if err != nil {
			return errs.Wrap(errs.Store, err)
		}
		if !found {
			continue
		}
		if err := tx.DeleteProp(tbl, entityID, keyID); err != nil {
			return errs.Wrap(errs.Store, err)
		}
		if err := tx.DeleteIndex(valueIndexOf(tbl), indexValueParts(keyID, normalizeProp(tbl, old)), entityID); err != nil {
			return errs.Wrap(errs.Store, err)
		}
	}
	// Replace any existing row in the target table too (SET n.k = v2 after
	// SET n.k = v1 with the same type, spec.md §8 round-trip law).
	old, found, err := tx.GetProp(target, entityID, keyID)
	if err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if found {
		if err := tx.DeleteIndex(valueIndexOf(target), indexValueParts(keyID, normalizeProp(target, old)), entityID); err != nil {
			return errs.Wrap(errs.Store, err)
		}
	}
	if err := tx.PutProp(target, entityID, keyID, value); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	if err := tx.PutIndex(valueIndexOf(target), indexValueParts(keyID, value), entityID); err != nil {
		return errs.Wrap(errs.Store, err)
	}
	return nil
}

// GetNodeProperty reads (nodeID, keyID) across the four typed tables,
// returning the first (and per invariant 1, only) hit.
func (m *Manager) GetNodeProperty(tx *reldb.Txn, nodeID, keyID int64) (any, bool, error) {
	return m.getProperty(tx, nodePropTables[:], nodeID, keyID)
}

// GetEdgeProperty is the edge analogue of GetNodeProperty.
func (m *Manager) GetEdgeProperty(tx *reldb.Txn, edgeID, keyID int64) (any, bool, error) {
	return m.getProperty(tx, edgePropTables[:], edgeID, keyID)
}

func (m *Manager) getProperty(tx *reldb.Txn, tables []string, entityID, keyID int64) (any, bool, error) {
	for _, tbl := range tables {
		v, ok, err := tx.GetProp(tbl, entityID, keyID)
		if err != nil {
			return nil, false, errs.Wrap(errs.Store, err)
		}
		if ok {
			return normalizeProp(tbl, v), true, nil
		}
	}
	return nil, false, nil
}

// RemoveNodeProperty deletes the row for (nodeID, keyID), idempotently
// (spec.md §8 scenario 6: "Running REMOVE n.nonexistent succeeds with
// properties_set=0"). Returns true if a row was actually removed.
func (m *Manager) RemoveNodeProperty(tx *reldb.Txn, nodeID, keyID int64) (bool, error) {
	return m.removeProperty(tx, nodePropTables[:], nodeValueIndexByTable, nodeID, keyID)
}

// RemoveEdgeProperty is the edge analogue of RemoveNodeProperty.
func (m *Manager) RemoveEdgeProperty(tx *reldb.Txn, edgeID, keyID int64) (bool, error) {
	return m.removeProperty(tx, edgePropTables[:], edgeValueIndexByTable, edgeID, keyID)
}

func (m *Manager) removeProperty(tx *reldb.Txn, tables []string, valueIndexOf func(string) string, entityID, keyID int64) (bool, error) {
	removed := false
	for _, tbl := range tables {
		old, found, err := tx.GetProp(tbl, entityID, keyID)
		if err != nil {
			return false, errs.Wrap(errs.Store, err)
		}
		if !found {
			continue
		}
		if err := tx.DeleteProp(tbl, entityID, keyID); err != nil {
			return false, errs.Wrap(errs.Store, err)
		}
		if err := tx.DeleteIndex(valueIndexOf(tbl), indexValueParts(keyID, normalizeProp(tbl, old)), entityID); err != nil {
			return false, errs.Wrap(errs.Store, err)
		}
		removed = true
	}
	return removed, nil
}

// NodeProperties returns every property of nodeID as a name→value map,
// resolving key ids back to key strings; used by whole-node RETURN
// projection (spec.md §4.4 RETURN lowering: "{id, labels, properties}").
func (m *Manager) NodeProperties(tx *reldb.Txn, nodeID int64) (map[string]any, error) {
	return m.entityProperties(tx, nodePropTables[:], nodeID)
}

// EdgeProperties is the edge analogue of NodeProperties.
func (m *Manager) EdgeProperties(tx *reldb.Txn, edgeID int64) (map[string]any, error) {
	return m.entityProperties(tx, edgePropTables[:], edgeID)
}

func (m *Manager) entityProperties(tx *reldb.Txn, tables []string, entityID int64) (map[string]any, error) {
	out := map[string]any{}
	for _, tbl := range tables {
		err := tx.ScanProps(tbl, entityID, func(keyID int64, value any) error {
			name, err := m.keyName(tx, keyID)
			if err != nil {
				return err
			}
			out[name] = normalizeProp(tbl, value)
			return nil
		})
		if err != nil {
			return nil, errs.Wrap(errs.Store, err)
		}
	}
	return out, nil
}

// PropertyKeys returns the key names present on entityID across the four
// tables for table family tables — the lowering target of the keys(n)
// built-in (spec.md §4.4: "a keys(n) function lowers to the union of the
// four typed tables ... this replaced an earlier EXISTS+UNION ALL
// construction that produced empty arrays").
func (m *Manager) PropertyKeys(tx *reldb.Txn, tables []string, entityID int64) ([]string, error) {
	var names []string
	for _, tbl := range tables {
		err := tx.ScanProps(tbl, entityID, func(keyID int64, _ any) error {
			name, err := m.keyName(tx, keyID)
			if err != nil {
				return err
			}
			names = append(names, name)
			return nil
		})
		if err != nil {
			return nil, errs.Wrap(errs.Store, err)
		}
	}
	return names, nil
}

// NodeKeys returns the property-key names present on nodeID, the
// convenience entry point internal/transform's keys(n) lowering and map
// projections (n{.*}) call instead of reaching into the unexported
// nodePropTables array directly.
func (m *Manager) NodeKeys(tx *reldb.Txn, nodeID int64) ([]string, error) {
	return m.PropertyKeys(tx, nodePropTables[:], nodeID)
}

// EdgeKeys is the relationship analogue of NodeKeys.
func (m *Manager) EdgeKeys(tx *reldb.Txn, edgeID int64) ([]string, error) {
	return m.PropertyKeys(tx, edgePropTables[:], edgeID)
}

func (m *Manager) keyName(tx *reldb.Txn, keyID int64) (string, error) {
	row, ok, err := tx.GetRow(TablePropertyKeys, keyID)
	if err != nil {
		return "", errs.Wrap(errs.Store, err)
	}
	if !ok {
		return "", errs.New(errs.Schema, "property_keys: unknown key id %d", keyID)
	}
	return toString(row["key"]), nil
}

// InferPropertyType classifies a literal string per spec.md §4.3:
// true/false → boolean; parses-as-integer → integer; parses-as-double →
// real; otherwise text.
func InferPropertyType(text string) (PropertyType, any) {
	switch strings.ToLower(text) {
	case "true":
		return TypeBool, true
	case "false":
		return TypeBool, false
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return TypeInt, i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return TypeReal, f
	}
	return TypeText, text
}

// PropertyTypeOf classifies an already-typed Go value, used when a literal
// arrives pre-parsed from the AST rather than as raw text.
func PropertyTypeOf(value any) (PropertyType, error) {
	switch value.(type) {
	case bool:
		return TypeBool, nil
	case int64, int:
		return TypeInt, nil
	case float64:
		return TypeReal, nil
	case string:
		return TypeText, nil
	default:
		return 0, fmt.Errorf("catalog: unsupported property value type %T", value)
	}
}

func toInt64(v any) int64 {
	i, _ := convert.ToInt64(v)
	return i
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
