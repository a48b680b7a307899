// Package catalog is the Schema / Catalog Manager of spec.md §4.3: it owns
// the relational schema, interns property keys, and provides typed node/edge
// property writes. It is grounded on the teacher's pkg/storage/schema.go
// SchemaManager (struct-plus-RWMutex state, typed index/constraint structs,
// IndexStats-style counters) generalized from Neo4j-style uniqueness/range
// constraints to the EAV table family spec.md §3 fixes by name.
package catalog

// Table names, fixed by spec.md §3's "catalog invariant": exactly these
// tables exist, with these column shapes, for the lifetime of a database.
const (
	TableNodes         = "nodes"
	TableEdges         = "edges"
	TablePropertyKeys  = "property_keys"
	TableNodeLabels    = "node_labels"
	TableNodePropsInt  = "node_props_int"
	TableNodePropsText = "node_props_text"
	TableNodePropsReal = "node_props_real"
	TableNodePropsBool = "node_props_bool"
	TableEdgePropsInt  = "edge_props_int"
	TableEdgePropsText = "edge_props_text"
	TableEdgePropsReal = "edge_props_real"
	TableEdgePropsBool = "edge_props_bool"
)

var nodePropTables = [4]string{TableNodePropsInt, TableNodePropsText, TableNodePropsReal, TableNodePropsBool}
var edgePropTables = [4]string{TableEdgePropsInt, TableEdgePropsText, TableEdgePropsReal, TableEdgePropsBool}

// Index names, matching spec.md §3's "required covering indices" list.
const (
	IdxEdgesSourceType  = "idx_edges_source_type"
	IdxEdgesTargetType  = "idx_edges_target_type"
	IdxEdgesType        = "idx_edges_type"
	IdxNodeLabelsLabel  = "idx_node_labels_label"
	IdxPropertyKeysKey  = "idx_property_keys_key" // UNIQUE
	IdxNodePropsInt     = "idx_node_props_int_key_value"
	IdxNodePropsText    = "idx_node_props_text_key_value"
	IdxNodePropsReal    = "idx_node_props_real_key_value"
	IdxNodePropsBool    = "idx_node_props_bool_key_value"
	IdxEdgePropsInt     = "idx_edge_props_int_key_value"
	IdxEdgePropsText    = "idx_edge_props_text_key_value"
	IdxEdgePropsReal    = "idx_edge_props_real_key_value"
	IdxEdgePropsBool    = "idx_edge_props_bool_key_value"
)

func nodeValueIndex(t PropertyType) string {
	switch t {
	case TypeInt:
		return IdxNodePropsInt
	case TypeReal:
		return IdxNodePropsReal
	case TypeBool:
		return IdxNodePropsBool
	default:
		return IdxNodePropsText
	}
}

func edgeValueIndex(t PropertyType) string {
	switch t {
	case TypeInt:
		return IdxEdgePropsInt
	case TypeReal:
		return IdxEdgePropsReal
	case TypeBool:
		return IdxEdgePropsBool
	default:
		return IdxEdgePropsText
	}
}

// tableNodeLabelsByNode is the node_id → {labels} access path that
// complements the (label, node_id) covering index spec.md §3 requires
// explicitly; it is not itself one of the "required covering indices" but is
// needed for labels(n), DETACH DELETE, and idempotent SET label.
const tableNodeLabelsByNode = "node_labels_by_node"

func nodeValueIndexByTable(table string) string {
	switch table {
	case TableNodePropsInt:
		return IdxNodePropsInt
	case TableNodePropsReal:
		return IdxNodePropsReal
	case TableNodePropsBool:
		return IdxNodePropsBool
	default:
		return IdxNodePropsText
	}
}

func edgeValueIndexByTable(table string) string {
	switch table {
	case TableEdgePropsInt:
		return IdxEdgePropsInt
	case TableEdgePropsReal:
		return IdxEdgePropsReal
	case TableEdgePropsBool:
		return IdxEdgePropsBool
	default:
		return IdxEdgePropsText
	}
}
