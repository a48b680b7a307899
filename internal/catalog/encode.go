package catalog

import "github.com/orneryd/cygraph/internal/reldb"

// sourceTypeParts/targetTypeParts build the index key parts for
// edges(source_id,type)/(target_id,type), spec.md §3's required covering
// indices. The node id comes first (fixed-width, sortable) so a scan
// prefixed on just the node id half enumerates every edge touching that node
// regardless of type — used by DeleteNode's DETACH cascade.
func sourceTypeParts(nodeID int64, edgeType string) []byte {
	return append(reldb.SortableInt64(nodeID), reldb.SortableString(edgeType)...)
}

func targetTypeParts(nodeID int64, edgeType string) []byte {
	return append(reldb.SortableInt64(nodeID), reldb.SortableString(edgeType)...)
}

// normalizeProp corrects the one typed-round-trip gap encoding/json leaves
// behind: every Go number decodes from JSON as float64, so a value read back
// out of node_props_int/edge_props_int needs casting back to int64 before
// any caller compares it, formats it, or re-derives its index key (whose
// bytes differ between sortableInt64 and sortableFloat64 for the same
// numeric value). Bool and string round-trip through encoding/json exactly,
// so only the int tables need this.
func normalizeProp(table string, raw any) any {
	if raw == nil {
		return raw
	}
	switch table {
	case TableNodePropsInt, TableEdgePropsInt:
		if f, ok := raw.(float64); ok {
			return int64(f)
		}
	}
	return raw
}

// indexValueParts builds the (key_id, value) half of a property table's
// (key_id, value, entity_id) covering index (the entity_id itself is the
// trailing id reldb.Txn.PutIndex/ScanIndex append automatically).
func indexValueParts(keyID int64, value any) []byte {
	parts := reldb.SortableInt64(keyID)
	switch v := value.(type) {
	case int64:
		return append(parts, reldb.SortableInt64(v)...)
	case float64:
		return append(parts, reldb.SortableFloat64(v)...)
	case bool:
		b := int64(0)
		if v {
			b = 1
		}
		return append(parts, reldb.SortableInt64(b)...)
	case string:
		return append(parts, reldb.SortableString(v)...)
	default:
		return parts
	}
}
