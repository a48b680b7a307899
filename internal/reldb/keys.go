package reldb

import (
	"encoding/binary"
	"math"
)

// Key layout: every key is ASCII table/index name, a NUL separator, then a
// binary-encoded suffix. Grounded on the teacher's single-byte table prefixes
// (pkg/storage/badger.go: prefixNode = 0x01, prefixEdge = 0x02, ...); using
// the table name itself instead of an assigned byte keeps the scheme open
// for the twelve EAV tables of spec.md §3 without a second lookup table.
const sep = 0x00

// rowKey addresses one row of table by its AUTOINCREMENT id.
func rowKey(table string, id int64) []byte {
	k := make([]byte, 0, len(table)+1+8)
	k = append(k, table...)
	k = append(k, sep)
	k = binary.BigEndian.AppendUint64(k, uint64(id))
	return k
}

// rowPrefix is the scan prefix for every row of table.
func rowPrefix(table string) []byte {
	k := make([]byte, 0, len(table)+1)
	k = append(k, table...)
	k = append(k, sep)
	return k
}

func idOf(key []byte, table string) int64 {
	suffix := key[len(table)+1:]
	return int64(binary.BigEndian.Uint64(suffix))
}

// idxKey builds a secondary-index key: index name, NUL, the index's sortable
// key parts (already order-preserving byte slices), NUL, the row id. The
// trailing id makes the key unique even when many rows share the same index
// parts (spec.md §3 covering indices: edges(source_id,type),
// node_labels(label,node_id), property-table (key_id,value,entity_id) —
// none of these are declared UNIQUE).
func idxKey(index string, parts []byte, id int64) []byte {
	k := make([]byte, 0, len(index)+1+len(parts)+1+8)
	k = append(k, index...)
	k = append(k, sep)
	k = append(k, parts...)
	k = append(k, sep)
	k = binary.BigEndian.AppendUint64(k, uint64(id))
	return k
}

// idxPrefix scopes a scan to one index, optionally narrowed to a key-parts
// prefix (e.g. all rows for a given label, or a given (key_id) within a
// property table).
func idxPrefix(index string, parts []byte) []byte {
	k := make([]byte, 0, len(index)+1+len(parts))
	k = append(k, index...)
	k = append(k, sep)
	k = append(k, parts...)
	return k
}

// uniqueKey builds a key for a UNIQUE index (property_keys.key TEXT UNIQUE
// NOT NULL, spec.md §3) where the parts alone, with no trailing id, must map
// to exactly one row.
func uniqueKey(index string, parts []byte) []byte {
	return idxPrefix(index, parts)
}

// sortableInt64 encodes v so that BadgerDB's lexicographic byte ordering of
// the result matches numeric ordering, including negative values: flipping
// the sign bit turns two's-complement ordering into unsigned ordering. No
// library in the retrieved pack provides an order-preserving integer
// encoding (BadgerDB, the only storage dependency, works on raw bytes with
// no codec of its own), so this one narrow helper is hand-rolled stdlib
// (encoding/binary, math) rather than grounded on a third-party package;
// documented in DESIGN.md.
func sortableInt64(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// sortableFloat64 encodes v with the standard order-preserving float
// transform: flip the sign bit for non-negatives, flip every bit for
// negatives. Same justification as sortableInt64.
func sortableFloat64(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, bits)
	return b
}

// propKey addresses the single EAV property row for (entityID, keyID) inside
// one of the eight typed property tables of spec.md §3 (node_props_{int,
// text,real,bool}, edge_props_{int,text,real,bool}). Invariant 1 requires a
// property for a given (entity,key) to live in at most one of the four
// sibling tables; propKey is identical across all four so a caller can probe
// or delete the same logical slot in each.
func propKey(table string, entityID, keyID int64) []byte {
	k := make([]byte, 0, len(table)+1+16)
	k = append(k, table...)
	k = append(k, sep)
	k = append(k, sortableInt64(entityID)...)
	k = append(k, sortableInt64(keyID)...)
	return k
}

// propEntityPrefix scopes a scan to every property row of table for entityID,
// used by keys(n) and by whole-entity property projection.
func propEntityPrefix(table string, entityID int64) []byte {
	k := make([]byte, 0, len(table)+1+8)
	k = append(k, table...)
	k = append(k, sep)
	k = append(k, sortableInt64(entityID)...)
	return k
}

func keyIDOfPropKey(key []byte) int64 {
	tail := key[len(key)-8:]
	u := beUint64(tail) ^ (1 << 63)
	return int64(u)
}

// SortableInt64, SortableFloat64 and SortableString are the exported forms
// of the order-preserving encoders above, used by internal/catalog to build
// the index key parts for edges(source_id,type)/(target_id,type)/(type) and
// the (key_id,value,entity_id) property-table indices of spec.md §3.
func SortableInt64(v int64) []byte     { return sortableInt64(v) }
func SortableFloat64(v float64) []byte { return sortableFloat64(v) }
func SortableString(v string) []byte   { return sortableString(v) }

func sortableString(v string) []byte {
	b := make([]byte, 0, len(v)+1)
	b = append(b, v...)
	b = append(b, sep)
	return b
}

// setMemberKey/setMemberPrefix address one (ownerID, member) pair in a
// string-set table, e.g. node_labels' node_id → {labels} direction.
func setMemberKey(table string, ownerID int64, member string) []byte {
	k := setMemberPrefix(table, ownerID)
	return append(k, member...)
}

func setMemberPrefix(table string, ownerID int64) []byte {
	k := make([]byte, 0, len(table)+1+8)
	k = append(k, table...)
	k = append(k, sep)
	k = binary.BigEndian.AppendUint64(k, uint64(ownerID))
	return k
}
