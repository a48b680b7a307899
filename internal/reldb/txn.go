package reldb

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Txn is a single BadgerDB transaction, read-write or read-only depending on
// whether it came from Store.Update or Store.View.
type Txn struct {
	txn   *badger.Txn
	store *Store
}

// PutRow serializes row as JSON and stores it at table's row key for id,
// matching the teacher's json.Marshal-per-entity scheme (pkg/storage/badger.go).
func (t *Txn) PutRow(table string, id int64, row map[string]any) error {
	buf, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("reldb: encode row %s/%d: %w", table, id, err)
	}
	return t.txn.Set(rowKey(table, id), buf)
}

// GetRow returns the row and true, or a nil map and false if absent.
func (t *Txn) GetRow(table string, id int64) (map[string]any, bool, error) {
	item, err := t.txn.Get(rowKey(table, id))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reldb: get row %s/%d: %w", table, id, err)
	}
	var row map[string]any
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &row)
	})
	if err != nil {
		return nil, false, fmt.Errorf("reldb: decode row %s/%d: %w", table, id, err)
	}
	return row, true, nil
}

// DeleteRow removes a row. Deleting an absent row is a no-op, matching
// BadgerDB's own Delete semantics.
func (t *Txn) DeleteRow(table string, id int64) error {
	return t.txn.Delete(rowKey(table, id))
}

// HasRow reports whether id exists in table, without decoding its value.
func (t *Txn) HasRow(table string, id int64) (bool, error) {
	_, err := t.txn.Get(rowKey(table, id))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ScanTable visits every row of table in ascending id order. visit returns
// (continue, error); returning continue=false stops the scan early without
// an error (used by LIMIT-bounded callers).
func (t *Txn) ScanTable(table string, visit func(id int64, row map[string]any) (bool, error)) error {
	prefix := rowPrefix(table)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		id := idOf(item.KeyCopy(nil), table)
		var row map[string]any
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
		if err != nil {
			return fmt.Errorf("reldb: decode row %s/%d: %w", table, id, err)
		}
		cont, err := visit(id, row)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// PutIndex records one (parts, id) entry in a non-unique secondary index.
func (t *Txn) PutIndex(index string, parts []byte, id int64) error {
	return t.txn.Set(idxKey(index, parts, id), nil)
}

// DeleteIndex removes one (parts, id) entry from a non-unique secondary index.
func (t *Txn) DeleteIndex(index string, parts []byte, id int64) error {
	return t.txn.Delete(idxKey(index, parts, id))
}

// ScanIndex visits every id recorded under index whose key parts share
// prefix, in ascending key order (which is ascending value order when parts
// was built from the sortable* encoders in keys.go).
func (t *Txn) ScanIndex(index string, prefix []byte, visit func(id int64) (bool, error)) error {
	full := idxPrefix(index, prefix)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = full
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(full); it.ValidForPrefix(full); it.Next() {
		key := it.Item().KeyCopy(nil)
		id := int64(beUint64(key[len(key)-8:]))
		cont, err := visit(id)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// PutUnique records the single id owning a UNIQUE index entry (property_keys.key).
func (t *Txn) PutUnique(index string, parts []byte, id int64) error {
	return t.txn.Set(uniqueKey(index, parts), sortableInt64(id))
}

// GetUnique looks up the id owning a UNIQUE index entry, if any.
func (t *Txn) GetUnique(index string, parts []byte) (int64, bool, error) {
	item, err := t.txn.Get(uniqueKey(index, parts))
	if err == badger.ErrKeyNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	// sortableInt64 flips the sign bit on encode; flip it back on decode.
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	u := beUint64(raw) ^ (1 << 63)
	return int64(u), true, nil
}

// propValue is the on-disk shape of one EAV property row. A bare JSON scalar
// would be ambiguous between, say, the text "true" and the boolean true;
// wrapping it keeps decode unambiguous without a type tag living alongside
// the value (spec.md §3 invariant 4: "no stored value carries a type tag").
type propValue struct {
	V any `json:"v"`
}

// PutProp writes the single property row for (entityID, keyID) in table.
func (t *Txn) PutProp(table string, entityID, keyID int64, value any) error {
	buf, err := json.Marshal(propValue{V: value})
	if err != nil {
		return fmt.Errorf("reldb: encode prop %s (%d,%d): %w", table, entityID, keyID, err)
	}
	return t.txn.Set(propKey(table, entityID, keyID), buf)
}

// GetProp reads the property row for (entityID, keyID) in table, if present.
func (t *Txn) GetProp(table string, entityID, keyID int64) (any, bool, error) {
	item, err := t.txn.Get(propKey(table, entityID, keyID))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var pv propValue
	err = item.Value(func(val []byte) error { return json.Unmarshal(val, &pv) })
	if err != nil {
		return nil, false, err
	}
	return pv.V, true, nil
}

// DeleteProp removes the property row for (entityID, keyID) in table, if any.
// Deleting an absent row is a no-op (REMOVE idempotence, spec.md §8 scenario 6).
func (t *Txn) DeleteProp(table string, entityID, keyID int64) error {
	return t.txn.Delete(propKey(table, entityID, keyID))
}

// ScanProps visits every property row belonging to entityID in table.
func (t *Txn) ScanProps(table string, entityID int64, visit func(keyID int64, value any) error) error {
	prefix := propEntityPrefix(table, entityID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		keyID := keyIDOfPropKey(item.KeyCopy(nil))
		var pv propValue
		err := item.Value(func(val []byte) error { return json.Unmarshal(val, &pv) })
		if err != nil {
			return err
		}
		if err := visit(keyID, pv.V); err != nil {
			return err
		}
	}
	return nil
}

// PutSetMember, DeleteSetMember and ScanSetMembers store and enumerate a set
// of arbitrary string members keyed by an int64 owner id — used by
// internal/catalog for node_labels' (node_id → labels) access path, the
// companion direction to the (label → node_id) covering index spec.md §3
// requires explicitly.
func (t *Txn) PutSetMember(table string, ownerID int64, member string) error {
	return t.txn.Set(setMemberKey(table, ownerID, member), nil)
}

func (t *Txn) DeleteSetMember(table string, ownerID int64, member string) error {
	return t.txn.Delete(setMemberKey(table, ownerID, member))
}

func (t *Txn) ScanSetMembers(table string, ownerID int64, visit func(member string) (bool, error)) error {
	prefix := setMemberPrefix(table, ownerID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		member := string(key[len(prefix):])
		cont, err := visit(member)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

func beUint64(b []byte) uint64 {
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return u
}
