// Package reldb is the relational-store host interface spec.md §6 treats as
// an external collaborator ("rowid semantics, auto-commit transactions,
// AUTOINCREMENT, CHECK and ON DELETE CASCADE foreign keys"). Here it is a
// concrete embedded engine built on BadgerDB (github.com/dgraph-io/
// badger/v4), the teacher's own storage dependency (pkg/storage/badger.go),
// grounded on the same byte-prefixed key scheme the teacher uses for
// nodes/edges/label indices.
//
// Per the architectural decision recorded in DESIGN.md, this is a typed
// Go table/transaction API, not a SQL engine: there is no lexer, parser, or
// executor for any SQL dialect anywhere in this package, because BadgerDB
// has no SQL of its own and the teacher's own idiom for embedded storage is
// direct Go methods (CreateNode, CreateEdge, ...), never a SQL-text
// round-trip. BadgerDB also has no foreign keys and no AUTOINCREMENT, so
// reldb supplies both: AUTOINCREMENT via badger.DB.GetSequence (the
// teacher's only monotonic-counter primitive), and ON DELETE CASCADE by
// deleting dependent rows inside the same badger.Txn (internal/catalog
// drives this). internal/catalog and internal/transform call this typed
// API directly in place of preparing and stepping SQL statements.
package reldb

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Store owns one BadgerDB handle and its per-table AUTOINCREMENT sequences.
type Store struct {
	db     *badger.DB
	mu     sync.Mutex
	seqs   map[string]*badger.Sequence
	closed bool
}

// Open opens a Store. dsn == ":memory:" (per spec.md §6) runs BadgerDB in
// InMemory mode; any other string is used as the on-disk data directory.
func Open(dsn string) (*Store, error) {
	opts := badger.DefaultOptions(dsn)
	if dsn == "" || dsn == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("reldb: open: %w", err)
	}
	return &Store{db: db, seqs: make(map[string]*badger.Sequence)}, nil
}

// Close releases the sequences and the BadgerDB handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, seq := range s.seqs {
		_ = seq.Release()
	}
	s.closed = true
	return s.db.Close()
}

// NextRowID returns the next AUTOINCREMENT value for table, starting at 1.
// One badger.Sequence is cached per table name and leased in bandwidth-100
// blocks, matching the teacher's sequence usage in pkg/storage/badger.go.
func (s *Store) NextRowID(table string) (int64, error) {
	s.mu.Lock()
	seq, ok := s.seqs[table]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("seq:"+table), 100)
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("reldb: sequence %s: %w", table, err)
		}
		s.seqs[table] = seq
	}
	s.mu.Unlock()
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("reldb: sequence %s: %w", table, err)
	}
	// AUTOINCREMENT rowids are 1-based; badger.Sequence starts at 0.
	return int64(n) + 1, nil
}

// Update runs fn inside a read-write BadgerDB transaction, committing on a
// nil return and discarding all writes otherwise. Spec.md §5: "the engine
// itself does not open transactions; it relies on the store's auto-commit" —
// Update is that auto-commit boundary, one per Cypher statement execution.
func (s *Store) Update(fn func(tx *Txn) error) error {
	return s.db.Update(func(btx *badger.Txn) error {
		return fn(&Txn{txn: btx, store: s})
	})
}

// View runs fn inside a read-only BadgerDB transaction.
func (s *Store) View(fn func(tx *Txn) error) error {
	return s.db.View(func(btx *badger.Txn) error {
		return fn(&Txn{txn: btx, store: s})
	})
}
