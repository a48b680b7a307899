// Package cygraph is the Core API of spec.md §6: Create/Free/Execute/
// FreeResult become idiomatic Go Open/(*Engine).Close/(*Engine).Execute,
// with Result garbage-collected like any other Go value rather than handed
// back through an explicit free call.
package cygraph

import (
	"context"
	"log"
	"os"

	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/executor"
	"github.com/orneryd/cygraph/internal/parser"
	"github.com/orneryd/cygraph/internal/reldb"
	"github.com/orneryd/cygraph/internal/telemetry"
)

// Result is re-exported so callers never import internal/executor directly.
type Result = executor.Result

// Engine is one opened graph: a BadgerDB-backed store plus its schema
// catalog, per spec.md §6's external-interface description.
type Engine struct {
	store *reldb.Store
	cat   *catalog.Manager
}

// Open creates or reopens the store at dsn and runs catalog bootstrap
// (table/index declarations), per spec.md §4.3's "schema bootstrap runs
// once, at Create/Open time".
func Open(dsn string) (*Engine, error) {
	store, err := reldb.Open(dsn)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(store)
	if err := cat.Initialize(); err != nil {
		store.Close()
		return nil, err
	}
	return &Engine{store: store, cat: cat}, nil
}

// Close releases the underlying store's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Execute parses query and runs it to completion, returning the single
// Result value spec.md §4.5 describes. Parse errors surface as
// success=false with the parser's *errs.Error message rather than a Go
// error, matching the rest of the pipeline's failure reporting.
func (e *Engine) Execute(query string, params map[string]any) (*Result, error) {
	ctx, end := telemetry.StartSpan(context.Background(), "cygraph.parse")
	q, err := parser.Parse(query)
	end(err)
	if err != nil {
		if os.Getenv("GRAPHQLITE_DEBUG") != "" {
			log.Printf("cygraph: parse error: %v", err)
		}
		return &Result{Success: false, ErrorMessage: err.Error()}, nil
	}

	_, end = telemetry.StartSpan(ctx, "cygraph.execute")
	result, err := executor.Execute(e.store, e.cat, q, params)
	end(err)
	if err != nil {
		if os.Getenv("GRAPHQLITE_DEBUG") != "" {
			log.Printf("cygraph: execute error: %v", err)
		}
		return nil, err
	}
	return result, nil
}
