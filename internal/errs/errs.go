// Package errs provides the structured error kinds the query pipeline
// surfaces, from lexing through execution.
//
// The teacher package (github.com/orneryd/nornicdb, pkg/storage/types.go)
// uses flat sentinel errors (ErrNotFound, ErrInvalidData, ...) because its
// storage engine only needs a handful of outcomes. The Cypher pipeline needs
// more detail than a sentinel carries — a syntax error without a source
// position is not actionable — so Error adds Kind and Pos to the same
// plain-struct-plus-sentinel style.
package errs

import "fmt"

// Kind identifies which stage of the pipeline produced an error.
type Kind int

const (
	// Lexical covers bad numbers, unterminated strings, stray characters.
	Lexical Kind = iota
	// Syntax covers a token that did not satisfy the parser at a position.
	Syntax
	// Semantic covers unknown functions, arity/kind mismatches, undefined
	// variables, and kind conflicts across WITH boundaries.
	Semantic
	// Schema covers property type mismatches, FK violations, and DELETE
	// without DETACH on a node with live edges.
	Schema
	// Store covers any error propagated from the relational store.
	Store
	// Resource covers allocation failure and arithmetic overflow in
	// recursive CTE bounds.
	Resource
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Semantic:
		return "semantic"
	case Schema:
		return "schema"
	case Store:
		return "store"
	case Resource:
		return "resource"
	default:
		return "unknown"
	}
}

// Pos is a source position: line and column are both 1-based.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is the error type returned by every pipeline stage.
type Error struct {
	Kind    Kind
	Message string
	Pos     Pos
	Cause   error
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no source position.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds an Error carrying a source position.
func At(kind Kind, pos Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Wrap attaches kind and cause without reformatting the underlying message.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}
