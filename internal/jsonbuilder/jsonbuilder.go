// Package jsonbuilder is the JSON result builder of spec.md §4.8: a growable
// byte buffer used by every graph algorithm in internal/algo to avoid string
// concatenation overhead, grounded on the teacher's preference for direct
// byte-buffer construction over intermediate structs (pkg/cypher/executor.go
// builds its own result JSON by hand rather than round-tripping through
// encoding/json for hot paths).
package jsonbuilder

import (
	"strconv"
)

// Builder is a growable byte buffer with array/object scaffolding helpers.
// All growth is amortised doubling via Go's append, matching spec.md §4.8.
type Builder struct {
	buf      []byte
	depth    []byte // stack of '[' / '{' for comma bookkeeping
	needComma []bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{buf: make([]byte, 0, 256)}
}

func (b *Builder) commaIfNeeded() {
	n := len(b.needComma)
	if n == 0 {
		return
	}
	if b.needComma[n-1] {
		b.buf = append(b.buf, ',')
	} else {
		b.needComma[n-1] = true
	}
}

// StartArray opens a JSON array.
func (b *Builder) StartArray() *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, '[')
	b.depth = append(b.depth, '[')
	b.needComma = append(b.needComma, false)
	return b
}

// EndArray closes the innermost open array.
func (b *Builder) EndArray() *Builder {
	b.buf = append(b.buf, ']')
	b.popFrame()
	return b
}

// StartObject opens a JSON object.
func (b *Builder) StartObject() *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, '{')
	b.depth = append(b.depth, '{')
	b.needComma = append(b.needComma, false)
	return b
}

// EndObject closes the innermost open object.
func (b *Builder) EndObject() *Builder {
	b.buf = append(b.buf, '}')
	b.popFrame()
	return b
}

func (b *Builder) popFrame() {
	if len(b.depth) > 0 {
		b.depth = b.depth[:len(b.depth)-1]
	}
	if len(b.needComma) > 0 {
		b.needComma = b.needComma[:len(b.needComma)-1]
	}
}

// Key writes `"name":` inside the innermost open object, inserting a
// preceding comma if this isn't the object's first key.
func (b *Builder) Key(name string) *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, '"')
	b.buf = appendEscaped(b.buf, name)
	b.buf = append(b.buf, '"', ':')
	return b
}

// String appends a quoted, escaped JSON string, handling the inter-item
// comma if inside an array.
func (b *Builder) String(s string) *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, '"')
	b.buf = appendEscaped(b.buf, s)
	b.buf = append(b.buf, '"')
	return b
}

// Int appends a JSON integer.
func (b *Builder) Int(v int64) *Builder {
	b.commaIfNeeded()
	b.buf = strconv.AppendInt(b.buf, v, 10)
	return b
}

// Float appends a JSON number from a float64.
func (b *Builder) Float(v float64) *Builder {
	b.commaIfNeeded()
	b.buf = strconv.AppendFloat(b.buf, v, 'g', -1, 64)
	return b
}

// Bool appends a JSON boolean.
func (b *Builder) Bool(v bool) *Builder {
	b.commaIfNeeded()
	b.buf = strconv.AppendBool(b.buf, v)
	return b
}

// Null appends the JSON null literal.
func (b *Builder) Null() *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, "null"...)
	return b
}

// Raw appends pre-encoded JSON text verbatim (e.g. a nested result already
// built by another Builder), handling the inter-item comma.
func (b *Builder) Raw(json string) *Builder {
	b.commaIfNeeded()
	b.buf = append(b.buf, json...)
	return b
}

// Take transfers ownership of the underlying buffer to the caller as a
// string and resets the Builder to empty, per spec.md §4.8.
func (b *Builder) Take() string {
	s := string(b.buf)
	b.buf = b.buf[:0]
	b.depth = b.depth[:0]
	b.needComma = b.needComma[:0]
	return s
}

func appendEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}
