package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/parser"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := parser.Parse(`MATCH (p:Person) WHERE p.age > 28 RETURN p.name, p.age`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 1)

	part := q.Parts[0]
	require.Len(t, part.Clauses, 1)
	m, ok := part.Clauses[0].(*ast.Match)
	require.True(t, ok)
	assert.False(t, m.Optional)
	require.NotNil(t, m.Where)
	require.Len(t, m.Patterns, 1)

	require.NotNil(t, part.Return)
	require.Len(t, part.Return.Items, 2)
}

func TestParseOptionalMatch(t *testing.T) {
	q, err := parser.Parse(`MATCH (p:Person) OPTIONAL MATCH (p)-[:KNOWS]->(f) RETURN p, f`)
	require.NoError(t, err)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 2)
	_, ok := part.Clauses[0].(*ast.Match)
	require.True(t, ok)
	second, ok := part.Clauses[1].(*ast.Match)
	require.True(t, ok)
	assert.True(t, second.Optional)
}

func TestParseCreateWithRelationship(t *testing.T) {
	q, err := parser.Parse(
		`CREATE (a:Person {name: "Alice"})-[:KNOWS {since: 2020}]->(b:Person {name: "Bob"})`)
	require.NoError(t, err)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 1)
	c, ok := part.Clauses[0].(*ast.Create)
	require.True(t, ok)
	require.Len(t, c.Patterns, 1)
	require.Len(t, c.Patterns[0].Rels, 1)
	rel := c.Patterns[0].Rels[0]
	require.Len(t, rel.Types, 1)
	assert.Equal(t, "KNOWS", rel.Types[0])
}

func TestParseMergeOnCreateOnMatch(t *testing.T) {
	q, err := parser.Parse(
		`MERGE (p:Person {name: "Dana"}) ON CREATE SET p.age = 22 ON MATCH SET p.age = 23`)
	require.NoError(t, err)
	m, ok := q.Parts[0].Clauses[0].(*ast.Merge)
	require.True(t, ok)
	require.Len(t, m.OnCreate, 1)
	require.Len(t, m.OnMatch, 1)
}

func TestParseWithOrderBySkipLimit(t *testing.T) {
	q, err := parser.Parse(
		`MATCH (p:Person) WITH p ORDER BY p.age DESC SKIP 1 LIMIT 10 RETURN p.name`)
	require.NoError(t, err)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 2)
	w, ok := part.Clauses[1].(*ast.With)
	require.True(t, ok)
	require.Len(t, w.OrderBy, 1)
	assert.True(t, w.OrderBy[0].Descending)
	require.NotNil(t, w.Skip)
	require.NotNil(t, w.Limit)
}

func TestParseUnionAll(t *testing.T) {
	q, err := parser.Parse(`MATCH (a:Person) RETURN a.name UNION ALL MATCH (b:Animal) RETURN b.name`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 2)
	require.Len(t, q.UnionAll, 1)
	assert.True(t, q.UnionAll[0])
}

func TestParseSoftKeywordAsIdentifier(t *testing.T) {
	// "end" is a CASE keyword but must also parse as an ordinary variable
	// name, per the documented WITH/kind regression this grammar guards
	// against.
	q, err := parser.Parse(`MATCH (end:Person) RETURN end.name`)
	require.NoError(t, err)
	m, ok := q.Parts[0].Clauses[0].(*ast.Match)
	require.True(t, ok)
	require.Len(t, m.Patterns, 1)
	assert.Equal(t, "end", m.Patterns[0].Nodes[0].Variable)
}

func TestParseVariableLengthRelationship(t *testing.T) {
	q, err := parser.Parse(`MATCH (a)-[:KNOWS*1..3]->(b) RETURN a, b`)
	require.NoError(t, err)
	m := q.Parts[0].Clauses[0].(*ast.Match)
	rel := m.Patterns[0].Rels[0]
	require.NotNil(t, rel.MinHops)
	require.NotNil(t, rel.MaxHops)
	assert.EqualValues(t, 1, *rel.MinHops)
	assert.EqualValues(t, 3, *rel.MaxHops)
}

func TestParseSyntaxErrorStopsWithoutRecovery(t *testing.T) {
	_, err := parser.Parse(`MATCH (p:Person RETURN p`)
	require.Error(t, err)
}

func TestParseUnwindAndForeach(t *testing.T) {
	q, err := parser.Parse(
		`UNWIND [1, 2, 3] AS x FOREACH (y IN [x] | CREATE (:Num {value: y}))`)
	require.NoError(t, err)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 2)
	u, ok := part.Clauses[0].(*ast.Unwind)
	require.True(t, ok)
	assert.Equal(t, "x", u.Variable)
	f, ok := part.Clauses[1].(*ast.Foreach)
	require.True(t, ok)
	assert.Equal(t, "y", f.Variable)
	require.Len(t, f.Clauses, 1)
}
