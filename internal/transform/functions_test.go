package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/transform"
)

func call(name string, args ...ast.Expression) *ast.FunctionCall {
	return &ast.FunctionCall{Name: name, Args: args}
}

func TestIsAggregateRecognizesAggregateNames(t *testing.T) {
	for _, name := range []string{"count", "sum", "avg", "min", "max", "collect", "COUNT"} {
		assert.True(t, transform.IsAggregate(name), name)
	}
	assert.False(t, transform.IsAggregate("abs"))
}

func TestContainsAggregateFindsNestedAggregate(t *testing.T) {
	expr := &ast.BinaryOp{
		Op:   "+",
		Left: lit(int64(1)),
		Right: &ast.FunctionCall{
			Name: "sum",
			Args: []ast.Expression{lit(int64(2))},
		},
	}
	assert.True(t, transform.ContainsAggregate(expr))
	assert.False(t, transform.ContainsAggregate(lit(int64(1))))
}

func TestEvalFunctionIDOnNodeAndRel(t *testing.T) {
	ctx := &transform.EvalContext{
		Row:   transform.Row{"n": transform.NodeRef{ID: 7}, "r": transform.RelRef{ID: 9}},
		Store: newFakeStore(),
	}
	v, err := transform.Eval(ctx, call("id", &ast.Identifier{Name: "n"}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = transform.Eval(ctx, call("id", &ast.Identifier{Name: "r"}))
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestEvalFunctionLabelsAndKeys(t *testing.T) {
	store := newFakeStore()
	store.labels[1] = []string{"Person", "Employee"}
	store.nodeProps[1] = map[string]any{"name": "Alice"}
	ctx := &transform.EvalContext{Row: transform.Row{"n": transform.NodeRef{ID: 1}}, Store: store}

	v, err := transform.Eval(ctx, call("labels", &ast.Identifier{Name: "n"}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"Person", "Employee"}, v)

	v, err = transform.Eval(ctx, call("keys", &ast.Identifier{Name: "n"}))
	require.NoError(t, err)
	assert.Equal(t, []any{"name"}, v)
}

func TestEvalFunctionStartNodeEndNodeType(t *testing.T) {
	ctx := &transform.EvalContext{
		Row:   transform.Row{"r": transform.RelRef{ID: 1, Source: 10, Target: 20, Type: "KNOWS"}},
		Store: newFakeStore(),
	}
	v, err := transform.Eval(ctx, call("startnode", &ast.Identifier{Name: "r"}))
	require.NoError(t, err)
	assert.Equal(t, transform.NodeRef{ID: 10}, v)

	v, err = transform.Eval(ctx, call("endnode", &ast.Identifier{Name: "r"}))
	require.NoError(t, err)
	assert.Equal(t, transform.NodeRef{ID: 20}, v)

	v, err = transform.Eval(ctx, call("type", &ast.Identifier{Name: "r"}))
	require.NoError(t, err)
	assert.Equal(t, "KNOWS", v)
}

func TestEvalFunctionNodesAndRelationshipsFromPath(t *testing.T) {
	store := newFakeStore()
	store.edges[100] = [3]any{int64(1), int64(2), "KNOWS"}
	store.edges[101] = [3]any{int64(2), int64(3), "KNOWS"}
	ctx := &transform.EvalContext{
		Row: transform.Row{"p": transform.PathRef{
			NodeIDs: []int64{1, 2, 3},
			RelIDs:  []int64{100, 101},
		}},
		Store: store,
	}

	v, err := transform.Eval(ctx, call("nodes", &ast.Identifier{Name: "p"}))
	require.NoError(t, err)
	nodes, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, nodes, 3)
	assert.Equal(t, transform.NodeRef{ID: 1}, nodes[0])
	assert.Equal(t, transform.NodeRef{ID: 3}, nodes[2])

	v, err = transform.Eval(ctx, call("relationships", &ast.Identifier{Name: "p"}))
	require.NoError(t, err)
	rels, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, rels, 2)
	assert.Equal(t, transform.RelRef{ID: 100, Source: 1, Target: 2, Type: "KNOWS"}, rels[0])
	assert.Equal(t, transform.RelRef{ID: 101, Source: 2, Target: 3, Type: "KNOWS"}, rels[1])
}

func TestEvalFunctionRelationshipsOnZeroLengthPathIsEmpty(t *testing.T) {
	ctx := &transform.EvalContext{
		Row:   transform.Row{"p": transform.PathRef{NodeIDs: []int64{1}, RelIDs: nil}},
		Store: newFakeStore(),
	}
	v, err := transform.Eval(ctx, call("relationships", &ast.Identifier{Name: "p"}))
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)
}

func TestEvalFunctionCoalesceSkipsNils(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, call("coalesce", lit(nil), lit(nil), lit("fallback")))
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestEvalFunctionMathHelpers(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}

	v, err := transform.Eval(ctx, call("abs", lit(int64(-5))))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = transform.Eval(ctx, call("ceil", lit(1.2)))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = transform.Eval(ctx, call("floor", lit(1.8)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = transform.Eval(ctx, call("sign", lit(int64(-3))))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestEvalFunctionStringHelpers(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}

	v, err := transform.Eval(ctx, call("toupper", lit("abc")))
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)

	v, err = transform.Eval(ctx, call("trim", lit("  x  ")))
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = transform.Eval(ctx, call("replace", lit("a-b-c"), lit("-"), lit("_")))
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", v)

	v, err = transform.Eval(ctx, call("split", lit("a,b,c"), lit(",")))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)
}

func TestEvalFunctionRangeInclusiveWithStep(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, call("range", lit(int64(0)), lit(int64(10)), lit(int64(5))))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(5), int64(10)}, v)
}

func TestEvalFunctionAggregateNameOutsideGroupingIsError(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	_, err := transform.Eval(ctx, call("count", lit(int64(1))))
	assert.Error(t, err)
}

func TestEvalFunctionUnknownNameIsError(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	_, err := transform.Eval(ctx, call("notarealfunction", lit(int64(1))))
	assert.Error(t, err)
}
