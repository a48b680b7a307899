package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/transform"
)

// fakeStore is a hand-rolled in-memory stand-in for transform.Store, kept
// local to this package's tests so internal/transform stays free of any
// internal/executor or internal/reldb import, the same separation its own
// package doc describes.
type fakeStore struct {
	nodeProps map[int64]map[string]any
	relProps  map[int64]map[string]any
	labels    map[int64][]string
	edges     map[int64][3]any // [src, tgt, typ]
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodeProps: map[int64]map[string]any{},
		relProps:  map[int64]map[string]any{},
		labels:    map[int64][]string{},
		edges:     map[int64][3]any{},
	}
}

func (s *fakeStore) NodeProperty(nodeID int64, key string) (any, bool, error) {
	v, ok := s.nodeProps[nodeID][key]
	return v, ok, nil
}

func (s *fakeStore) RelProperty(relID int64, key string) (any, bool, error) {
	v, ok := s.relProps[relID][key]
	return v, ok, nil
}

func (s *fakeStore) NodeLabels(nodeID int64) ([]string, error) {
	return s.labels[nodeID], nil
}

func (s *fakeStore) NodeKeys(nodeID int64) ([]string, error) {
	var keys []string
	for k := range s.nodeProps[nodeID] {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *fakeStore) RelKeys(relID int64) ([]string, error) {
	var keys []string
	for k := range s.relProps[relID] {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *fakeStore) EdgeEndpoints(relID int64) (src, tgt int64, typ string, ok bool, err error) {
	e, found := s.edges[relID]
	if !found {
		return 0, 0, "", false, nil
	}
	return e[0].(int64), e[1].(int64), e[2].(string), true, nil
}

func lit(v any) ast.Expression { return &ast.Literal{Value: v} }

func TestEvalArithmetic(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, &ast.BinaryOp{Op: "+", Left: lit(int64(2)), Right: lit(int64(3))})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = transform.Eval(ctx, &ast.BinaryOp{Op: "/", Left: lit(int64(7)), Right: lit(int64(2))})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestEvalDivisionByZeroIsError(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	_, err := transform.Eval(ctx, &ast.BinaryOp{Op: "/", Left: lit(int64(1)), Right: lit(int64(0))})
	assert.Error(t, err)
}

func TestEvalComparisonAndNullPropagation(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, &ast.BinaryOp{Op: "<", Left: lit(int64(1)), Right: lit(int64(2))})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = transform.Eval(ctx, &ast.BinaryOp{Op: "=", Left: lit(nil), Right: lit(int64(1))})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvalAndShortCircuitsOnFalse(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, &ast.BinaryOp{
		Op:   "AND",
		Left: lit(false),
		// a right side that would error if evaluated (undefined identifier)
		Right: &ast.Identifier{Name: "undefined"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestEvalPropertyAccessOnNodeRef(t *testing.T) {
	store := newFakeStore()
	store.nodeProps[1] = map[string]any{"name": "Alice"}
	ctx := &transform.EvalContext{
		Row:   transform.Row{"p": transform.NodeRef{ID: 1}},
		Store: store,
	}
	v, err := transform.Eval(ctx, &ast.PropertyAccess{Target: &ast.Identifier{Name: "p"}, Property: "name"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
}

func TestEvalPropertyAccessMissingPropertyReturnsNil(t *testing.T) {
	store := newFakeStore()
	ctx := &transform.EvalContext{
		Row:   transform.Row{"p": transform.NodeRef{ID: 1}},
		Store: store,
	}
	v, err := transform.Eval(ctx, &ast.PropertyAccess{Target: &ast.Identifier{Name: "p"}, Property: "missing"})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvalUndefinedVariableIsSemanticError(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	_, err := transform.Eval(ctx, &ast.Identifier{Name: "nope"})
	require.Error(t, err)
}

func TestEvalInList(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, &ast.InList{
		Operand: lit(int64(2)),
		List:    &ast.ListLiteral{Items: []ast.Expression{lit(int64(1)), lit(int64(2)), lit(int64(3))}},
	})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalListIndexNegativeWrapsFromEnd(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	list := &ast.ListLiteral{Items: []ast.Expression{lit(int64(10)), lit(int64(20)), lit(int64(30))}}
	v, err := transform.Eval(ctx, &ast.ListIndex{List: list, Index: lit(int64(-1))})
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)
}

func TestEvalListSliceClampsBounds(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	list := &ast.ListLiteral{Items: []ast.Expression{lit(int64(1)), lit(int64(2)), lit(int64(3)), lit(int64(4))}}
	v, err := transform.Eval(ctx, &ast.ListSlice{List: list, From: lit(int64(1)), To: lit(int64(100))})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3), int64(4)}, v)
}

func TestEvalCaseExprWithOperand(t *testing.T) {
	ctx := &transform.EvalContext{Row: transform.Row{}, Store: newFakeStore()}
	v, err := transform.Eval(ctx, &ast.CaseExpr{
		Operand:    lit(int64(2)),
		Whens:      []ast.Expression{lit(int64(1)), lit(int64(2))},
		Thens:      []ast.Expression{lit("one"), lit("two")},
		ElseClause: lit("other"),
	})
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestSortRowsOrdersAscendingAndDescending(t *testing.T) {
	rows := []transform.Row{
		{"n": int64(3)},
		{"n": int64(1)},
		{"n": int64(2)},
	}
	keyFn := func(r transform.Row) any { return r["n"] }
	transform.SortRows(rows, []func(transform.Row) any{keyFn}, []bool{false})
	assert.Equal(t, []int64{1, 2, 3}, []int64{
		rows[0]["n"].(int64), rows[1]["n"].(int64), rows[2]["n"].(int64),
	})

	transform.SortRows(rows, []func(transform.Row) any{keyFn}, []bool{true})
	assert.Equal(t, []int64{3, 2, 1}, []int64{
		rows[0]["n"].(int64), rows[1]["n"].(int64), rows[2]["n"].(int64),
	})
}
