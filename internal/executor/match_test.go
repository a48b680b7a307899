package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/reldb"
	"github.com/orneryd/cygraph/internal/transform"
)

func newTestEngine(t *testing.T) (*reldb.Store, *engine) {
	t.Helper()
	store, err := reldb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cat := catalog.New(store)
	require.NoError(t, cat.Initialize())
	return store, &engine{cat: cat}
}

// chain builds a -[:NEXT]-> b -[:NEXT]-> c -[:NEXT]-> d and returns the
// node ids in order.
func chain(t *testing.T, store *reldb.Store, cat *catalog.Manager, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		for i := 0; i < n; i++ {
			id, err := cat.CreateNode(tx)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		for i := 0; i+1 < n; i++ {
			if _, err := cat.CreateEdge(tx, ids[i], ids[i+1], "NEXT"); err != nil {
				return err
			}
		}
		return nil
	}))
	return ids
}

func int64p(v int64) *int64 { return &v }

func TestExpandVarLengthIncludesIdentityMatchWhenMinHopsZero(t *testing.T) {
	store, eng := newTestEngine(t)
	ids := chain(t, store, eng.cat, 3)

	rel := &ast.RelationshipPattern{Direction: ast.DirRight, VarLength: true, MinHops: int64p(0), MaxHops: int64p(2)}
	next := &ast.NodePattern{}

	var hops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		hops, err = eng.expandVarLength(tx, ids[0], rel, next, transform.Row{})
		return err
	}))

	var sawIdentity bool
	for _, h := range hops {
		if h.endNode == ids[0] {
			sawIdentity = true
			assert.Empty(t, h.edgeIDs)
		}
	}
	assert.True(t, sawIdentity, "expected a zero-length identity match for fromNode")
}

func TestExpandVarLengthExcludesIdentityMatchWhenMinHopsOne(t *testing.T) {
	store, eng := newTestEngine(t)
	ids := chain(t, store, eng.cat, 3)

	rel := &ast.RelationshipPattern{Direction: ast.DirRight, VarLength: true, MinHops: int64p(1), MaxHops: int64p(2)}
	next := &ast.NodePattern{}

	var hops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		hops, err = eng.expandVarLength(tx, ids[0], rel, next, transform.Row{})
		return err
	}))

	for _, h := range hops {
		assert.NotEqual(t, ids[0], h.endNode)
	}
}

func TestExpandVarLengthHonoursDirection(t *testing.T) {
	store, eng := newTestEngine(t)
	ids := chain(t, store, eng.cat, 3) // ids[0] -> ids[1] -> ids[2]

	next := &ast.NodePattern{}

	// Outgoing-only (DirRight) from ids[0] must reach ids[1] and ids[2].
	rightRel := &ast.RelationshipPattern{Direction: ast.DirRight, VarLength: true, MinHops: int64p(1), MaxHops: int64p(5)}
	var rightHops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		rightHops, err = eng.expandVarLength(tx, ids[0], rightRel, next, transform.Row{})
		return err
	}))
	var rightEnds []int64
	for _, h := range rightHops {
		rightEnds = append(rightEnds, h.endNode)
	}
	assert.ElementsMatch(t, []int64{ids[1], ids[2]}, rightEnds)

	// Incoming-only (DirLeft) from ids[0] must reach nothing: no edge
	// points into ids[0].
	leftRel := &ast.RelationshipPattern{Direction: ast.DirLeft, VarLength: true, MinHops: int64p(1), MaxHops: int64p(5)}
	var leftHops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		leftHops, err = eng.expandVarLength(tx, ids[0], leftRel, next, transform.Row{})
		return err
	}))
	assert.Empty(t, leftHops)

	// Incoming-only (DirLeft) from ids[2] must reach ids[1] and ids[0].
	var leftFromEnd []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		leftFromEnd, err = eng.expandVarLength(tx, ids[2], leftRel, next, transform.Row{})
		return err
	}))
	var leftEnds []int64
	for _, h := range leftFromEnd {
		leftEnds = append(leftEnds, h.endNode)
	}
	assert.ElementsMatch(t, []int64{ids[1], ids[0]}, leftEnds)
}

func TestExpandVarLengthAccumulatesFullEdgePath(t *testing.T) {
	store, eng := newTestEngine(t)
	ids := chain(t, store, eng.cat, 4) // ids[0]->ids[1]->ids[2]->ids[3]

	rel := &ast.RelationshipPattern{Direction: ast.DirRight, VarLength: true, MinHops: int64p(3), MaxHops: int64p(3)}
	next := &ast.NodePattern{}

	var hops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		hops, err = eng.expandVarLength(tx, ids[0], rel, next, transform.Row{})
		return err
	}))

	require.Len(t, hops, 1)
	assert.Equal(t, ids[3], hops[0].endNode)
	assert.Len(t, hops[0].edgeIDs, 3, "the 3-hop path must accumulate all 3 walked edges, not just the first")
}

func TestExpandRelationshipFixedHopHonoursDirection(t *testing.T) {
	store, eng := newTestEngine(t)
	ids := chain(t, store, eng.cat, 2) // ids[0] -> ids[1]

	next := &ast.NodePattern{}
	rightRel := &ast.RelationshipPattern{Direction: ast.DirRight, Types: []string{"NEXT"}}
	var hops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		hops, err = eng.expandRelationship(tx, ids[0], rightRel, next, transform.Row{})
		return err
	}))
	require.Len(t, hops, 1)
	assert.Equal(t, ids[1], hops[0].endNode)
	assert.Equal(t, []int64{hops[0].relID}, hops[0].edgeIDs)

	leftRel := &ast.RelationshipPattern{Direction: ast.DirLeft, Types: []string{"NEXT"}}
	var noHops []relHop
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var err error
		noHops, err = eng.expandRelationship(tx, ids[0], leftRel, next, transform.Row{})
		return err
	}))
	assert.Empty(t, noHops)
}
