package csr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/reldb"
)

func openTestStore(t *testing.T) (*reldb.Store, *catalog.Manager) {
	t.Helper()
	store, err := reldb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	cat := catalog.New(store)
	require.NoError(t, cat.Initialize())
	return store, cat
}

func TestLoadEmptyGraphReturnsNil(t *testing.T) {
	store, cat := openTestStore(t)
	var snap *csr.Snapshot
	err := store.View(func(tx *reldb.Txn) error {
		var err error
		snap, err = csr.Load(tx, cat)
		return err
	})
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestLoadBuildsAdjacency(t *testing.T) {
	store, cat := openTestStore(t)

	var a, b, c int64
	err := store.Update(func(tx *reldb.Txn) error {
		var err error
		a, err = cat.CreateNode(tx)
		if err != nil {
			return err
		}
		b, err = cat.CreateNode(tx)
		if err != nil {
			return err
		}
		c, err = cat.CreateNode(tx)
		if err != nil {
			return err
		}
		idKey, err := cat.EnsurePropertyKey(tx, "id")
		if err != nil {
			return err
		}
		if err := cat.SetNodeProperty(tx, a, idKey, catalog.TypeText, "alice"); err != nil {
			return err
		}
		if _, err := cat.CreateEdge(tx, a, b, "KNOWS"); err != nil {
			return err
		}
		if _, err := cat.CreateEdge(tx, a, c, "KNOWS"); err != nil {
			return err
		}
		if _, err := cat.CreateEdge(tx, b, c, "KNOWS"); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)

	var snap *csr.Snapshot
	err = store.View(func(tx *reldb.Txn) error {
		var err error
		snap, err = csr.Load(tx, cat)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, 3, snap.NodeCount)
	require.Equal(t, 3, snap.EdgeCount)

	aIdx, ok := snap.IndexOf(a)
	require.True(t, ok)
	require.Equal(t, int32(2), snap.OutDegree(aIdx))
	require.Equal(t, "alice", snap.UserIDs[aIdx])

	bIdx, ok := snap.IndexOf(b)
	require.True(t, ok)
	require.Equal(t, int32(1), snap.InDegree(bIdx))
	require.Equal(t, int32(1), snap.OutDegree(bIdx))

	cIdx, ok := snap.IndexOf(c)
	require.True(t, ok)
	require.Equal(t, int32(2), snap.InDegree(cIdx))
	require.Equal(t, int32(0), snap.OutDegree(cIdx))
}

func TestLoadSkipsEdgeWithMissingEndpoint(t *testing.T) {
	store, cat := openTestStore(t)

	var a, b int64
	err := store.Update(func(tx *reldb.Txn) error {
		var err error
		a, err = cat.CreateNode(tx)
		if err != nil {
			return err
		}
		b, err = cat.CreateNode(tx)
		if err != nil {
			return err
		}
		if _, err := cat.CreateEdge(tx, a, b, "KNOWS"); err != nil {
			return err
		}
		// Remove b's row directly to simulate a dangling edge without
		// going through DeleteNode's cascade.
		return tx.DeleteRow(catalog.TableNodes, b)
	})
	require.NoError(t, err)

	var snap *csr.Snapshot
	err = store.View(func(tx *reldb.Txn) error {
		var err error
		snap, err = csr.Load(tx, cat)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, 1, snap.NodeCount)
	require.Equal(t, 0, snap.EdgeCount)
}
