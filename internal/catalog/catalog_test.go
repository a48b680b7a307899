package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/reldb"
)

func newManager(t *testing.T) (*reldb.Store, *catalog.Manager) {
	t.Helper()
	store, err := reldb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	mgr := catalog.New(store)
	require.NoError(t, mgr.Initialize())
	return store, mgr
}

func TestEnsurePropertyKeyInternsOnce(t *testing.T) {
	store, mgr := newManager(t)
	var first, second int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		first, err = mgr.EnsurePropertyKey(tx, "name")
		return err
	}))
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		second, err = mgr.EnsurePropertyKey(tx, "name")
		return err
	}))
	assert.Equal(t, first, second)
}

func TestGetPropertyKeyIDMissingReturnsFalse(t *testing.T) {
	store, mgr := newManager(t)
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		_, ok, err := mgr.GetPropertyKeyID(tx, "never-written")
		assert.False(t, ok)
		return err
	}))
}

func TestCreateNodeAndLabelRoundTrip(t *testing.T) {
	store, mgr := newManager(t)
	var nodeID int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		nodeID, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		return mgr.AddNodeLabel(tx, nodeID, "Person")
	}))

	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		exists, err := mgr.NodeExists(tx, nodeID)
		require.NoError(t, err)
		assert.True(t, exists)

		labels, err := mgr.NodeLabels(tx, nodeID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Person"}, labels)
		return nil
	}))
}

func TestAddNodeLabelIsIdempotent(t *testing.T) {
	store, mgr := newManager(t)
	var nodeID int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		nodeID, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		if err := mgr.AddNodeLabel(tx, nodeID, "Person"); err != nil {
			return err
		}
		return mgr.AddNodeLabel(tx, nodeID, "Person")
	}))

	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		labels, err := mgr.NodeLabels(tx, nodeID)
		require.NoError(t, err)
		assert.Len(t, labels, 1)
		return nil
	}))
}

func TestNodesWithLabelFindsOnlyMatchingNodes(t *testing.T) {
	store, mgr := newManager(t)
	var person, city int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		person, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		if err := mgr.AddNodeLabel(tx, person, "Person"); err != nil {
			return err
		}
		city, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		return mgr.AddNodeLabel(tx, city, "City")
	}))

	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		var found []int64
		err := mgr.NodesWithLabel(tx, "Person", func(id int64) (bool, error) {
			found = append(found, id)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{person}, found)
		assert.NotContains(t, found, city)
		return nil
	}))
}

func TestCreateEdgeRejectsMissingEndpoint(t *testing.T) {
	store, mgr := newManager(t)
	err := store.Update(func(tx *reldb.Txn) error {
		_, err := mgr.CreateEdge(tx, 999, 1000, "KNOWS")
		return err
	})
	assert.Error(t, err)
}

func TestDeleteNodeWithLiveEdgesRequiresDetach(t *testing.T) {
	store, mgr := newManager(t)
	var a, b int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		a, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		b, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		_, err = mgr.CreateEdge(tx, a, b, "KNOWS")
		return err
	}))

	err := store.Update(func(tx *reldb.Txn) error {
		return mgr.DeleteNode(tx, a, false)
	})
	assert.Error(t, err)

	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		return mgr.DeleteNode(tx, a, true)
	}))
	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		exists, err := mgr.NodeExists(tx, a)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	}))
}

func TestSetNodePropertyOverwritesAcrossTypeChange(t *testing.T) {
	store, mgr := newManager(t)
	var nodeID, keyID int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		nodeID, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		keyID, err = mgr.EnsurePropertyKey(tx, "age")
		if err != nil {
			return err
		}
		return mgr.SetNodeProperty(tx, nodeID, keyID, catalog.TypeInt, int64(30))
	}))

	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		return mgr.SetNodeProperty(tx, nodeID, keyID, catalog.TypeText, "thirty")
	}))

	require.NoError(t, store.View(func(tx *reldb.Txn) error {
		v, ok, err := mgr.GetNodeProperty(tx, nodeID, keyID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "thirty", v)
		return nil
	}))
}

func TestRemoveNodePropertyOnMissingKeyIsNoopAndReportsFalse(t *testing.T) {
	store, mgr := newManager(t)
	var nodeID, keyID int64
	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		var err error
		nodeID, err = mgr.CreateNode(tx)
		if err != nil {
			return err
		}
		keyID, err = mgr.EnsurePropertyKey(tx, "nonexistent")
		return err
	}))

	require.NoError(t, store.Update(func(tx *reldb.Txn) error {
		removed, err := mgr.RemoveNodeProperty(tx, nodeID, keyID)
		assert.False(t, removed)
		return err
	}))
}

func TestInferPropertyTypeClassifiesLiterals(t *testing.T) {
	cases := []struct {
		text string
		typ  catalog.PropertyType
		want any
	}{
		{"true", catalog.TypeBool, true},
		{"false", catalog.TypeBool, false},
		{"42", catalog.TypeInt, int64(42)},
		{"3.14", catalog.TypeReal, 3.14},
		{"hello", catalog.TypeText, "hello"},
	}
	for _, c := range cases {
		typ, val := catalog.InferPropertyType(c.text)
		assert.Equal(t, c.typ, typ, c.text)
		assert.Equal(t, c.want, val, c.text)
	}
}

func TestPropertyTypeStringNames(t *testing.T) {
	assert.Equal(t, "integer", catalog.TypeInt.String())
	assert.Equal(t, "real", catalog.TypeReal.String())
	assert.Equal(t, "boolean", catalog.TypeBool.String())
	assert.Equal(t, "text", catalog.TypeText.String())
}
