package executor

import (
	"github.com/orneryd/cygraph/internal/catalog"
	"github.com/orneryd/cygraph/internal/reldb"
)

// storeAdapter implements transform.Store by delegating to a catalog
// Manager bound to one in-flight transaction, keeping internal/transform's
// expression evaluator free of any reldb/catalog import.
type storeAdapter struct {
	tx  *reldb.Txn
	cat *catalog.Manager
}

func (a *storeAdapter) NodeProperty(nodeID int64, key string) (any, bool, error) {
	keyID, ok, err := a.cat.GetPropertyKeyID(a.tx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return a.cat.GetNodeProperty(a.tx, nodeID, keyID)
}

func (a *storeAdapter) RelProperty(relID int64, key string) (any, bool, error) {
	keyID, ok, err := a.cat.GetPropertyKeyID(a.tx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return a.cat.GetEdgeProperty(a.tx, relID, keyID)
}

func (a *storeAdapter) NodeLabels(nodeID int64) ([]string, error) {
	return a.cat.NodeLabels(a.tx, nodeID)
}

func (a *storeAdapter) NodeKeys(nodeID int64) ([]string, error) {
	return a.cat.NodeKeys(a.tx, nodeID)
}

func (a *storeAdapter) RelKeys(relID int64) ([]string, error) {
	return a.cat.EdgeKeys(a.tx, relID)
}

func (a *storeAdapter) EdgeEndpoints(relID int64) (src, tgt int64, typ string, ok bool, err error) {
	return a.cat.Edge(a.tx, relID)
}
