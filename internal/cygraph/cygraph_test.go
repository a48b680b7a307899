package cygraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/cygraph"
)

func openTestEngine(t *testing.T) *cygraph.Engine {
	t.Helper()
	eng, err := cygraph.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestOpenAndCloseRunSchemaBootstrap(t *testing.T) {
	eng, err := cygraph.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, eng.Close())
}

func TestCreateAndMatchRoundTrip(t *testing.T) {
	eng := openTestEngine(t)

	res, err := eng.Execute(`CREATE (p:Person {name: "Alice", age: 30})`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 1, res.NodesCreated)
	require.EqualValues(t, 2, res.PropertiesSet)

	res, err = eng.Execute(`MATCH (p:Person) RETURN p.name, p.age`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"p.name", "p.age"}, res.ColumnNames)
	require.Len(t, res.Data, 1)
	require.Equal(t, "Alice", res.Data[0][0])
	require.EqualValues(t, 30, res.Data[0][1])
}

func TestParseErrorReturnsFailureResultNotGoError(t *testing.T) {
	eng := openTestEngine(t)

	res, err := eng.Execute(`MATCH (p:Person RETURN p`, nil)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotEmpty(t, res.ErrorMessage)
}

func TestWithPreservesNodeKindAcrossClauseBoundary(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(`CREATE (:Person {name: "Bob", age: 25})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(`CREATE (:Person {name: "Carol", age: 40})`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(
		`MATCH (n:Person) WITH n WHERE n.age > 28 RETURN n.name`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	require.Equal(t, "Carol", res.Data[0][0])
}

func TestMergeCreatesOnceThenMatchesOnSecondCall(t *testing.T) {
	eng := openTestEngine(t)

	res, err := eng.Execute(`MERGE (p:Person {name: "Dana"}) ON CREATE SET p.age = 22`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 1, res.NodesCreated)

	res, err = eng.Execute(`MERGE (p:Person {name: "Dana"}) ON MATCH SET p.age = 23`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 0, res.NodesCreated)
	require.EqualValues(t, 1, res.PropertiesSet)
}

func TestSetRemoveRoundTripIsIdempotent(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(`CREATE (p:Person {name: "Eve", title: "Engineer"})`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(`MATCH (p:Person {name: "Eve"}) REMOVE p.title`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 1, res.PropertiesSet)

	// Removing an already-absent property is a no-op, not an error.
	res, err = eng.Execute(`MATCH (p:Person {name: "Eve"}) REMOVE p.title`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 0, res.PropertiesSet)
}

func TestDeleteDetachRemovesNodeAndIncidentEdges(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(
		`CREATE (a:Person {name: "Frank"})-[:KNOWS]->(b:Person {name: "Gail"})`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(`MATCH (a:Person {name: "Frank"}) DETACH DELETE a`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.EqualValues(t, 1, res.NodesDeleted)
	require.EqualValues(t, 1, res.RelsDeleted)

	res, err = eng.Execute(`MATCH (p:Person) RETURN p.name`, nil)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	require.Equal(t, "Gail", res.Data[0][0])
}

func TestRelationshipTraversalFollowsDirection(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(
		`CREATE (a:Person {name: "Hank"})-[:KNOWS]->(b:Person {name: "Ivy"})`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(
		`MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a.name, b.name`, nil)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	require.Equal(t, "Hank", res.Data[0][0])
	require.Equal(t, "Ivy", res.Data[0][1])

	// Reversed direction should find nothing.
	res, err = eng.Execute(
		`MATCH (a:Person)-[:KNOWS]->(b:Person) WHERE a.name = "Ivy" RETURN b.name`, nil)
	require.NoError(t, err)
	require.Len(t, res.Data, 0)
}

func TestPageRankOverTriangleReturnsOneResultRow(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(`CREATE (a:Person {name: "A"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(`CREATE (b:Person {name: "B"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(`CREATE (c:Person {name: "C"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (a:Person {name: "A"}), (b:Person {name: "B"}) CREATE (a)-[:LINK]->(b)`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (a:Person {name: "A"}), (c:Person {name: "C"}) CREATE (a)-[:LINK]->(c)`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (b:Person {name: "B"}), (c:Person {name: "C"}) CREATE (b)-[:LINK]->(c)`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(`RETURN pageRank() AS scores`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
}

func TestDijkstraOverWeightedRoadsReturnsOneResultRow(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(`CREATE (a:Stop {name: "A"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(`CREATE (b:Stop {name: "B"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(`CREATE (c:Stop {name: "C"})`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (a:Stop {name: "A"}), (b:Stop {name: "B"}) CREATE (a)-[:ROAD {weight: 1}]->(b)`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (b:Stop {name: "B"}), (c:Stop {name: "C"}) CREATE (b)-[:ROAD {weight: 1}]->(c)`, nil)
	require.NoError(t, err)
	_, err = eng.Execute(
		`MATCH (a:Stop {name: "A"}), (c:Stop {name: "C"}) CREATE (a)-[:ROAD {weight: 5}]->(c)`, nil)
	require.NoError(t, err)

	idRes, err := eng.Execute(`MATCH (s:Stop) RETURN s.name, id(s)`, nil)
	require.NoError(t, err)
	require.True(t, idRes.Success)
	ids := map[string]int64{}
	for _, row := range idRes.Data {
		name, _ := row[0].(string)
		id, _ := row[1].(int64)
		ids[name] = id
	}
	require.Len(t, ids, 3)

	res, err := eng.Execute(`RETURN dijkstra($start, $end, "weight") AS path`, map[string]any{
		"start": ids["A"],
		"end":   ids["C"],
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
}

func TestUnwindProducesOneRowPerListElement(t *testing.T) {
	eng := openTestEngine(t)

	res, err := eng.Execute(`UNWIND [1, 2, 3] AS x RETURN x`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data, 3)
}

func TestOptionalMatchPreservesRowWhenPatternMisses(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Execute(`CREATE (p:Person {name: "Jill"})`, nil)
	require.NoError(t, err)

	res, err := eng.Execute(
		`MATCH (p:Person) OPTIONAL MATCH (p)-[:KNOWS]->(f:Person) RETURN p.name, f`, nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	require.Equal(t, "Jill", res.Data[0][0])
	require.Nil(t, res.Data[0][1])
}
