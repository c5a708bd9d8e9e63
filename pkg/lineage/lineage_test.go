package lineage

import (
	"context"
	"strings"
	"testing"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExtract(t *testing.T, script string) *Result {
	t.Helper()
	result, err := Extract(context.Background(), script, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func findEdge(t *testing.T, g *lineagegraph.Graph, srcTable, srcCol, dstTable, dstCol string, op lineagegraph.Operation) *lineagegraph.Edge {
	t.Helper()
	src, ok := g.GetColumnNode(srcTable, srcCol)
	require.True(t, ok, "source column %s.%s not found", srcTable, srcCol)
	dst, ok := g.GetColumnNode(dstTable, dstCol)
	require.True(t, ok, "target column %s.%s not found", dstTable, dstCol)

	for _, e := range g.Edges() {
		if e.SourceID == src.ID() && e.TargetID == dst.ID() && e.Operation == op {
			return e
		}
	}
	return nil
}

// findEdgeToNode is findEdge for a target that is not a column, such as an
// expression node, identified by its id.
func findEdgeToNode(t *testing.T, g *lineagegraph.Graph, srcTable, srcCol, dstID string, op lineagegraph.Operation) *lineagegraph.Edge {
	t.Helper()
	src, ok := g.GetColumnNode(srcTable, srcCol)
	require.True(t, ok, "source column %s.%s not found", srcTable, srcCol)

	for _, e := range g.Edges() {
		if e.SourceID == src.ID() && e.TargetID == dstID && e.Operation == op {
			return e
		}
	}
	return nil
}

func soleResultTable(t *testing.T, g *lineagegraph.Graph) *lineagegraph.TableNode {
	t.Helper()
	var result *lineagegraph.TableNode
	for _, n := range g.GetNodesOfKind(lineagegraph.KindTable) {
		tn := n.(*lineagegraph.TableNode)
		if strings.HasPrefix(tn.Name, "Select_") {
			require.Nil(t, result, "expected exactly one synthesized Select_ result table")
			result = tn
		}
	}
	require.NotNil(t, result, "expected a synthesized Select_ result table")
	return result
}

// Scenario 1: SELECT a, b AS bb FROM t -> t.a -> Select_*.a : select, t.b -> Select_*.bb : select
func TestExtract_BareSelectList(t *testing.T) {
	result := mustExtract(t, "SELECT a, b AS bb FROM t")
	require.Empty(t, result.ParseErrors)

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "t", "a", resultTable.Name, "a", lineagegraph.OpSelect))
	assert.NotNil(t, findEdge(t, result.Graph, "t", "b", resultTable.Name, "bb", lineagegraph.OpSelect))
}

// Scenario 2: SELECT t1.a FROM t1 JOIN t2 ON t1.k = t2.k -> select + bidirectional join edges
func TestExtract_JoinProducesBidirectionalJoinEdges(t *testing.T) {
	result := mustExtract(t, "SELECT t1.a FROM t1 JOIN t2 ON t1.k = t2.k")
	require.Empty(t, result.ParseErrors)

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "t1", "a", resultTable.Name, "a", lineagegraph.OpSelect))
	assert.NotNil(t, findEdge(t, result.Graph, "t1", "k", "t2", "k", lineagegraph.OpJoin), "expected t1.k -> t2.k join edge")
	assert.NotNil(t, findEdge(t, result.Graph, "t2", "k", "t1", "k", lineagegraph.OpJoin), "expected the reverse t2.k -> t1.k join edge")
}

// Scenario 3: INSERT dst (x, y) SELECT p + q, r FROM src -> positional mapping,
// with an intermediate expression node for the computed column.
func TestExtract_InsertSelectPositionalMapping(t *testing.T) {
	result := mustExtract(t, "INSERT dst (x, y) SELECT p + q, r FROM src")
	require.Empty(t, result.ParseErrors)

	dstX, ok := result.Graph.GetColumnNode("dst", "x")
	require.True(t, ok)
	dstY, ok := result.Graph.GetColumnNode("dst", "y")
	require.True(t, ok)

	assert.NotNil(t, findEdge(t, result.Graph, "src", "r", "dst", "y", lineagegraph.OpInsert))

	// p + q flows through an intermediate expression node into dst.x.
	var exprNode *lineagegraph.ExpressionNode
	for _, e := range result.Graph.Edges() {
		if e.TargetID == dstX.ID() && e.Operation == lineagegraph.OpInsert {
			n, ok := result.Graph.GetNodeByID(e.SourceID)
			require.True(t, ok)
			exprNode, ok = n.(*lineagegraph.ExpressionNode)
			require.True(t, ok, "expected dst.x to be fed by an expression node, not a direct column edge")
		}
	}
	require.NotNil(t, exprNode)

	assert.NotNil(t, findEdgeToNode(t, result.Graph, "src", "p", exprNode.ID(), lineagegraph.OpReference))
	assert.NotNil(t, findEdgeToNode(t, result.Graph, "src", "q", exprNode.ID(), lineagegraph.OpReference))
}

// Round-trip / scenario 4: WITH c AS (SELECT a FROM t) SELECT a FROM c ->
// t.a -> c.a : cte, c.a -> Select_*.a : select
func TestExtract_CTERoundTrip(t *testing.T) {
	result := mustExtract(t, "WITH c AS (SELECT a FROM t) SELECT a FROM c")
	require.Empty(t, result.ParseErrors)

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "t", "a", "c", "a", lineagegraph.OpCte))
	assert.NotNil(t, findEdge(t, result.Graph, "c", "a", resultTable.Name, "a", lineagegraph.OpSelect))
}

// Round-trip: explicit CTE column list preserves positional correspondence.
func TestExtract_CTEExplicitColumnListRoundTrip(t *testing.T) {
	result := mustExtract(t, "WITH q(x,y) AS (SELECT p, q FROM r) SELECT x FROM q")
	require.Empty(t, result.ParseErrors)

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "r", "p", "q", "x", lineagegraph.OpCte))
	assert.NotNil(t, findEdge(t, result.Graph, "r", "q", "q", "y", lineagegraph.OpCte))
	assert.NotNil(t, findEdge(t, result.Graph, "q", "x", resultTable.Name, "x", lineagegraph.OpSelect))
}

// Scenario 5: UPDATE t SET x = y + 1 WHERE z > 0 -> expr -> t.x : update,
// t.y -> expr : reference; t.z resolved but no edge involving it.
func TestExtract_UpdateSetWithPartialSourceReferences(t *testing.T) {
	result := mustExtract(t, "UPDATE t SET x = y + 1 WHERE z > 0")
	require.Empty(t, result.ParseErrors)

	tx, ok := result.Graph.GetColumnNode("t", "x")
	require.True(t, ok)

	var exprNode *lineagegraph.ExpressionNode
	for _, e := range result.Graph.Edges() {
		if e.TargetID == tx.ID() && e.Operation == lineagegraph.OpUpdate {
			n, ok := result.Graph.GetNodeByID(e.SourceID)
			require.True(t, ok)
			exprNode, ok = n.(*lineagegraph.ExpressionNode)
			require.True(t, ok)
		}
	}
	require.NotNil(t, exprNode)
	assert.NotNil(t, findEdgeToNode(t, result.Graph, "t", "y", exprNode.ID(), lineagegraph.OpReference))

	// z is resolved (it exists as a column) but never a source/target of any edge.
	tz, ok := result.Graph.GetColumnNode("t", "z")
	require.True(t, ok)
	for _, e := range result.Graph.Edges() {
		assert.NotEqual(t, tz.ID(), e.SourceID, "t.z should not feed any edge: WHERE is source-only")
		assert.NotEqual(t, tz.ID(), e.TargetID, "t.z should not be an edge target")
	}
}

// Scenario 6: DECLARE @v INT = 5; SET @v = (SELECT COUNT(*) FROM t); SELECT @v AS n
func TestExtract_DeclareSetWithNestedSubquery(t *testing.T) {
	result := mustExtract(t, "DECLARE @v INT = 5; SET @v = (SELECT COUNT(*) FROM t); SELECT @v AS n")
	require.Empty(t, result.ParseErrors)

	v, ok := result.Graph.GetColumnNode("Variables", "v")
	require.True(t, ok, "expected a variable column node for @v")

	var sawInitialAssign, sawSetAssign bool
	for _, e := range result.Graph.Edges() {
		if e.TargetID == v.ID() && e.Operation == lineagegraph.OpAssign {
			n, ok := result.Graph.GetNodeByID(e.SourceID)
			require.True(t, ok)
			if expr, ok := n.(*lineagegraph.ExpressionNode); ok {
				switch expr.ExpressionKind {
				case lineagegraph.ExprInitialValue:
					sawInitialAssign = true
				case lineagegraph.ExprAssignment:
					sawSetAssign = true
				}
			}
		}
	}
	assert.True(t, sawInitialAssign, "expected DECLARE's initializer to assign into @v")
	assert.True(t, sawSetAssign, "expected SET's expression to assign into @v")
}

// Invariant 1: every edge endpoint resolves to an existing node.
func TestExtract_GraphIntegrity(t *testing.T) {
	result := mustExtract(t, `
		WITH recent AS (SELECT id, total FROM orders WHERE total > 0)
		SELECT o.id, o.total AS grand_total
		FROM recent o
		JOIN customers c ON o.id = c.order_id
	`)
	require.Empty(t, result.ParseErrors)

	for _, e := range result.Graph.Edges() {
		_, ok := result.Graph.GetNodeByID(e.SourceID)
		assert.True(t, ok, "dangling source on edge %s", e.ID())
		_, ok = result.Graph.GetNodeByID(e.TargetID)
		assert.True(t, ok, "dangling target on edge %s", e.ID())
	}
}

// Invariant 3: the multiset of emitted edges is a set under
// (source, target, kind, operation); repeated equal predicates must not
// produce duplicate join edges.
func TestExtract_EdgeDedup(t *testing.T) {
	result := mustExtract(t, "SELECT 1 FROM t1 JOIN t2 ON t1.k = t2.k AND t1.k = t2.k")
	require.Empty(t, result.ParseErrors)

	seen := map[string]int{}
	for _, e := range result.Graph.Edges() {
		key := e.SourceID + "|" + e.TargetID + "|" + string(e.Kind) + "|" + string(e.Operation)
		seen[key]++
		assert.Equal(t, 1, seen[key], "edge %s should not be duplicated", key)
	}
}

// Invariant 6: a SELECT with n bare-column output columns produces exactly n
// Direct(select) edges, no more.
func TestExtract_SelectEdgeCountMatchesColumnCount(t *testing.T) {
	result := mustExtract(t, "SELECT a, b, c FROM t")
	require.Empty(t, result.ParseErrors)

	count := 0
	for _, e := range result.Graph.Edges() {
		if e.Operation == lineagegraph.OpSelect {
			count++
		}
	}
	assert.Equal(t, 3, count)
}

func TestExtract_MultipleBatchesShareOneGraph(t *testing.T) {
	script := "CREATE TABLE t (a INT, b INT)\nGO\nSELECT a, b FROM t"
	result := mustExtract(t, script)
	require.Empty(t, result.ParseErrors)

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "t", "a", resultTable.Name, "a", lineagegraph.OpSelect))
}

func TestExtract_ParseFailureIsCollectedNotFatal(t *testing.T) {
	result := mustExtract(t, "SELECT FROM FROM FROM;\nGO\nSELECT a FROM t")
	assert.NotEmpty(t, result.ParseErrors, "the malformed first batch should produce a parse error")

	resultTable := soleResultTable(t, result.Graph)
	assert.NotNil(t, findEdge(t, result.Graph, "t", "a", resultTable.Name, "a", lineagegraph.OpSelect), "a later valid batch must still be extracted")
}
