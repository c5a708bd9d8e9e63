package extractor

import (
	"context"
	"testing"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeExists(g *lineagegraph.Graph, srcID, dstID string, op lineagegraph.Operation) bool {
	for _, e := range g.Edges() {
		if e.SourceID == srcID && e.TargetID == dstID && e.Operation == op {
			return true
		}
	}
	return false
}

func TestExtractBatch_BareColumnSelectPropagatesType(t *testing.T) {
	graph := lineagegraph.NewDefault()
	src := graph.EnsureColumn("orders", "amount")
	src.DataType = "decimal"

	ex := New(graph, Options{})
	p := tsqlparser.NewParser("SELECT amount FROM orders", 32)
	stmts := p.ParseBatch()
	require.Empty(t, p.Errors())
	ex.ExtractBatch(context.Background(), "SELECT amount FROM orders", stmts)

	dst, ok := graph.GetColumnNode("Select_1", "amount")
	require.True(t, ok)
	assert.Equal(t, "decimal", dst.DataType, "target's unknown type should be propagated from the source")
	assert.True(t, edgeExists(graph, src.ID(), dst.ID(), lineagegraph.OpSelect))
}

func TestExtractBatch_SelectStarExpandsVisibleTableInOrder(t *testing.T) {
	graph := lineagegraph.NewDefault()
	tbl := graph.EnsureTable("customers", "", lineagegraph.BaseTable)
	graph.EnsureColumn(tbl.Name, "id")
	graph.EnsureColumn(tbl.Name, "name")

	graph2, ex := extractSQLWithGraph(t, graph, Options{}, "SELECT * FROM customers")
	_ = ex

	idCol, _ := graph2.GetColumnNode("customers", "id")
	nameCol, _ := graph2.GetColumnNode("customers", "name")

	var sawID, sawName bool
	for _, e := range graph2.Edges() {
		if e.Operation != lineagegraph.OpSelect {
			continue
		}
		if e.SourceID == idCol.ID() {
			sawID = true
		}
		if e.SourceID == nameCol.ID() {
			sawName = true
		}
	}
	assert.True(t, sawID)
	assert.True(t, sawName)

	// The projected columns keep the source table's column order.
	result, ok := graph2.GetTableNode("Select_1")
	require.True(t, ok)
	idOut, ok := graph2.GetColumnNode("Select_1", "id")
	require.True(t, ok)
	nameOut, ok := graph2.GetColumnNode("Select_1", "name")
	require.True(t, ok)
	assert.Equal(t, []string{idOut.ID(), nameOut.ID()}, result.Columns)
}

func extractSQLWithGraph(t *testing.T, graph *lineagegraph.Graph, opts Options, sql string) (*lineagegraph.Graph, *Extractor) {
	t.Helper()
	p := tsqlparser.NewParser(sql, 32)
	stmts := p.ParseBatch()
	require.Empty(t, p.Errors())
	ex := New(graph, opts)
	ex.ExtractBatch(context.Background(), sql, stmts)
	return graph, ex
}

func TestExtractBatch_ComputedColumnIgnoresCrossTableReference(t *testing.T) {
	graph := lineagegraph.NewDefault()
	ex := New(graph, Options{})

	sql := "CREATE TABLE t (a INT, b AS (a + other.c))"
	p := tsqlparser.NewParser(sql, 32)
	stmts := p.ParseBatch()
	require.Empty(t, p.Errors())
	ex.ExtractBatch(context.Background(), sql, stmts)

	b, ok := graph.GetColumnNode("t", "b")
	require.True(t, ok)
	assert.True(t, b.IsComputed)

	a, ok := graph.GetColumnNode("t", "a")
	require.True(t, ok)

	var exprID string
	for _, e := range graph.Edges() {
		if e.TargetID == b.ID() && e.Operation == lineagegraph.OpCompute {
			exprID = e.SourceID
		}
	}
	require.NotEmpty(t, exprID)
	assert.True(t, edgeExists(graph, a.ID(), exprID, lineagegraph.OpReference), "same-table reference should be linked")

	otherC, ok := graph.GetColumnNode("other", "c")
	if ok {
		assert.False(t, edgeExists(graph, otherC.ID(), exprID, lineagegraph.OpReference), "cross-table reference must be dropped, not linked")
	}
}

func TestExtractBatch_AlterColumnPreservesIDAndBumpsVersion(t *testing.T) {
	graph := lineagegraph.NewDefault()
	ex := New(graph, Options{})

	sql1 := "CREATE TABLE t (a VARCHAR)"
	p1 := tsqlparser.NewParser(sql1, 32)
	stmts1 := p1.ParseBatch()
	require.Empty(t, p1.Errors())
	ex.ExtractBatch(context.Background(), sql1, stmts1)

	col, ok := graph.GetColumnNode("t", "a")
	require.True(t, ok)
	originalID := col.ID()

	sql2 := "ALTER TABLE t ALTER COLUMN a INT"
	p2 := tsqlparser.NewParser(sql2, 32)
	stmts2 := p2.ParseBatch()
	require.Empty(t, p2.Errors())
	ex.ExtractBatch(context.Background(), sql2, stmts2)

	col2, ok := graph.GetColumnNode("t", "a")
	require.True(t, ok)
	assert.Equal(t, originalID, col2.ID(), "ALTER COLUMN must mutate the existing node, not create a new one")
	assert.Equal(t, "INT", col2.DataType)
	assert.Equal(t, "VARCHAR", col2.Metadata["PreviousDataType"])
	assert.Equal(t, 1, col2.Metadata["Version"])
}

func TestExtractBatch_DropColumnMarksMetadataWithoutRemovingNode(t *testing.T) {
	graph := lineagegraph.NewDefault()
	ex := New(graph, Options{})

	for _, batch := range []string{"CREATE TABLE t (a INT)", "ALTER TABLE t DROP COLUMN a"} {
		p := tsqlparser.NewParser(batch, 32)
		stmts := p.ParseBatch()
		require.Empty(t, p.Errors())
		ex.ExtractBatch(context.Background(), batch, stmts)
	}

	col, ok := graph.GetColumnNode("t", "a")
	require.True(t, ok, "a dropped column's node must still exist")
	assert.Equal(t, true, col.Metadata["Dropped"])
	assert.NotEmpty(t, col.Metadata["DroppedAt"])
}

func TestExtractBatch_NestedDepthBeyondLimitIsSkippedNotPanicked(t *testing.T) {
	graph := lineagegraph.NewDefault()
	ex := New(graph, Options{MaxNestedQueryDepth: 1})

	sql := "SELECT (SELECT (SELECT a FROM t3) FROM t2) FROM t1"
	p := tsqlparser.NewParser(sql, 32)
	stmts := p.ParseBatch()
	require.Empty(t, p.Errors())

	assert.NotPanics(t, func() {
		ex.ExtractBatch(context.Background(), sql, stmts)
	})
	_, ok := graph.GetTableNode("t3")
	assert.False(t, ok, "the subquery beyond the depth limit is skipped, so t3 is never registered")
}

func TestClassifyExpressionKind(t *testing.T) {
	cases := []struct {
		expr tsqlast.Expr
		want lineagegraph.ExpressionKind
	}{
		{&tsqlast.FuncCall{}, lineagegraph.ExprFunction},
		{&tsqlast.CaseExpr{}, lineagegraph.ExprCase},
		{&tsqlast.CoalesceExpr{}, lineagegraph.ExprCoalesce},
		{&tsqlast.NullIfExpr{}, lineagegraph.ExprNullIf},
		{&tsqlast.CastExpr{}, lineagegraph.ExprCast},
		{&tsqlast.ConvertExpr{}, lineagegraph.ExprConvert},
		{&tsqlast.BinaryExpr{}, lineagegraph.ExprCalculation},
		{&tsqlast.UnaryExpr{}, lineagegraph.ExprUnary},
		{&tsqlast.ParenExpr{}, lineagegraph.ExprGrouped},
		{&tsqlast.Literal{}, lineagegraph.ExprValue},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classifyExpressionKind(c.expr))
	}
}

func TestColumnRefParts(t *testing.T) {
	assert.Equal(t, []string{"col"}, columnRefParts(&tsqlast.ColumnRef{Column: "col"}))
	assert.Equal(t, []string{"tbl", "col"}, columnRefParts(&tsqlast.ColumnRef{Table: "tbl", Column: "col"}))
	assert.Equal(t, []string{"dbo", "tbl", "col"}, columnRefParts(&tsqlast.ColumnRef{Table: "dbo.tbl", Column: "col"}))
}

func TestExtractBatch_InlineUniqueColumnTagsMetadata(t *testing.T) {
	graph := lineagegraph.NewDefault()
	graph2, _ := extractSQLWithGraph(t, graph, Options{}, "CREATE TABLE t (a INT UNIQUE, b INT)")

	a, ok := graph2.GetColumnNode("t", "a")
	require.True(t, ok)
	assert.Equal(t, true, a.Metadata["Unique"])

	b, ok := graph2.GetColumnNode("t", "b")
	require.True(t, ok)
	assert.Nil(t, b.Metadata["Unique"])
}

func TestExtractBatch_TableLevelUniqueConstraintTagsMemberColumns(t *testing.T) {
	graph := lineagegraph.NewDefault()
	graph2, _ := extractSQLWithGraph(t, graph, Options{}, "CREATE TABLE t (a INT, b INT, UNIQUE (a, b))")

	a, ok := graph2.GetColumnNode("t", "a")
	require.True(t, ok)
	assert.Equal(t, true, a.Metadata["Unique"])

	b, ok := graph2.GetColumnNode("t", "b")
	require.True(t, ok)
	assert.Equal(t, true, b.Metadata["Unique"])
}

func TestExtractBatch_UnqualifiedColumnOnUndeclaredTableResolves(t *testing.T) {
	graph := lineagegraph.NewDefault()
	graph2, _ := extractSQLWithGraph(t, graph, Options{}, "SELECT a, b AS bb FROM t")

	src, ok := graph2.GetColumnNode("t", "a")
	require.True(t, ok, "unqualified reference to an undeclared table's column should still create it")

	dst, ok := graph2.GetColumnNode("Select_1", "a")
	require.True(t, ok)
	assert.True(t, edgeExists(graph2, src.ID(), dst.ID(), lineagegraph.OpSelect))
}
