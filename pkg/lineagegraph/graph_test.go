package lineagegraph

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterIDGenerator produces predictable ids for tests, instead of random
// uuids.
type counterIDGenerator struct {
	n atomic.Int64
}

func (c *counterIDGenerator) NewID(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, c.n.Add(1))
}

func newTestGraph() *Graph {
	return New(&counterIDGenerator{})
}

func TestGraph_EnsureTable_IdempotentByName(t *testing.T) {
	g := newTestGraph()

	t1 := g.EnsureTable("Customers", "dbo", BaseTable)
	t2 := g.EnsureTable("customers", "dbo", BaseTable)

	assert.Same(t, t1, t2, "expected case-insensitive ensure to return the same node")
	assert.Len(t, g.GetNodesOfKind(KindTable), 1)
}

func TestGraph_EnsureColumn_AppendsToOwningTable(t *testing.T) {
	g := newTestGraph()

	tbl := g.EnsureTable("Orders", "dbo", BaseTable)
	col1 := g.EnsureColumn("Orders", "OrderID")
	col2 := g.EnsureColumn("orders", "orderid") // same column, different case

	assert.Same(t, col1, col2)
	assert.Equal(t, []string{col1.ID()}, tbl.Columns)

	col3 := g.EnsureColumn("Orders", "CustomerID")
	assert.Equal(t, []string{col1.ID(), col3.ID()}, tbl.Columns)
}

func TestGraph_GetColumnNode_CaseInsensitive(t *testing.T) {
	g := newTestGraph()
	want := g.EnsureColumn("dbo.Customers", "Email")

	got, ok := g.GetColumnNode("DBO.CUSTOMERS", "email")
	require.True(t, ok)
	assert.Same(t, want, got)

	_, ok = g.GetColumnNode("dbo.Customers", "Phone")
	assert.False(t, ok)
}

func TestGraph_AddEdge_RequiresExistingEndpoints(t *testing.T) {
	g := newTestGraph()
	src := g.EnsureColumn("A", "x")

	_, err := g.AddEdge(src.ID(), "COLUMN_missing", Direct, OpSelect, "select x")
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestGraph_AddEdge_DedupesByQuadruple(t *testing.T) {
	g := newTestGraph()
	src := g.EnsureColumn("A", "x")
	dst := g.EnsureColumn("B", "y")

	e1, err := g.AddEdge(src.ID(), dst.ID(), Direct, OpSelect, "select x as y")
	require.NoError(t, err)

	e2, err := g.AddEdge(src.ID(), dst.ID(), Direct, OpSelect, "select x as y from different text")
	require.NoError(t, err)

	assert.Same(t, e1, e2, "expected the second AddEdge to return the first edge, not create a duplicate")
	assert.Len(t, g.Edges(), 1)

	// A different operation on the same pair is a distinct edge.
	e3, err := g.AddEdge(src.ID(), dst.ID(), Indirect, OpReference, "where x = y")
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID(), e3.ID())
	assert.Len(t, g.Edges(), 2)
}

func TestGraph_AddNode_KindConflict(t *testing.T) {
	g := newTestGraph()
	tbl := NewTableNode("DUP_1", "t", BaseTable)
	col := NewColumnNode("DUP_1", "t", "c")

	_, err := g.AddNode(tbl)
	require.NoError(t, err)

	_, err = g.AddNode(col)
	assert.ErrorIs(t, err, ErrNodeKindConflict)
}

func TestGraph_Statistics(t *testing.T) {
	g := newTestGraph()
	src := g.EnsureColumn("A", "x")
	dst := g.EnsureColumn("B", "y")
	_, err := g.AddEdge(src.ID(), dst.ID(), Direct, OpSelect, "select x as y")
	require.NoError(t, err)

	stats := g.Statistics()
	assert.Equal(t, 0, stats.NodeCounts[KindTable])
	assert.Equal(t, 2, stats.NodeCounts[KindColumn])
	assert.Equal(t, 1, stats.EdgeCounts[Direct])
	assert.Equal(t, 1, stats.OperationCounts[OpSelect])
}

func TestGraph_Compact_PreservesIDsAndLookups(t *testing.T) {
	g := newTestGraph()
	tbl := g.EnsureTable("Orders", "dbo", BaseTable)
	col := g.EnsureColumn("Orders", "OrderID")

	g.Compact()

	gotTbl, ok := g.GetTableNode("orders")
	require.True(t, ok)
	assert.Equal(t, tbl.ID(), gotTbl.ID())

	gotCol, ok := g.GetColumnNode("Orders", "OrderID")
	require.True(t, ok)
	assert.Equal(t, col.ID(), gotCol.ID())
}

func TestGraph_Compact_PreservesRegistrationOrder(t *testing.T) {
	g := newTestGraph()
	first := g.EnsureColumn("Orders", "a")
	second := g.EnsureColumn("Orders", "b")
	third := g.EnsureColumn("Orders", "c")

	before := g.GetNodesOfKind(KindColumn)
	require.Len(t, before, 3)
	assert.Equal(t, []string{first.ID(), second.ID(), third.ID()}, idsOf(before))

	g.Compact()

	after := g.GetNodesOfKind(KindColumn)
	assert.Equal(t, []string{first.ID(), second.ID(), third.ID()}, idsOf(after), "Compact must not reorder GetNodesOfKind results")
}

func idsOf(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}
