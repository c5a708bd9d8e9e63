package lineagescope

import (
	"testing"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_ResolveTable_AliasAndBareName(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	tbl := graph.EnsureTable("Customers", "dbo", lineagegraph.BaseTable)

	s.RegisterTable("c", tbl)

	got, ok := s.ResolveTable("c")
	require.True(t, ok)
	assert.Same(t, tbl, got)

	got, ok = s.ResolveTable("Customers")
	require.True(t, ok)
	assert.Same(t, tbl, got)

	_, ok = s.ResolveTable("orders")
	assert.False(t, ok)
}

func TestStack_ResolveTable_InnermostWins(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	outer := graph.EnsureTable("Orders", "dbo", lineagegraph.BaseTable)
	inner := graph.EnsureTable("OrdersArchive", "dbo", lineagegraph.BaseTable)

	s.RegisterTable("o", outer)
	s.Push(Select)
	s.RegisterTable("o", inner)

	got, ok := s.ResolveTable("o")
	require.True(t, ok)
	assert.Same(t, inner, got, "expected the innermost frame's alias binding to win")

	s.Pop()
	got, ok = s.ResolveTable("o")
	require.True(t, ok)
	assert.Same(t, outer, got, "expected the outer binding to reappear after popping the inner frame")
}

func TestStack_RegisterCTE_VisibleToNestedFrames(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	cte := graph.EnsureTable("RecentOrders", "", lineagegraph.CTE)

	s.RegisterCTE("RecentOrders", cte)
	s.Push(CteBody)

	got, ok := s.ResolveCTE("recentorders")
	require.True(t, ok)
	assert.Same(t, cte, got)
}

func TestStack_ResolveColumn_Qualified(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	tbl := graph.EnsureTable("Customers", "dbo", lineagegraph.BaseTable)
	s.RegisterTable("c", tbl)

	col, err := s.ResolveColumn(graph, []string{"c", "Email"})
	require.NoError(t, err)
	assert.Equal(t, "Customers", col.OwnerTableName)
	assert.Equal(t, "Email", col.Name)

	// Lazily created: looking it up again returns the same node.
	again, err := s.ResolveColumn(graph, []string{"c", "Email"})
	require.NoError(t, err)
	assert.Same(t, col, again)
}

func TestStack_ResolveColumn_QualifierUnresolved(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()

	_, err := s.ResolveColumn(graph, []string{"nope", "Email"})
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestStack_ResolveColumn_UnqualifiedFindsSingleTableColumn(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	tbl := graph.EnsureTable("Customers", "dbo", lineagegraph.BaseTable)
	existing := graph.EnsureColumn("Customers", "Email")
	s.RegisterTable("", tbl)

	col, err := s.ResolveColumn(graph, []string{"Email"})
	require.NoError(t, err)
	assert.Same(t, existing, col)
}

func TestStack_ResolveColumn_UnqualifiedUndeclaredSingleTableIsCreated(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	tbl := graph.EnsureTable("Orders", "dbo", lineagegraph.BaseTable)
	s.RegisterTable("", tbl)

	col, err := s.ResolveColumn(graph, []string{"Amount"})
	require.NoError(t, err)
	assert.Equal(t, "Orders", col.OwnerTableName)
	assert.Equal(t, "Amount", col.Name)
}

func TestStack_ResolveColumn_UnqualifiedAmbiguousAcrossMultipleTablesUnresolved(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	a := graph.EnsureTable("Orders", "dbo", lineagegraph.BaseTable)
	b := graph.EnsureTable("Customers", "dbo", lineagegraph.BaseTable)
	s.RegisterTable("", a)
	s.RegisterTable("", b)

	_, err := s.ResolveColumn(graph, []string{"Id"})
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestStack_ResolveColumn_UnqualifiedFallsBackToVariable(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	v := graph.EnsureColumn("Variables", "MyVar")
	s.DeclareVariable("@MyVar", v)

	col, err := s.ResolveColumn(graph, []string{"@MyVar"})
	require.NoError(t, err)
	assert.Same(t, v, col)
}

func TestStack_WithFrame_PopsOnError(t *testing.T) {
	s := NewStack()
	before := s.Depth()

	err := s.WithFrame(Select, func(f *Frame) error {
		assert.Equal(t, before+1, s.Depth())
		return assert.AnError
	})

	assert.Error(t, err)
	assert.Equal(t, before, s.Depth(), "expected the frame to be popped even though fn returned an error")
}

func TestStack_CurrentTableStack_InnermostFirst(t *testing.T) {
	s := NewStack()
	graph := lineagegraph.NewDefault()
	outer := graph.EnsureTable("Select_1", "", lineagegraph.DerivedTable)
	inner := graph.EnsureTable("Select_2", "", lineagegraph.DerivedTable)

	s.Current().ResultTable = outer
	s.Push(Select)
	s.Current().ResultTable = inner

	stack := s.CurrentTableStack()
	require.Len(t, stack, 2)
	assert.Same(t, inner, stack[0])
	assert.Same(t, outer, stack[1])
}
