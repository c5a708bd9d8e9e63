// Package lineagescope tracks the stack of SQL scopes (batch, SELECT,
// subquery, CTE body, procedure body) active during lineage extraction:
// which tables and aliases are visible, which column the current SELECT
// element is writing into, and the handful of traversal-role flags handlers
// use to classify a column reference as source-only or target-bearing.
package lineagescope

import "github.com/lineagekit/tsql-lineage/pkg/lineagegraph"

// FrameKind names the kind of SQL construct a Frame was pushed for.
type FrameKind string

const (
	Root           FrameKind = "Root"
	Select         FrameKind = "Select"
	Insert         FrameKind = "Insert"
	Update         FrameKind = "Update"
	Delete         FrameKind = "Delete"
	Merge          FrameKind = "Merge"
	CteBody        FrameKind = "CteBody"
	ProcedureBody  FrameKind = "ProcedureBody"
	Expression     FrameKind = "Expression"
)

// Frame captures everything specific to one SQL scope. A new Frame is
// pushed on entering a SELECT, subquery, CTE body, or procedure body, and
// popped on exit.
type Frame struct {
	Kind FrameKind

	// VisibleTables maps lower(table name) to the TableNode it refers to.
	VisibleTables map[string]*lineagegraph.TableNode
	// tableOrder records registration order, so an ambiguous unqualified
	// lookup within this frame has a deterministic first match.
	tableOrder []string

	// TableAliases maps lower(alias) to the canonical (original-case)
	// table name stored in VisibleTables.
	TableAliases map[string]string

	// ResultTable is this frame's own result-projection table, set for
	// Select frames that materialize one (Stack.CurrentTableStack derives
	// the spec's "current table stack" from these, innermost first).
	ResultTable *lineagegraph.TableNode

	Variables  map[string]*lineagegraph.ColumnNode
	Parameters map[string]*lineagegraph.ColumnNode

	// CteRegistry maps lower(cte name) to its TableNode. Registered on the
	// frame that owns the WITH clause; visible to later CTEs in the same
	// WITH and to all nested frames via Stack's innermost-to-outermost walk.
	CteRegistry map[string]*lineagegraph.TableNode

	InFromClause         bool
	InWhereClause        bool
	InGroupBy            bool
	InHaving             bool
	InOrderBy            bool
	InJoinCondition      bool
	InInsertColumnList   bool
	InUpdateSetClause    bool
	InSelectList         bool
	InWhenCondition      bool
	InWindowFunction     bool
	ProcessingSourceColumns bool
	ProcessingTargetColumns bool

	// CurrentTargetColumn is the column the enclosing SELECT element (or
	// assignment) is writing into, if any.
	CurrentTargetColumn *lineagegraph.ColumnNode
	// CurrentFunctionExpression is the function whose OVER clause is
	// currently being processed, if any.
	CurrentFunctionExpression *lineagegraph.ExpressionNode

	InsertTargetTable   *lineagegraph.TableNode
	InsertTargetColumns []*lineagegraph.ColumnNode

	SelectIntoTable *lineagegraph.TableNode
}

// VisibleTablesInOrder returns this frame's visible tables in the order
// they were registered, for callers that need a deterministic enumeration
// (e.g. expanding an unqualified SELECT * against every FROM-clause
// source).
func (f *Frame) VisibleTablesInOrder() []*lineagegraph.TableNode {
	out := make([]*lineagegraph.TableNode, 0, len(f.tableOrder))
	for _, key := range f.tableOrder {
		if t, ok := f.VisibleTables[key]; ok {
			out = append(out, t)
		}
	}
	return out
}

func newFrame(kind FrameKind) *Frame {
	return &Frame{
		Kind:          kind,
		VisibleTables: make(map[string]*lineagegraph.TableNode),
		TableAliases:  make(map[string]string),
		Variables:     make(map[string]*lineagegraph.ColumnNode),
		Parameters:    make(map[string]*lineagegraph.ColumnNode),
		CteRegistry:   make(map[string]*lineagegraph.TableNode),
	}
}
