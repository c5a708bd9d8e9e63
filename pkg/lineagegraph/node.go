// Package lineagegraph holds the lineage graph produced by extracting
// column-level data flow from a parsed T-SQL script: tables, columns, and
// intermediate expressions as nodes, connected by directed edges that record
// how a value at one node was derived from another.
package lineagegraph

// NodeKind discriminates the three node shapes the graph stores.
type NodeKind string

const (
	KindTable      NodeKind = "Table"
	KindColumn     NodeKind = "Column"
	KindExpression NodeKind = "Expression"
)

// Node is anything the graph can store and link with edges.
type Node interface {
	ID() string
	Kind() NodeKind
}

// TableKind classifies a TableNode's origin.
type TableKind string

const (
	BaseTable       TableKind = "BaseTable"
	TempTable       TableKind = "TempTable"
	TableVariable   TableKind = "TableVariable"
	CTE             TableKind = "CTE"
	DerivedTable    TableKind = "DerivedTable"
	StoredProcedure TableKind = "StoredProcedure"
)

// TableNode represents a base table, temp table, table variable, CTE,
// derived table, or stored procedure that owns a set of columns.
type TableNode struct {
	id  string
	typ TableKind

	Name                    string
	Schema                  string
	Alias                   string
	Columns                 []string // ordered ColumnNode ids owned by this table
	OriginalDefinitionText  string
}

func (t *TableNode) ID() string      { return t.id }
func (t *TableNode) Kind() NodeKind  { return KindTable }
func (t *TableNode) TableKind() TableKind { return t.typ }

// NewTableNode constructs a TableNode with the given id. Callers normally
// obtain id and node together through Graph.EnsureTable rather than calling
// this directly.
func NewTableNode(id, name string, kind TableKind) *TableNode {
	return &TableNode{id: id, typ: kind, Name: name}
}

// ColumnDirection marks a ColumnNode standing in for a procedure parameter.
type ColumnDirection string

const (
	DirectionInput  ColumnDirection = "INPUT"
	DirectionOutput ColumnDirection = "OUTPUT"
)

// ColumnNode represents a column owned by a table, or (when OwnerTableName
// is a synthetic owner like "Variables" or a procedure name) a batch
// variable or a procedure parameter.
type ColumnNode struct {
	id string

	OwnerTableName string
	Name           string
	DataType       string
	Nullable       bool
	IsComputed     bool
	Metadata       map[string]any
}

func (c *ColumnNode) ID() string     { return c.id }
func (c *ColumnNode) Kind() NodeKind { return KindColumn }

// NewColumnNode constructs a ColumnNode with sensible defaults: unknown data
// type, nullable true, per spec.
func NewColumnNode(id, ownerTableName, name string) *ColumnNode {
	return &ColumnNode{
		id:             id,
		OwnerTableName: ownerTableName,
		Name:           name,
		DataType:       "unknown",
		Nullable:       true,
		Metadata:       make(map[string]any),
	}
}

// ExpressionKind classifies the shape of an intermediate expression node.
type ExpressionKind string

const (
	ExprValue                    ExpressionKind = "Value"
	ExprFunction                 ExpressionKind = "Function"
	ExprCase                     ExpressionKind = "Case"
	ExprCoalesce                 ExpressionKind = "Coalesce"
	ExprNullIf                   ExpressionKind = "NullIf"
	ExprCast                     ExpressionKind = "Cast"
	ExprConvert                  ExpressionKind = "Convert"
	ExprCalculation              ExpressionKind = "Calculation"
	ExprUnary                    ExpressionKind = "Unary"
	ExprGrouped                  ExpressionKind = "Grouped"
	ExprInsertExpression         ExpressionKind = "InsertExpression"
	ExprCteExpression            ExpressionKind = "CteExpression"
	ExprComputedColumn           ExpressionKind = "ComputedColumn"
	ExprDefaultValue             ExpressionKind = "DefaultValue"
	ExprInitialValue             ExpressionKind = "InitialValue"
	ExprAssignment               ExpressionKind = "Assignment"
	ExprParameterValue           ExpressionKind = "ParameterValue"
	ExprStoredProcedureExecution ExpressionKind = "StoredProcedureExecution"
	ExprStoredProcedureOutput    ExpressionKind = "StoredProcedureOutput"
)

// ExpressionNode represents an intermediate computation: a function call, a
// CASE expression, a cast, an arithmetic calculation, and so on. Expression
// nodes are never deduplicated by name; each occurrence in the source is its
// own node.
type ExpressionNode struct {
	id string

	Name           string
	ExpressionKind ExpressionKind
	SqlText        string
	ResultType     string
	TableOwner     string
	Metadata       map[string]any
}

func (e *ExpressionNode) ID() string     { return e.id }
func (e *ExpressionNode) Kind() NodeKind { return KindExpression }

// NewExpressionNode constructs an ExpressionNode with the given id.
func NewExpressionNode(id, name string, kind ExpressionKind) *ExpressionNode {
	return &ExpressionNode{
		id:             id,
		Name:           name,
		ExpressionKind: kind,
		Metadata:       make(map[string]any),
	}
}
