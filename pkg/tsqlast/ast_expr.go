package tsqlast

import "github.com/lineagekit/tsql-lineage/pkg/tsqltoken"

// ---------- Names and literals ----------

// ColumnRef is a (possibly qualified) column reference, e.g. a.b.Column,
// Table.Column, or a bare Column.
type ColumnRef struct {
	NodeInfo
	Table  string // qualifier as written (may itself be multi-part, joined with '.')
	Column string
}

func (*ColumnRef) exprNode() {}

// Variable is a reference to a T-SQL local variable or parameter, @name, used
// in an expression position.
type Variable struct {
	NodeInfo
	Name string // without the leading '@'
}

func (*Variable) exprNode() {}

// LiteralKind classifies a Literal's underlying value.
type LiteralKind int

// Literal kinds.
const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBinary
	LiteralBool
	LiteralNull
)

// Literal is a constant value: a number, string, binary blob, boolean, or NULL.
type Literal struct {
	NodeInfo
	Kind  LiteralKind
	Value string // raw lexeme
}

func (*Literal) exprNode() {}

// StarExpr is '*' or 'table.*' in a SELECT list or COUNT(*) argument.
type StarExpr struct {
	NodeInfo
	Table string // empty for bare '*'
}

func (*StarExpr) exprNode() {}

// ---------- Operators ----------

// BinaryExpr is a binary operator expression: arithmetic, comparison, or
// boolean AND/OR.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    tsqltoken.Type
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a unary operator expression: -x, +x, NOT x.
type UnaryExpr struct {
	NodeInfo
	Op   tsqltoken.Type
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// ParenExpr is a parenthesized expression, kept distinct so extraction can
// unwrap it without losing the original span.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// ---------- Predicates ----------

// InExpr is 'expr [NOT] IN (values...)' or 'expr [NOT] IN (subquery)'.
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt // non-nil for the subquery form, mutually exclusive with Values
}

func (*InExpr) exprNode() {}

// BetweenExpr is 'expr [NOT] BETWEEN low AND high'.
type BetweenExpr struct {
	NodeInfo
	Expr      Expr
	Not       bool
	Low, High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr is 'expr IS [NOT] NULL'.
type IsNullExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// LikeExpr is 'expr [NOT] LIKE pattern [ESCAPE escapeChar]'.
type LikeExpr struct {
	NodeInfo
	Expr    Expr
	Not     bool
	Pattern Expr
	Escape  Expr // nil if no ESCAPE clause
}

func (*LikeExpr) exprNode() {}

// ExistsExpr is '[NOT] EXISTS (subquery)'.
type ExistsExpr struct {
	NodeInfo
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// SubqueryExpr is a scalar subquery used in an expression position.
type SubqueryExpr struct {
	NodeInfo
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ---------- Conditional / conversion expressions ----------
//
// These get their own node types, rather than being folded into FuncCall,
// because each has lineage semantics distinct from an ordinary function
// call: CASE branches are conditionally sourced, CAST/CONVERT preserve a
// single upstream column's identity, COALESCE/NULLIF merge multiple sources
// into one output.

// WhenClause is one WHEN ... THEN ... arm of a CaseExpr.
type WhenClause struct {
	Condition Expr // searched CASE: a boolean predicate; simple CASE: a comparison value
	Result    Expr
}

// CaseExpr is CASE [operand] WHEN ... THEN ... [ELSE ...] END. Operand is
// non-nil for the simple form (CASE x WHEN 1 THEN ...).
type CaseExpr struct {
	NodeInfo
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// CastExpr is CAST(expr AS type) or TRY_CAST(expr AS type).
type CastExpr struct {
	NodeInfo
	Expr     Expr
	TypeName string
	Try      bool
}

func (*CastExpr) exprNode() {}

// ConvertExpr is CONVERT(type, expr [, style]) or TRY_CONVERT(type, expr [, style]).
type ConvertExpr struct {
	NodeInfo
	TypeName string
	Expr     Expr
	Style    Expr // nil if no style argument
	Try      bool
}

func (*ConvertExpr) exprNode() {}

// CoalesceExpr is COALESCE(expr, expr, ...).
type CoalesceExpr struct {
	NodeInfo
	Args []Expr
}

func (*CoalesceExpr) exprNode() {}

// NullIfExpr is NULLIF(expr1, expr2).
type NullIfExpr struct {
	NodeInfo
	Expr1, Expr2 Expr
}

func (*NullIfExpr) exprNode() {}

// ---------- Function calls and windows ----------

// FuncCall is a scalar, aggregate, or window function invocation.
type FuncCall struct {
	NodeInfo
	Name     string // upper-cased by the parser
	Distinct bool
	Args     []Expr
	Star     bool // COUNT(*)
	Window   *WindowSpec
}

func (*FuncCall) exprNode() {}

// WindowSpec is the OVER (...) clause of a window function call.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameType is the unit of a window frame: ROWS or RANGE.
type FrameType int

// Frame types.
const (
	FrameRows FrameType = iota
	FrameRange
)

// FrameBoundKind classifies one edge of a window frame.
type FrameBoundKind int

// Frame bound kinds.
const (
	BoundUnboundedPreceding FrameBoundKind = iota
	BoundUnboundedFollowing
	BoundCurrentRow
	BoundExprPreceding
	BoundExprFollowing
)

// FrameBound is one edge (start or end) of a FrameSpec.
type FrameBound struct {
	Kind   FrameBoundKind
	Offset Expr // set only for BoundExprPreceding/BoundExprFollowing
}

// FrameSpec is ROWS|RANGE BETWEEN start AND end.
type FrameSpec struct {
	Type  FrameType
	Start FrameBound
	End   FrameBound
}
