// Package tsqlast defines the AST that the reference T-SQL parser
// (pkg/tsqlparser) produces and that the lineage extractor (internal/extractor)
// walks. It is the stable contract between parsing and extraction: anyone who
// wants to hand the extractor an AST built by a different parser only needs to
// produce these types.
package tsqlast

import "github.com/lineagekit/tsql-lineage/pkg/tsqltoken"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() tsqltoken.Position
	// End returns the start position of the first token after the node, so
	// the span can take in trailing whitespace and comments.
	End() tsqltoken.Position
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TableRef is a marker interface for items that can appear as a FROM-clause
// or join source: a table name, a derived table, a table variable, or a
// table-valued function call.
type TableRef interface {
	Node
	tableRefNode()
}

// NodeInfo carries the source span common to every AST node. Embed it in a
// node type and delegate Pos/End to it to satisfy Node.
type NodeInfo struct {
	Span tsqltoken.Span
}

// Pos returns the span's start position.
func (n NodeInfo) Pos() tsqltoken.Position { return n.Span.Start }

// End returns the span's end position.
func (n NodeInfo) End() tsqltoken.Position { return n.Span.End }
