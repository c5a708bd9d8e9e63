package extractor

import (
	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
)

// extractLeafColumnRefs recursively gathers every ColumnRef reachable from
// root, stopping at a nested SELECT (EXISTS/IN/scalar subquery): that
// subquery's own columns are not leaf references of the enclosing
// expression, since the subquery gets its own lineage when it is visited in
// its own right (see visitNestedSelects). Window function PARTITION
// BY/ORDER BY/frame bounds are excluded too, since those get their own
// partition/order/windowFrame operation tags rather than the generic
// "reference" tag this walk feeds.
//
// The walk uses an explicit slice-backed stack rather than recursive calls,
// so a pathologically deep expression tree degrades by hitting the
// configured traversal budget instead of exhausting the goroutine stack.
func (e *Extractor) extractLeafColumnRefs(root tsqlast.Expr) []*tsqlast.ColumnRef {
	if root == nil {
		return nil
	}
	var refs []*tsqlast.ColumnRef
	work := []tsqlast.Expr{root}
	budget := e.maxDepth() * 256
	visited := 0

	for len(work) > 0 {
		visited++
		if visited > budget {
			e.warnf(root.Pos(), "expression tree exceeds traversal budget, truncating leaf extraction")
			break
		}
		n := len(work) - 1
		expr := work[n]
		work = work[:n]

		switch x := expr.(type) {
		case nil:
		case *tsqlast.ColumnRef:
			refs = append(refs, x)
		case *tsqlast.BinaryExpr:
			work = append(work, x.Left, x.Right)
		case *tsqlast.UnaryExpr:
			work = append(work, x.Expr)
		case *tsqlast.ParenExpr:
			work = append(work, x.Expr)
		case *tsqlast.InExpr:
			work = append(work, x.Expr)
			work = append(work, x.Values...)
		case *tsqlast.BetweenExpr:
			work = append(work, x.Expr, x.Low, x.High)
		case *tsqlast.IsNullExpr:
			work = append(work, x.Expr)
		case *tsqlast.LikeExpr:
			work = append(work, x.Expr, x.Pattern)
			if x.Escape != nil {
				work = append(work, x.Escape)
			}
		case *tsqlast.CaseExpr:
			if x.Operand != nil {
				work = append(work, x.Operand)
			}
			for _, w := range x.Whens {
				work = append(work, w.Condition, w.Result)
			}
			if x.Else != nil {
				work = append(work, x.Else)
			}
		case *tsqlast.CastExpr:
			work = append(work, x.Expr)
		case *tsqlast.ConvertExpr:
			work = append(work, x.Expr)
			if x.Style != nil {
				work = append(work, x.Style)
			}
		case *tsqlast.CoalesceExpr:
			work = append(work, x.Args...)
		case *tsqlast.NullIfExpr:
			work = append(work, x.Expr1, x.Expr2)
		case *tsqlast.FuncCall:
			work = append(work, x.Args...)
		}
	}
	return refs
}

// linkLeafRefs resolves every leaf column reference under expr and emits an
// Indirect/reference edge from each into node.
func (e *Extractor) linkLeafRefs(node *lineagegraph.ExpressionNode, expr tsqlast.Expr) {
	for _, cr := range e.extractLeafColumnRefs(expr) {
		col, ok := e.resolveColumnRef(cr)
		if !ok {
			continue
		}
		e.addEdge(col.ID(), node.ID(), lineagegraph.Indirect, lineagegraph.OpReference, e.sqlText(cr))
	}
}

// linkWindowRefs tags node as a window function and links its
// PARTITION BY / ORDER BY / frame-bound column references with their own
// distinct operations, kept separate from the function's argument
// references.
func (e *Extractor) linkWindowRefs(node *lineagegraph.ExpressionNode, ws *tsqlast.WindowSpec) {
	if ws == nil {
		return
	}
	node.Metadata["WindowFunction"] = true

	for _, p := range ws.PartitionBy {
		e.linkIndirectLeaves(node, p, lineagegraph.OpPartition)
	}
	for _, o := range ws.OrderBy {
		e.linkIndirectLeaves(node, o.Expr, lineagegraph.OpOrder)
	}
	if ws.Frame != nil {
		if off := ws.Frame.Start.Offset; off != nil {
			e.linkIndirectLeaves(node, off, lineagegraph.OpWindowFrame)
		}
		if off := ws.Frame.End.Offset; off != nil {
			e.linkIndirectLeaves(node, off, lineagegraph.OpWindowFrame)
		}
	}
}

func (e *Extractor) linkIndirectLeaves(node *lineagegraph.ExpressionNode, expr tsqlast.Expr, op lineagegraph.Operation) {
	for _, cr := range e.extractLeafColumnRefs(expr) {
		col, ok := e.resolveColumnRef(cr)
		if !ok {
			continue
		}
		e.addEdge(col.ID(), node.ID(), lineagegraph.Indirect, op, e.sqlText(cr))
	}
}

// linkScalarExpr is the common path for "this expression's value flows into
// dst": a bare column reference becomes a single Direct edge (with type
// propagation when dst's type is still unknown); anything else becomes a
// fresh ExpressionNode, a Direct edge from that node to dst, and Indirect
// reference edges from every leaf column underneath it. When useShapeKind is
// true the new node's kind is inferred from the expression's own shape
// (used by SELECT-list and UPDATE SET projections, which can be any kind of
// expression); otherwise fixedKind is used verbatim (used by contexts the
// specification names a single expression kind for regardless of shape,
// like DEFAULT or computed-column values).
func (e *Extractor) linkScalarExpr(expr tsqlast.Expr, dst *lineagegraph.ColumnNode, op lineagegraph.Operation, fixedKind lineagegraph.ExpressionKind, useShapeKind bool) {
	if expr == nil || dst == nil {
		return
	}
	e.visitNestedSelects(expr)

	if cr, ok := expr.(*tsqlast.ColumnRef); ok {
		col, ok := e.resolveColumnRef(cr)
		if !ok {
			return
		}
		e.addEdge(col.ID(), dst.ID(), lineagegraph.Direct, op, e.sqlText(cr))
		propagateType(dst, col)
		return
	}

	kind := fixedKind
	if useShapeKind {
		kind = classifyExpressionKind(expr)
	}
	node := e.graph.NewExpression(kind, dst.Name)
	node.SqlText = e.sqlText(expr)
	node.TableOwner = dst.OwnerTableName

	e.addEdge(node.ID(), dst.ID(), lineagegraph.Direct, op, node.SqlText)
	e.linkLeafRefs(node, expr)

	if fc, ok := expr.(*tsqlast.FuncCall); ok && fc.Window != nil {
		e.linkWindowRefs(node, fc.Window)
	}
}

// visitNestedSelects finds every SELECT embedded in an expression position
// (EXISTS, IN (subquery), scalar subquery) and extracts it in its own
// right, so a correlated predicate's own column references get resolved
// and linked even though they never become leaf references of the
// enclosing expression. Unlike extractLeafColumnRefs this uses ordinary
// recursion: it only needs to reach SelectStmt nodes, which are far less
// densely nested than arithmetic/boolean trees.
func (e *Extractor) visitNestedSelects(expr tsqlast.Expr) {
	switch x := expr.(type) {
	case nil:
	case *tsqlast.ExistsExpr:
		if x.Select != nil {
			e.handleSelectStmt(x.Select)
		}
	case *tsqlast.SubqueryExpr:
		if x.Select != nil {
			e.handleSelectStmt(x.Select)
		}
	case *tsqlast.InExpr:
		if x.Query != nil {
			e.handleSelectStmt(x.Query)
		}
		e.visitNestedSelects(x.Expr)
		for _, v := range x.Values {
			e.visitNestedSelects(v)
		}
	case *tsqlast.BinaryExpr:
		e.visitNestedSelects(x.Left)
		e.visitNestedSelects(x.Right)
	case *tsqlast.UnaryExpr:
		e.visitNestedSelects(x.Expr)
	case *tsqlast.ParenExpr:
		e.visitNestedSelects(x.Expr)
	case *tsqlast.BetweenExpr:
		e.visitNestedSelects(x.Expr)
		e.visitNestedSelects(x.Low)
		e.visitNestedSelects(x.High)
	case *tsqlast.IsNullExpr:
		e.visitNestedSelects(x.Expr)
	case *tsqlast.LikeExpr:
		e.visitNestedSelects(x.Expr)
		e.visitNestedSelects(x.Pattern)
		e.visitNestedSelects(x.Escape)
	case *tsqlast.CaseExpr:
		e.visitNestedSelects(x.Operand)
		for _, w := range x.Whens {
			e.visitNestedSelects(w.Condition)
			e.visitNestedSelects(w.Result)
		}
		e.visitNestedSelects(x.Else)
	case *tsqlast.CastExpr:
		e.visitNestedSelects(x.Expr)
	case *tsqlast.ConvertExpr:
		e.visitNestedSelects(x.Expr)
		e.visitNestedSelects(x.Style)
	case *tsqlast.CoalesceExpr:
		for _, a := range x.Args {
			e.visitNestedSelects(a)
		}
	case *tsqlast.NullIfExpr:
		e.visitNestedSelects(x.Expr1)
		e.visitNestedSelects(x.Expr2)
	case *tsqlast.FuncCall:
		for _, a := range x.Args {
			e.visitNestedSelects(a)
		}
	}
}
