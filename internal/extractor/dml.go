package extractor

import (
	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/lineagescope"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
)

// resolveInsertTarget resolves an INSERT/UPDATE/DELETE/MERGE target table
// reference, honoring the '#'-temp-table naming convention the parser
// already classified onto TableName.Kind.
func (e *Extractor) resolveInsertTarget(tr tsqlast.TableRef) *lineagegraph.TableNode {
	return e.handleTableRef(tr)
}

// targetColumnsFor resolves the destination column list for an INSERT:
// the statement's explicit column list if given, otherwise the target
// table's own declared columns in order. A target with neither an explicit
// list nor any known declared columns cannot be mapped positionally; the
// caller is expected to warn and stop.
func (e *Extractor) targetColumnsFor(target *lineagegraph.TableNode, explicit []string) []*lineagegraph.ColumnNode {
	if len(explicit) > 0 {
		out := make([]*lineagegraph.ColumnNode, 0, len(explicit))
		for _, name := range explicit {
			out = append(out, e.graph.EnsureColumn(target.Name, name))
		}
		return out
	}
	if len(target.Columns) == 0 {
		return nil
	}
	out := make([]*lineagegraph.ColumnNode, 0, len(target.Columns))
	for _, id := range target.Columns {
		if n, ok := e.graph.GetNodeByID(id); ok {
			if c, ok := n.(*lineagegraph.ColumnNode); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// handleInsert dispatches on the statement's source form: VALUES maps each
// row's cells to target columns by position; SELECT recurses with the
// target columns pre-bound so the projection writes straight into them;
// EXEC treats each target column as fed by the called procedure's output.
func (e *Extractor) handleInsert(stmt *tsqlast.InsertStmt) {
	e.scope.WithFrame(lineagescope.Insert, func(f *lineagescope.Frame) error {
		target := e.resolveInsertTarget(stmt.Target)
		if target == nil {
			e.warnf(stmt.Pos(), "insert target could not be resolved")
			return nil
		}
		f.InsertTargetTable = target

		cols := e.targetColumnsFor(target, stmt.Columns)
		if cols == nil {
			e.warnf(stmt.Pos(), "insert target %q has no explicit column list and no known declared columns, skipping", target.Name)
			return nil
		}
		f.InsertTargetColumns = cols

		switch {
		case stmt.Values != nil:
			e.handleInsertValues(stmt.Values, cols)
		case stmt.Select != nil:
			e.handleSelectStmtInto(stmt.Select, target, cols, lineagegraph.OpInsert)
		case stmt.Exec != nil:
			e.handleInsertExec(stmt.Exec, cols)
		}
		return nil
	})
}

func (e *Extractor) handleInsertValues(rows [][]tsqlast.Expr, cols []*lineagegraph.ColumnNode) {
	for _, row := range rows {
		arity := len(row)
		if len(cols) < arity {
			arity = len(cols)
		}
		for i := 0; i < arity; i++ {
			e.linkScalarExpr(row[i], cols[i], lineagegraph.OpInsert, lineagegraph.ExprValue, false)
		}
	}
}

// handleInsertExec extracts the EXEC call itself, then treats each target
// column as populated by the procedure's output: a StoredProcedureOutput
// expression node per column, with a Direct insert edge into it.
func (e *Extractor) handleInsertExec(exec *tsqlast.ExecuteStmt, cols []*lineagegraph.ColumnNode) {
	e.handleExecute(exec)
	for _, col := range cols {
		node := e.graph.NewExpression(lineagegraph.ExprStoredProcedureOutput, col.Name)
		node.SqlText = e.sqlText(exec)
		node.TableOwner = col.OwnerTableName
		e.addEdge(node.ID(), col.ID(), lineagegraph.Direct, lineagegraph.OpInsert, node.SqlText)
	}
}

// handleUpdate processes the optional UPDATE...FROM join sources first (so
// SET expressions can reference them), then each assignment: the target
// column's prior source references are tracked per-assignment via
// ProcessingSourceColumns so a malformed SET list cannot bleed one
// assignment's sources into the next.
func (e *Extractor) handleUpdate(stmt *tsqlast.UpdateStmt) {
	e.scope.WithFrame(lineagescope.Update, func(f *lineagescope.Frame) error {
		target := e.resolveInsertTarget(stmt.Target)
		if target == nil {
			e.warnf(stmt.Pos(), "update target could not be resolved")
			return nil
		}
		f.ResultTable = target

		if stmt.From != nil {
			f.InFromClause = true
			e.handleFromClause(stmt.From)
			f.InFromClause = false
		}

		f.InUpdateSetClause = true
		for _, assign := range stmt.Assigns {
			e.handleUpdateAssign(target, assign)
		}
		f.InUpdateSetClause = false

		if stmt.Where != nil {
			f.InWhereClause = true
			e.visitNestedSelects(stmt.Where)
			for _, cr := range e.extractLeafColumnRefs(stmt.Where) {
				e.resolveColumnRef(cr)
			}
			f.InWhereClause = false
		}
		return nil
	})
}

func (e *Extractor) handleUpdateAssign(target *lineagegraph.TableNode, assign tsqlast.UpdateAssign) {
	f := e.scope.Current()
	f.ProcessingSourceColumns = true
	defer func() { f.ProcessingSourceColumns = false }()

	if assign.Variable != "" {
		col, ok := e.scope.LookupVariableOrParameter(assign.Variable)
		if !ok {
			col = e.graph.EnsureColumn("Variables", assign.Variable)
			e.scope.DeclareVariable(assign.Variable, col)
		}
		e.linkScalarExpr(assign.Expr, col, lineagegraph.OpAssign, lineagegraph.ExprAssignment, false)
		return
	}
	if assign.Column == "" {
		return
	}
	dst := e.graph.EnsureColumn(target.Name, assign.Column)
	f.CurrentTargetColumn = dst
	e.linkScalarExpr(assign.Expr, dst, lineagegraph.OpUpdate, "", true)
	f.CurrentTargetColumn = nil
}

// handleDelete resolves a DELETE's target and any join sources purely for
// scope and diagnostics; a row deletion has no output columns, so no
// lineage edges are emitted for it.
func (e *Extractor) handleDelete(stmt *tsqlast.DeleteStmt) {
	e.scope.WithFrame(lineagescope.Delete, func(f *lineagescope.Frame) error {
		target := e.resolveInsertTarget(stmt.Target)
		f.ResultTable = target
		if stmt.From != nil {
			e.handleFromClause(stmt.From)
		}
		if stmt.Where != nil {
			e.visitNestedSelects(stmt.Where)
		}
		return nil
	})
}

// handleMerge dispatches each WHEN clause to the handler for the statement
// shape it mirrors: WHEN MATCHED UPDATE behaves like an UPDATE (operation
// tagged merge-update), WHEN NOT MATCHED INSERT behaves like an
// INSERT...VALUES (operation tagged merge-insert), and WHEN MATCHED DELETE
// produces no edges, matching DELETE's own lineage-free handling.
func (e *Extractor) handleMerge(stmt *tsqlast.MergeStmt) {
	e.scope.WithFrame(lineagescope.Merge, func(f *lineagescope.Frame) error {
		target := e.resolveInsertTarget(stmt.Target)
		source := e.handleTableRef(stmt.Source)
		if target == nil {
			e.warnf(stmt.Pos(), "merge target could not be resolved")
			return nil
		}
		f.ResultTable = target
		_ = source

		if stmt.On != nil {
			f.InJoinCondition = true
			e.visitNestedSelects(stmt.On)
			e.handleJoinEquality(stmt.On, tsqlast.JoinInner)
			f.InJoinCondition = false
		}

		for _, clause := range stmt.Clauses {
			e.handleMergeClause(target, clause)
		}
		return nil
	})
}

func (e *Extractor) handleMergeClause(target *lineagegraph.TableNode, clause tsqlast.MergeClause) {
	switch clause.Action {
	case tsqlast.MergeUpdate:
		for _, assign := range clause.Assigns {
			e.handleUpdateAssignOp(target, assign, lineagegraph.OpMergeUpdate)
		}
	case tsqlast.MergeInsert:
		cols := e.targetColumnsFor(target, clause.Columns)
		if cols == nil {
			e.logger.Warn("merge insert has no explicit column list and target has no known declared columns, skipping", "table", target.Name)
			return
		}
		arity := len(clause.Values)
		if len(cols) < arity {
			arity = len(cols)
		}
		for i := 0; i < arity; i++ {
			e.linkScalarExpr(clause.Values[i], cols[i], lineagegraph.OpMergeInsert, lineagegraph.ExprValue, false)
		}
	case tsqlast.MergeDelete:
		// No output columns; matches DELETE's own lineage-free handling.
	}
}

func (e *Extractor) handleUpdateAssignOp(target *lineagegraph.TableNode, assign tsqlast.UpdateAssign, op lineagegraph.Operation) {
	if assign.Column == "" {
		return
	}
	dst := e.graph.EnsureColumn(target.Name, assign.Column)
	e.linkScalarExpr(assign.Expr, dst, op, "", true)
}
