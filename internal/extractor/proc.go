package extractor

import (
	"fmt"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/lineagescope"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
)

// handleCreateProcedure declares the procedure as a TableNode (schema-
// qualified when given), declares each parameter as a ColumnNode tagged
// with its direction, then recurses the body under a ProcedureBody frame
// that carries the procedure's name for DECLARE/variable ownership.
func (e *Extractor) handleCreateProcedure(stmt *tsqlast.CreateProcedureStmt) {
	name := stmt.Name
	table := e.graph.EnsureTable(name, "", lineagegraph.StoredProcedure)

	for _, p := range stmt.Params {
		col := e.graph.EnsureColumn(table.Name, p.Name)
		if p.TypeName != "" {
			col.DataType = p.TypeName
		}
		if p.Output {
			col.Metadata["Direction"] = lineagegraph.DirectionOutput
		} else {
			col.Metadata["Direction"] = lineagegraph.DirectionInput
		}
		if p.Default != nil {
			e.linkScalarExpr(p.Default, col, lineagegraph.OpDefault, lineagegraph.ExprDefaultValue, false)
		}
	}

	prevProc := e.currentProcedure
	e.currentProcedure = table.Name
	defer func() { e.currentProcedure = prevProc }()

	e.scope.WithFrame(lineagescope.ProcedureBody, func(f *lineagescope.Frame) error {
		for _, p := range stmt.Params {
			if col, ok := e.graph.GetColumnNode(table.Name, p.Name); ok {
				e.scope.DeclareParameter(p.Name, col)
			}
		}
		if stmt.Body != nil {
			e.visitStmt(stmt.Body)
		}
		return nil
	})
}

// handleDeclare processes one or more DECLARE variables. A
// "DECLARE @t TABLE (...)" form declares a table variable with its own
// columns, following the same column declaration path CREATE TABLE uses;
// an ordinary "DECLARE @v type [= expr]" form declares a scalar variable,
// owned by the current procedure if one is active, or by the synthetic
// "Variables" owner at batch scope, and links its initializer if given.
func (e *Extractor) handleDeclare(stmt *tsqlast.DeclareStmt) {
	for _, v := range stmt.Variables {
		if v.TableColumns != nil {
			e.declareTableVariable(v)
			continue
		}
		owner := e.variableOwner()
		col := e.graph.EnsureColumn(owner, v.Name)
		if v.TypeName != "" {
			col.DataType = v.TypeName
		}
		e.scope.DeclareVariable(v.Name, col)
		if v.Default != nil {
			e.linkScalarExpr(v.Default, col, lineagegraph.OpAssign, lineagegraph.ExprInitialValue, false)
		}
	}
}

func (e *Extractor) variableOwner() string {
	if e.currentProcedure != "" {
		return e.currentProcedure
	}
	return "Variables"
}

// declareTableVariable parses "col type, col type, ..." pairs out of the
// declaration's raw column spec list (the parser keeps each entry as a
// single "name type" token run) and declares the table and its columns.
func (e *Extractor) declareTableVariable(v tsqlast.DeclareVariable) {
	table := e.graph.EnsureTable(v.Name, "", lineagegraph.TableVariable)
	for _, spec := range v.TableColumns {
		name, typ := splitColumnSpec(spec)
		col := e.graph.EnsureColumn(table.Name, name)
		if typ != "" {
			col.DataType = typ
		}
	}
	// No scope.DeclareVariable call: a table variable is resolved by name
	// through Graph.EnsureTable when a later FROM clause references it
	// (handleTableName), the same path any other table reference takes.
}

func splitColumnSpec(spec string) (name, typ string) {
	for i, r := range spec {
		if r == ' ' || r == '\t' {
			return spec[:i], trimLeadingSpace(spec[i+1:])
		}
	}
	return spec, ""
}

func trimLeadingSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

// handleSet resolves (lazily declaring, if needed) the target variable and
// links the assignment's right-hand side into it.
func (e *Extractor) handleSet(stmt *tsqlast.SetStmt) {
	col, ok := e.scope.LookupVariableOrParameter(stmt.Variable)
	if !ok {
		col = e.graph.EnsureColumn(e.variableOwner(), stmt.Variable)
		e.scope.DeclareVariable(stmt.Variable, col)
	}
	e.linkScalarExpr(stmt.Expr, col, lineagegraph.OpAssign, lineagegraph.ExprAssignment, false)
}

// handleExecute extracts an EXEC call: a StoredProcedureExecution
// expression node represents the call itself, and each actual argument is
// linked into a ColumnNode standing in for the corresponding formal
// parameter of the called procedure (created lazily if the callee was
// never seen as a CREATE PROCEDURE in this graph), via a parameter edge
// from the argument's source into the parameter and an execute edge from
// the parameter into the call expression.
func (e *Extractor) handleExecute(stmt *tsqlast.ExecuteStmt) *lineagegraph.ExpressionNode {
	callee := e.graph.EnsureTable(stmt.Procedure, "", lineagegraph.StoredProcedure)
	call := e.graph.NewExpression(lineagegraph.ExprStoredProcedureExecution, stmt.Procedure)
	call.SqlText = e.sqlText(stmt)
	call.TableOwner = callee.Name

	for i, arg := range stmt.Args {
		paramName := arg.Name
		if paramName == "" {
			paramName = fmt.Sprintf("@Param%d", i+1)
		}
		param := e.graph.EnsureColumn(callee.Name, paramName)

		e.visitNestedSelects(arg.Expr)
		switch x := arg.Expr.(type) {
		case *tsqlast.ColumnRef:
			if src, ok := e.resolveColumnRef(x); ok {
				e.addEdge(src.ID(), param.ID(), lineagegraph.Direct, lineagegraph.OpParameter, e.sqlText(x))
			}
		case *tsqlast.Variable:
			if src, ok := e.scope.LookupVariableOrParameter(x.Name); ok {
				e.addEdge(src.ID(), param.ID(), lineagegraph.Direct, lineagegraph.OpParameter, e.sqlText(x))
			}
		default:
			node := e.graph.NewExpression(lineagegraph.ExprParameterValue, paramName)
			node.SqlText = e.sqlText(arg.Expr)
			node.TableOwner = callee.Name
			e.addEdge(node.ID(), param.ID(), lineagegraph.Direct, lineagegraph.OpParameter, node.SqlText)
			e.linkLeafRefs(node, arg.Expr)
		}
		e.addEdge(param.ID(), call.ID(), lineagegraph.Direct, lineagegraph.OpExecute, call.SqlText)

		if arg.Output {
			if outVar, ok := e.scope.LookupVariableOrParameter(paramName); ok {
				e.addEdge(param.ID(), outVar.ID(), lineagegraph.Direct, lineagegraph.OpExecute, call.SqlText)
			}
		}
	}
	return call
}

func (e *Extractor) handleIf(stmt *tsqlast.IfStmt) {
	e.visitNestedSelects(stmt.Condition)
	for _, cr := range e.extractLeafColumnRefs(stmt.Condition) {
		e.resolveColumnRef(cr)
	}
	if stmt.Then != nil {
		e.visitStmt(stmt.Then)
	}
	if stmt.Else != nil {
		e.visitStmt(stmt.Else)
	}
}

func (e *Extractor) handleWhile(stmt *tsqlast.WhileStmt) {
	e.visitNestedSelects(stmt.Condition)
	for _, cr := range e.extractLeafColumnRefs(stmt.Condition) {
		e.resolveColumnRef(cr)
	}
	if stmt.Body != nil {
		e.visitStmt(stmt.Body)
	}
}

func (e *Extractor) handleBlock(stmt *tsqlast.BlockStmt) {
	for _, s := range stmt.Statements {
		e.visitStmt(s)
	}
}

// handlePrint resolves the references in a PRINT expression for
// diagnostics and scope side effects; PRINT writes to the client message
// stream, not to any column, so it produces no lineage edges.
func (e *Extractor) handlePrint(stmt *tsqlast.PrintStmt) {
	e.visitNestedSelects(stmt.Expr)
	for _, cr := range e.extractLeafColumnRefs(stmt.Expr) {
		e.resolveColumnRef(cr)
	}
}
