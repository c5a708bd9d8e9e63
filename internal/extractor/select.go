package extractor

import (
	"fmt"
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/lineagescope"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// handleSelectStmt extracts lineage for a standalone SELECT: its own
// result rows land in a freshly synthesized derived table, "Select_<uid>".
func (e *Extractor) handleSelectStmt(stmt *tsqlast.SelectStmt) *lineagegraph.TableNode {
	return e.handleSelectStmtInto(stmt, nil, nil, lineagegraph.OpSelect)
}

// handleSelectStmtInto extracts lineage for stmt. When target is non-nil,
// the projection writes into target's own columns instead of a freshly
// synthesized one: by position, against targetColumns, when targetColumns
// is given (the INSERT...SELECT and explicit-column-list CTE paths), or by
// name inference otherwise (plain CTEs and derived tables, whose column
// identity is discovered from the projection itself). This implements the
// specification's seven-step SELECT handler: push a frame, WITH/CTEs
// first, then FROM, then the source-only WHERE/GROUP BY/HAVING clauses,
// then the SELECT list (so unqualified columns resolve against every
// joined source), then ORDER BY/OFFSET, then pop.
func (e *Extractor) handleSelectStmtInto(stmt *tsqlast.SelectStmt, target *lineagegraph.TableNode, targetColumns []*lineagegraph.ColumnNode, op lineagegraph.Operation) *lineagegraph.TableNode {
	if stmt == nil {
		return target
	}
	if e.scope.Depth() > e.maxDepth() {
		e.warnf(stmt.Pos(), "nested query depth exceeds configured limit of %d, skipping", e.maxDepth())
		return target
	}

	result := target
	e.scope.WithFrame(lineagescope.Select, func(f *lineagescope.Frame) error {
		if result == nil {
			result = e.graph.EnsureTable(fmt.Sprintf("Select_%d", e.nextUID()), "", lineagegraph.DerivedTable)
		}
		f.ResultTable = result
		f.InsertTargetTable = target
		f.InsertTargetColumns = targetColumns

		if stmt.With != nil {
			e.handleWithClause(stmt.With)
		}
		e.handleSelectBody(stmt.Body, result, targetColumns, op)
		return nil
	})
	return result
}

func (e *Extractor) handleSelectBody(body *tsqlast.SelectBody, target *lineagegraph.TableNode, targetColumns []*lineagegraph.ColumnNode, op lineagegraph.Operation) {
	if body == nil {
		return
	}
	e.handleSelectCore(body.Left, target, targetColumns, op)
	if body.Op != tsqlast.SetOpNone && body.Right != nil {
		e.handleSelectBody(body.Right, target, targetColumns, op)
	}
}

// handleSelectCore drives the Start -> From -> Where -> GroupBy -> Having ->
// SelectList -> OrderBy -> End state machine, entering only the states
// whose clause is actually present.
func (e *Extractor) handleSelectCore(core *tsqlast.SelectCore, target *lineagegraph.TableNode, targetColumns []*lineagegraph.ColumnNode, op lineagegraph.Operation) {
	if core == nil {
		return
	}
	f := e.scope.Current()

	if core.From != nil {
		f.InFromClause = true
		e.handleFromClause(core.From)
		f.InFromClause = false
	}
	if core.Where != nil {
		f.InWhereClause = true
		e.visitNestedSelects(core.Where)
		for _, cr := range e.extractLeafColumnRefs(core.Where) {
			e.resolveColumnRef(cr)
		}
		f.InWhereClause = false
	}
	if len(core.GroupBy) > 0 {
		f.InGroupBy = true
		for _, g := range core.GroupBy {
			e.visitNestedSelects(g)
			for _, cr := range e.extractLeafColumnRefs(g) {
				e.resolveColumnRef(cr)
			}
		}
		f.InGroupBy = false
	}
	if core.Having != nil {
		f.InHaving = true
		e.visitNestedSelects(core.Having)
		for _, cr := range e.extractLeafColumnRefs(core.Having) {
			e.resolveColumnRef(cr)
		}
		f.InHaving = false
	}

	f.InSelectList = true
	e.handleSelectList(core.Columns, target, targetColumns, op)
	f.InSelectList = false

	if len(core.OrderBy) > 0 {
		f.InOrderBy = true
		for _, o := range core.OrderBy {
			e.visitNestedSelects(o.Expr)
			for _, cr := range e.extractLeafColumnRefs(o.Expr) {
				e.resolveColumnRef(cr)
			}
		}
		f.InOrderBy = false
	}
	if core.Offset != nil {
		e.visitNestedSelects(core.Offset)
	}
	if core.Top != nil && core.Top.Count != nil {
		e.visitNestedSelects(core.Top.Count)
	}
}

// selectItemName infers the output column name for a SELECT item that has
// no predetermined target column: the "column = expr" assignment name, the
// AS alias, the bare column's own name, or a positional Col<N> placeholder
// for an unnamed complex expression.
func selectItemName(item tsqlast.SelectItem, index int) string {
	if item.ColumnAssign != "" {
		return item.ColumnAssign
	}
	if item.Alias != "" {
		return item.Alias
	}
	if cr, ok := item.Expr.(*tsqlast.ColumnRef); ok {
		return cr.Column
	}
	return fmt.Sprintf("Col%d", index+1)
}

// handleSelectList processes the SELECT list after every context-setting
// clause has registered its tables, so an unqualified column resolves
// against the full set of joined sources. A bare ColumnRef produces a
// single Direct edge (with type propagation when the target's type is
// still unknown); any other expression becomes an ExpressionNode with a
// Direct edge from it plus Indirect reference edges from its leaves.
func (e *Extractor) handleSelectList(items []tsqlast.SelectItem, target *lineagegraph.TableNode, targetColumns []*lineagegraph.ColumnNode, op lineagegraph.Operation) {
	positional := targetColumns != nil
	colIndex := 0

	project := func(name string, sourceCol *lineagegraph.ColumnNode, item *tsqlast.SelectItem) {
		var dst *lineagegraph.ColumnNode
		switch {
		case positional:
			if colIndex >= len(targetColumns) {
				e.logger.Warn("select list produces more columns than the target has", "column", name)
				colIndex++
				return
			}
			dst = targetColumns[colIndex]
		case target != nil:
			dst = e.graph.EnsureColumn(target.Name, name)
		}
		colIndex++
		if dst == nil {
			return
		}

		if sourceCol != nil {
			e.addEdge(sourceCol.ID(), dst.ID(), lineagegraph.Direct, op, name)
			propagateType(dst, sourceCol)
			return
		}
		if item != nil {
			e.scope.Current().CurrentTargetColumn = dst
			e.linkScalarExpr(item.Expr, dst, op, "", true)
			e.scope.Current().CurrentTargetColumn = nil
		}
	}

	for i := range items {
		item := items[i]
		switch {
		case item.Star:
			for _, col := range e.expandStarColumns("") {
				project(col.Name, col, nil)
			}
		case item.TableStar != "":
			for _, col := range e.expandStarColumns(item.TableStar) {
				project(col.Name, col, nil)
			}
		default:
			project(selectItemName(item, colIndex), nil, &item)
		}
	}
}

// expandStarColumns resolves the columns a SELECT * (or table.*) expands
// to. A qualified star enumerates the resolved table's known columns; an
// unqualified star enumerates every visible table in the current frame
// other than the frame's own result table, in FROM-clause registration
// order. A table with no known columns expands to nothing, logged, rather
// than failing the statement.
func (e *Extractor) expandStarColumns(qualifier string) []*lineagegraph.ColumnNode {
	f := e.scope.Current()
	if qualifier != "" {
		t, ok := e.scope.ResolveTable(qualifier)
		if !ok {
			e.logger.Warn("select * qualifier does not resolve to a visible table", "qualifier", qualifier)
			return nil
		}
		return e.columnsOf(t)
	}

	var out []*lineagegraph.ColumnNode
	for _, t := range f.VisibleTablesInOrder() {
		if f.ResultTable != nil && t.ID() == f.ResultTable.ID() {
			continue
		}
		out = append(out, e.columnsOf(t)...)
	}
	return out
}

func (e *Extractor) columnsOf(t *lineagegraph.TableNode) []*lineagegraph.ColumnNode {
	if len(t.Columns) == 0 {
		e.logger.Warn("select * expands a table with no known columns", "table", t.Name)
		return nil
	}
	out := make([]*lineagegraph.ColumnNode, 0, len(t.Columns))
	for _, id := range t.Columns {
		if n, ok := e.graph.GetNodeByID(id); ok {
			if c, ok := n.(*lineagegraph.ColumnNode); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// handleWithClause extracts every CTE in a WITH clause, in source order, so
// a later CTE can reference an earlier one in the same clause.
func (e *Extractor) handleWithClause(with *tsqlast.WithClause) {
	if with == nil {
		return
	}
	for _, cte := range with.CTEs {
		e.handleCTE(cte)
	}
}

// handleCTE registers name AS (select) as a CTE table. Self-reference (for
// a recursive CTE) is registered before the body is recursed into. Column
// identity comes from an explicit column list when the CTE declares one;
// otherwise each projected column is created and named the way
// handleSelectList infers names for any other target-less projection.
func (e *Extractor) handleCTE(cte *tsqlast.CTE) {
	if cte == nil || cte.Select == nil {
		return
	}
	table := e.graph.EnsureTable(cte.Name, "", lineagegraph.CTE)
	e.scope.RegisterCTE(cte.Name, table)

	var targetColumns []*lineagegraph.ColumnNode
	if len(cte.Columns) > 0 {
		targetColumns = make([]*lineagegraph.ColumnNode, 0, len(cte.Columns))
		for _, name := range cte.Columns {
			targetColumns = append(targetColumns, e.graph.EnsureColumn(table.Name, name))
		}
	}

	e.handleSelectStmtInto(cte.Select, table, targetColumns, lineagegraph.OpCte)
	e.scope.RegisterTable(cte.Name, table)
}

// handleFromClause resolves the FROM source and every joined table, then
// scans each join's ON condition for equality terms that link two
// different tables' columns.
func (e *Extractor) handleFromClause(from *tsqlast.FromClause) {
	if from == nil {
		return
	}
	e.handleTableRef(from.Source)
	for _, j := range from.Joins {
		e.handleTableRef(j.Right)
		if j.Condition != nil {
			f := e.scope.Current()
			f.InJoinCondition = true
			e.visitNestedSelects(j.Condition)
			e.handleJoinEquality(j.Condition, j.Type)
			f.InJoinCondition = false
		}
	}
}

// handleJoinEquality walks the top-level AND-conjunction of a join
// condition (through parentheses), and for every "a.x = b.y" equality term
// whose two sides resolve to different tables, emits a bidirectional pair
// of Join edges: a join predicate links both columns symmetrically, unlike
// a SELECT projection's one-way flow.
func (e *Extractor) handleJoinEquality(cond tsqlast.Expr, joinType tsqlast.JoinType) {
	for _, term := range gatherAndTerms(cond) {
		be, ok := term.(*tsqlast.BinaryExpr)
		if !ok || be.Op != tsqltoken.EQ {
			continue
		}
		lcr, lok := be.Left.(*tsqlast.ColumnRef)
		rcr, rok := be.Right.(*tsqlast.ColumnRef)
		if !lok || !rok {
			continue
		}
		lcol, lok := e.resolveColumnRef(lcr)
		rcol, rok := e.resolveColumnRef(rcr)
		if !lok || !rok {
			continue
		}
		if strings.EqualFold(lcol.OwnerTableName, rcol.OwnerTableName) {
			continue
		}
		text := e.sqlText(be)
		e.addEdge(lcol.ID(), rcol.ID(), lineagegraph.Indirect, lineagegraph.OpJoin, text)
		e.addEdge(rcol.ID(), lcol.ID(), lineagegraph.Indirect, lineagegraph.OpJoin, text)
	}
	_ = joinType // join type distinguishes no further graph shape today; kept for sqlText context.
}

func gatherAndTerms(expr tsqlast.Expr) []tsqlast.Expr {
	switch x := expr.(type) {
	case *tsqlast.ParenExpr:
		return gatherAndTerms(x.Expr)
	case *tsqlast.BinaryExpr:
		if x.Op == tsqltoken.AND {
			return append(gatherAndTerms(x.Left), gatherAndTerms(x.Right)...)
		}
		return []tsqlast.Expr{x}
	default:
		return []tsqlast.Expr{expr}
	}
}

func (e *Extractor) handleTableRef(tr tsqlast.TableRef) *lineagegraph.TableNode {
	switch t := tr.(type) {
	case *tsqlast.TableName:
		return e.handleTableName(t)
	case *tsqlast.DerivedTable:
		return e.handleDerivedTable(t)
	case *tsqlast.TableValuedFunc:
		return e.handleTableValuedFunc(t)
	default:
		return nil
	}
}

// handleTableName resolves a NamedTableReference: a previously registered
// CTE by name, or else a real table/temp table/table variable, created on
// first reference. Either way the table is registered into the current
// frame under its alias (or its own name, if unaliased).
func (e *Extractor) handleTableName(t *tsqlast.TableName) *lineagegraph.TableNode {
	if cte, ok := e.scope.ResolveCTE(t.Name); ok {
		e.scope.RegisterTable(t.Alias, cte)
		return cte
	}
	kind := lineagegraph.BaseTable
	switch t.Kind {
	case tsqlast.TableTemp, tsqlast.TableGlobalTemp:
		kind = lineagegraph.TempTable
	case tsqlast.TableVariable:
		kind = lineagegraph.TableVariable
	}
	table := e.graph.EnsureTable(t.Name, t.Schema, kind)
	e.scope.RegisterTable(t.Alias, table)
	return table
}

// handleDerivedTable recurses into a subquery FROM source as its own Select
// frame, with the alias acting as a CTE-like TableNode that owns the
// subquery's projected columns.
func (e *Extractor) handleDerivedTable(t *tsqlast.DerivedTable) *lineagegraph.TableNode {
	alias := t.Alias
	if alias == "" {
		alias = fmt.Sprintf("Derived_%d", e.nextUID())
	}
	table := e.graph.EnsureTable(alias, "", lineagegraph.DerivedTable)
	e.handleSelectStmtInto(t.Select, table, nil, lineagegraph.OpSelect)
	e.scope.RegisterTable(alias, table)
	return table
}

// handleTableValuedFunc registers a table-valued function call's alias as a
// visible table. Its column set is unknown until later references fill it
// in via EnsureColumn; its arguments are resolved for correlated column
// references (e.g. CROSS APPLY) even though a function call is not itself
// a column-producing expression.
func (e *Extractor) handleTableValuedFunc(t *tsqlast.TableValuedFunc) *lineagegraph.TableNode {
	alias := t.Alias
	if alias == "" {
		alias = t.Name
	}
	table := e.graph.EnsureTable(alias, "", lineagegraph.DerivedTable)
	for _, arg := range t.Args {
		e.visitNestedSelects(arg)
		for _, cr := range e.extractLeafColumnRefs(arg) {
			e.resolveColumnRef(cr)
		}
	}
	e.scope.RegisterTable(alias, table)
	return table
}
