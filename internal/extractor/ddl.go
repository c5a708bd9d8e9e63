package extractor

import (
	"fmt"
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
)

// handleCreateTable declares a new base (or temp, or table-variable) table
// and every column named in its definition, then its table-level foreign
// key constraints.
func (e *Extractor) handleCreateTable(stmt *tsqlast.CreateTableStmt) {
	if stmt.Table == nil {
		return
	}
	kind := tableKindFor(stmt.Table.Kind)
	table := e.graph.EnsureTable(stmt.Table.Name, stmt.Table.Schema, kind)
	table.OriginalDefinitionText = e.sqlText(stmt)

	for _, cd := range stmt.Columns {
		e.declareColumn(table, cd)
	}
	for _, fk := range stmt.ForeignKeys {
		e.declareForeignKey(table, fk)
	}
}

// bumpVersion increments a column's version counter in place rather than
// creating a fresh node for an altered column: edges attached to the column's
// id stay valid across the alter.
func bumpVersion(col *lineagegraph.ColumnNode) {
	v, _ := col.Metadata["Version"].(int)
	col.Metadata["Version"] = v + 1
}

func tableKindFor(k tsqlast.TableKind) lineagegraph.TableKind {
	switch k {
	case tsqlast.TableTemp, tsqlast.TableGlobalTemp:
		return lineagegraph.TempTable
	case tsqlast.TableVariable:
		return lineagegraph.TableVariable
	default:
		return lineagegraph.BaseTable
	}
}

// declareColumn creates col's ColumnNode, carrying its declared type and
// nullability, then links its DEFAULT or computed-column expression if it
// has one. A computed column only draws edges from references to columns
// on the same table, per SQL Server's restriction that a computed column
// cannot reference another table.
func (e *Extractor) declareColumn(table *lineagegraph.TableNode, cd tsqlast.ColumnDef) *lineagegraph.ColumnNode {
	col := e.graph.EnsureColumn(table.Name, cd.Name)
	if cd.TypeName != "" {
		col.DataType = cd.TypeName
	}
	if cd.Nullable != nil {
		col.Nullable = *cd.Nullable
	}
	if cd.PrimaryKey {
		col.Metadata["PrimaryKey"] = true
	}
	if cd.Unique {
		col.Metadata["Unique"] = true
	}

	switch {
	case cd.Computed != nil:
		col.IsComputed = true
		e.linkComputedColumn(table, col, cd.Computed)
	case cd.Default != nil:
		e.linkScalarExpr(cd.Default, col, lineagegraph.OpDefault, lineagegraph.ExprDefaultValue, false)
	}
	return col
}

// linkComputedColumn links a computed column's defining expression,
// restricting its leaf references to the same owning table: SQL Server
// does not allow a computed column to reference another table's columns,
// so a cross-table reference found here is dropped rather than linked.
func (e *Extractor) linkComputedColumn(table *lineagegraph.TableNode, col *lineagegraph.ColumnNode, expr tsqlast.Expr) {
	node := e.graph.NewExpression(lineagegraph.ExprComputedColumn, col.Name)
	node.SqlText = e.sqlText(expr)
	node.TableOwner = table.Name
	e.addEdge(node.ID(), col.ID(), lineagegraph.Direct, lineagegraph.OpCompute, node.SqlText)

	for _, cr := range e.extractLeafColumnRefs(expr) {
		if cr.Table != "" && !strings.EqualFold(cr.Table, table.Name) {
			e.warnf(cr.Pos(), "computed column %q on table %q ignores cross-table reference to %q", col.Name, table.Name, cr.Table)
			continue
		}
		source := e.graph.EnsureColumn(table.Name, cr.Column)
		e.addEdge(source.ID(), node.ID(), lineagegraph.Indirect, lineagegraph.OpReference, e.sqlText(cr))
	}
}

// declareForeignKey ensures every referenced column exists, links the
// local columns to them with a foreignKey edge, and annotates the local
// columns' metadata with what they reference.
func (e *Extractor) declareForeignKey(table *lineagegraph.TableNode, fk tsqlast.ForeignKeyDef) {
	if fk.RefTable == nil {
		return
	}
	refTable := e.graph.EnsureTable(fk.RefTable.Name, fk.RefTable.Schema, lineagegraph.BaseTable)

	arity := len(fk.Columns)
	if len(fk.RefColumns) < arity {
		arity = len(fk.RefColumns)
	}
	for i := 0; i < arity; i++ {
		local := e.graph.EnsureColumn(table.Name, fk.Columns[i])
		ref := e.graph.EnsureColumn(refTable.Name, fk.RefColumns[i])
		e.addEdge(local.ID(), ref.ID(), lineagegraph.Direct, lineagegraph.OpForeignKey, fmt.Sprintf("%s.%s -> %s.%s", table.Name, local.Name, refTable.Name, ref.Name))
		local.Metadata["ReferencesTable"] = refTable.Name
		local.Metadata["ReferencesColumn"] = ref.Name
	}
}

// handleSelectInto creates the target table first (its kind determined by
// the '#' naming convention like any other table reference), recurses the
// query for its own source lineage, and infers the target's columns from
// the projection using the same column-naming rules a CTE uses.
func (e *Extractor) handleSelectInto(stmt *tsqlast.SelectIntoStmt) {
	if stmt.Target == nil {
		return
	}
	table := e.graph.EnsureTable(stmt.Target.Name, stmt.Target.Schema, tableKindFor(stmt.Target.Kind))
	e.handleSelectStmtInto(stmt.Select, table, nil, lineagegraph.OpSelect)
}

// handleAlterTable dispatches on the ALTER action. ADD COLUMN/ADD FOREIGN
// KEY reuse the CREATE TABLE declaration paths unchanged. ALTER COLUMN
// updates the existing ColumnNode's type/nullability in place, preserving
// its id and every edge already attached to it, and records the previous
// type in metadata. DROP COLUMN never removes the node: it is marked
// dropped in metadata so prior lineage involving it stays intact.
func (e *Extractor) handleAlterTable(stmt *tsqlast.AlterTableStmt) {
	if stmt.Table == nil {
		return
	}
	table := e.graph.EnsureTable(stmt.Table.Name, stmt.Table.Schema, lineagegraph.BaseTable)

	switch stmt.Action {
	case tsqlast.AlterAddColumn:
		if stmt.Column != nil {
			e.declareColumn(table, *stmt.Column)
		}
	case tsqlast.AlterAlterColumn:
		if stmt.Column == nil {
			return
		}
		col := e.graph.EnsureColumn(table.Name, stmt.Column.Name)
		if stmt.Column.TypeName != "" && stmt.Column.TypeName != col.DataType {
			col.Metadata["PreviousDataType"] = col.DataType
			col.DataType = stmt.Column.TypeName
			bumpVersion(col)
		}
		if stmt.Column.Nullable != nil {
			col.Nullable = *stmt.Column.Nullable
		}
	case tsqlast.AlterDropColumn:
		if stmt.DropColumn == "" {
			return
		}
		col := e.graph.EnsureColumn(table.Name, stmt.DropColumn)
		col.Metadata["Dropped"] = true
		col.Metadata["DroppedAt"] = e.sqlText(stmt)
	case tsqlast.AlterAddForeignKey:
		if stmt.ForeignKey != nil {
			e.declareForeignKey(table, *stmt.ForeignKey)
		}
	}
}
