// Package extractor walks a parsed T-SQL batch and records the column-level
// lineage it finds into a lineagegraph.Graph, using a lineagescope.Stack to
// track which tables and columns are in scope at each point in the
// traversal.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/lineagekit/tsql-lineage/internal/invariant"
	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
	"github.com/lineagekit/tsql-lineage/pkg/lineagescope"
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// Options configures one extraction run.
type Options struct {
	ExtractTableReferences  bool
	ExtractColumnReferences bool
	UseQuotedIdentifiers    bool
	MaxNestedQueryDepth     int
	Logger                  *slog.Logger
}

// Diagnostic is a non-fatal condition surfaced during extraction: an
// unresolved reference, a malformed subtree that was skipped, or a
// traversal limit that was hit. Diagnostics never stop a batch from being
// extracted; they are collected for the caller to report alongside the
// resulting graph.
type Diagnostic struct {
	Message string
	Line    int
	Column  int
}

// Extractor walks a parsed batch's statements and records the column
// lineage it finds into a shared Graph. One Extractor instance is reused
// across every batch of a script: ExtractBatch resets its Stack per call, so
// batch-local state (variables, parameters, visible tables) never leaks
// across a GO separator, while the Graph itself accumulates across the
// whole script the way table and column identity persists in a real
// database session.
type Extractor struct {
	graph  *lineagegraph.Graph
	scope  *lineagescope.Stack
	opts   Options
	logger *slog.Logger
	source string
	diags  []Diagnostic
	uidSeq atomic.Int64

	currentProcedure string
}

// New returns an Extractor writing into graph, configured by opts.
func New(graph *lineagegraph.Graph, opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		graph:  graph,
		scope:  lineagescope.NewStack(),
		opts:   opts,
		logger: logger,
	}
}

// Diagnostics returns every warning accumulated across every ExtractBatch
// call made on this Extractor so far.
func (e *Extractor) Diagnostics() []Diagnostic {
	return e.diags
}

// ExtractBatch walks every statement in stmts against a fresh scope,
// resolving column references and slicing SqlText spans out of source (the
// batch's own verbatim text). Cancellation is checked once per statement,
// matching the specification's batch-boundary-and-statement-entry
// cancellation granularity.
func (e *Extractor) ExtractBatch(ctx context.Context, source string, stmts []tsqlast.Stmt) {
	e.source = source
	e.scope = lineagescope.NewStack()
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if ctx.Err() != nil {
			e.warnAt(0, 0, "extraction cancelled before statement at offset %d", stmt.Pos().Offset)
			return
		}
		e.visitStmt(stmt)
	}
}

func (e *Extractor) nextUID() int64 {
	return e.uidSeq.Add(1)
}

func (e *Extractor) maxDepth() int {
	if e.opts.MaxNestedQueryDepth > 0 {
		return e.opts.MaxNestedQueryDepth
	}
	return 32
}

// sqlText slices the verbatim source text spanned by n. It returns "" for a
// nil node or a span that does not fit the current batch's source, which
// can happen for a synthetic node the extractor builds itself rather than
// one the parser produced.
func (e *Extractor) sqlText(n tsqlast.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.Pos().Offset, n.End().Offset
	if start < 0 || end > len(e.source) || start > end {
		return ""
	}
	return e.source[start:end]
}

func (e *Extractor) warnAt(line, column int, format string, args ...any) {
	e.diags = append(e.diags, Diagnostic{Message: fmt.Sprintf(format, args...), Line: line, Column: column})
}

func (e *Extractor) warnf(pos tsqltoken.Position, format string, args ...any) {
	e.warnAt(pos.Line, pos.Column, format, args...)
}

// addEdge wraps Graph.AddEdge, reporting rather than propagating the only
// error AddEdge can return here (a dangling endpoint) through
// invariant.Check: a panic in debug builds, a logged warning otherwise. By
// construction both endpoints are nodes this extractor itself just created
// or resolved.
func (e *Extractor) addEdge(sourceID, targetID string, kind lineagegraph.EdgeKind, op lineagegraph.Operation, sqlExpression string) {
	if _, err := e.graph.AddEdge(sourceID, targetID, kind, op, sqlExpression); err != nil {
		invariant.Check(e.logger, false, "lineage edge not recorded: %v", err)
	}
}

func propagateType(dst, src *lineagegraph.ColumnNode) {
	if dst.DataType == "unknown" && src.DataType != "unknown" {
		dst.DataType = src.DataType
	}
}

// columnRefParts splits a ColumnRef into the ordered identifier parts
// lineagescope.Stack.ResolveColumn expects: zero or more qualifiers
// followed by the column name.
func columnRefParts(cr *tsqlast.ColumnRef) []string {
	if cr.Table == "" {
		return []string{cr.Column}
	}
	return append(strings.Split(cr.Table, "."), cr.Column)
}

func (e *Extractor) resolveColumnRef(cr *tsqlast.ColumnRef) (*lineagegraph.ColumnNode, bool) {
	col, err := e.scope.ResolveColumn(e.graph, columnRefParts(cr))
	if err != nil {
		e.warnf(cr.Pos(), "unresolved column reference %q: %v", cr.Column, err)
		return nil, false
	}
	return col, true
}

func classifyExpressionKind(expr tsqlast.Expr) lineagegraph.ExpressionKind {
	switch expr.(type) {
	case *tsqlast.FuncCall:
		return lineagegraph.ExprFunction
	case *tsqlast.CaseExpr:
		return lineagegraph.ExprCase
	case *tsqlast.CoalesceExpr:
		return lineagegraph.ExprCoalesce
	case *tsqlast.NullIfExpr:
		return lineagegraph.ExprNullIf
	case *tsqlast.CastExpr:
		return lineagegraph.ExprCast
	case *tsqlast.ConvertExpr:
		return lineagegraph.ExprConvert
	case *tsqlast.BinaryExpr:
		return lineagegraph.ExprCalculation
	case *tsqlast.UnaryExpr:
		return lineagegraph.ExprUnary
	case *tsqlast.ParenExpr:
		return lineagegraph.ExprGrouped
	default:
		return lineagegraph.ExprValue
	}
}

// visitStmt dispatches on the concrete statement type. This is the
// specification's substitute for a reflective or registry-based visitor: a
// plain Go type switch, which the compiler checks and which costs nothing
// per dispatch beyond an interface type assertion. Each handler is
// responsible for catching its own malformed-subtree conditions internally
// (via warnf) and returning normally, so one bad statement never stops the
// rest of the batch from being extracted.
func (e *Extractor) visitStmt(stmt tsqlast.Stmt) {
	switch s := stmt.(type) {
	case *tsqlast.SelectStmt:
		e.handleSelectStmt(s)
	case *tsqlast.InsertStmt:
		e.handleInsert(s)
	case *tsqlast.UpdateStmt:
		e.handleUpdate(s)
	case *tsqlast.DeleteStmt:
		e.handleDelete(s)
	case *tsqlast.MergeStmt:
		e.handleMerge(s)
	case *tsqlast.CreateTableStmt:
		e.handleCreateTable(s)
	case *tsqlast.SelectIntoStmt:
		e.handleSelectInto(s)
	case *tsqlast.AlterTableStmt:
		e.handleAlterTable(s)
	case *tsqlast.CreateProcedureStmt:
		e.handleCreateProcedure(s)
	case *tsqlast.DeclareStmt:
		e.handleDeclare(s)
	case *tsqlast.SetStmt:
		e.handleSet(s)
	case *tsqlast.ExecuteStmt:
		e.handleExecute(s)
	case *tsqlast.IfStmt:
		e.handleIf(s)
	case *tsqlast.WhileStmt:
		e.handleWhile(s)
	case *tsqlast.BlockStmt:
		e.handleBlock(s)
	case *tsqlast.PrintStmt:
		e.handlePrint(s)
	default:
		e.logger.Debug("no extraction handler for statement type", "type", fmt.Sprintf("%T", stmt))
	}
}
