package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lineagekit/tsql-lineage/pkg/lineage"
	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
)

// renderText prints one line per edge, the most direct representation of
// what was extracted.
func renderText(w io.Writer, result *lineage.Result) error {
	names := nodeNamer(result.Graph)
	edges := result.Graph.Edges()
	sortEdges(edges)

	for _, e := range edges {
		fmt.Fprintf(w, "%s -[%s:%s]-> %s\n", names(e.SourceID), e.Kind, e.Operation, names(e.TargetID))
	}
	fmt.Fprintf(w, "\n%d edges, %d parse errors, %d warnings\n", len(edges), len(result.ParseErrors), len(result.Warnings))
	return nil
}

// renderTable prints a go-pretty statistics table followed by a diagnostics
// table, for a human scanning terminal output rather than piping it
// somewhere else.
func renderTable(w io.Writer, result *lineage.Result) error {
	stats := result.Graph.Statistics()

	nodeTable := table.NewWriter()
	nodeTable.SetOutputMirror(w)
	nodeTable.SetStyle(table.StyleLight)
	nodeTable.SetTitle("Nodes")
	nodeTable.AppendHeader(table.Row{"Kind", "Count"})
	for _, kind := range []lineagegraph.NodeKind{lineagegraph.KindTable, lineagegraph.KindColumn, lineagegraph.KindExpression} {
		nodeTable.AppendRow(table.Row{kind, stats.NodeCounts[kind]})
	}
	nodeTable.Render()

	opTable := table.NewWriter()
	opTable.SetOutputMirror(w)
	opTable.SetStyle(table.StyleLight)
	opTable.SetTitle("Edges by operation")
	opTable.AppendHeader(table.Row{"Operation", "Count"})
	ops := make([]lineagegraph.Operation, 0, len(stats.OperationCounts))
	for op := range stats.OperationCounts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	for _, op := range ops {
		opTable.AppendRow(table.Row{op, stats.OperationCounts[op]})
	}
	opTable.Render()

	if len(result.ParseErrors) > 0 || len(result.Warnings) > 0 {
		diagTable := table.NewWriter()
		diagTable.SetOutputMirror(w)
		diagTable.SetStyle(table.StyleLight)
		diagTable.SetTitle("Diagnostics")
		diagTable.AppendHeader(table.Row{"Severity", "Line", "Column", "Message"})
		for _, pe := range result.ParseErrors {
			diagTable.AppendRow(table.Row{"parse error", pe.Line, pe.Column, pe.Message})
		}
		for _, wr := range result.Warnings {
			diagTable.AppendRow(table.Row{"warning", wr.Line, wr.Column, wr.Message})
		}
		diagTable.Render()
	}

	return nil
}

type lineageDocument struct {
	Tables      []tableDoc      `json:"tables"`
	Columns     []columnDoc     `json:"columns"`
	Expressions []expressionDoc `json:"expressions"`
	Edges       []edgeDoc       `json:"edges"`
	ParseErrors []any           `json:"parseErrors,omitempty"`
	Warnings    []any           `json:"warnings,omitempty"`
}

type tableDoc struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
	Kind   string `json:"kind"`
}

type columnDoc struct {
	ID         string `json:"id"`
	Table      string `json:"table"`
	Name       string `json:"name"`
	DataType   string `json:"dataType"`
	IsComputed bool   `json:"isComputed,omitempty"`
}

type expressionDoc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	TableOwner string `json:"tableOwner,omitempty"`
	SqlText    string `json:"sqlText,omitempty"`
}

type edgeDoc struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Kind      string `json:"kind"`
	Operation string `json:"operation"`
	SQL       string `json:"sql,omitempty"`
}

// renderJSON prints the whole extracted graph as a single JSON document,
// since Node is an interface with no exported id field and cannot be
// marshaled directly.
func renderJSON(w io.Writer, result *lineage.Result) error {
	doc := lineageDocument{}

	for _, n := range result.Graph.GetNodesOfKind(lineagegraph.KindTable) {
		t := n.(*lineagegraph.TableNode)
		doc.Tables = append(doc.Tables, tableDoc{ID: t.ID(), Name: t.Name, Schema: t.Schema, Kind: string(t.TableKind())})
	}
	for _, n := range result.Graph.GetNodesOfKind(lineagegraph.KindColumn) {
		c := n.(*lineagegraph.ColumnNode)
		doc.Columns = append(doc.Columns, columnDoc{ID: c.ID(), Table: c.OwnerTableName, Name: c.Name, DataType: c.DataType, IsComputed: c.IsComputed})
	}
	for _, n := range result.Graph.GetNodesOfKind(lineagegraph.KindExpression) {
		e := n.(*lineagegraph.ExpressionNode)
		doc.Expressions = append(doc.Expressions, expressionDoc{ID: e.ID(), Name: e.Name, Kind: string(e.ExpressionKind), TableOwner: e.TableOwner, SqlText: e.SqlText})
	}
	for _, e := range result.Graph.Edges() {
		doc.Edges = append(doc.Edges, edgeDoc{ID: e.ID(), Source: e.SourceID, Target: e.TargetID, Kind: string(e.Kind), Operation: string(e.Operation), SQL: e.SqlExpression})
	}
	for _, pe := range result.ParseErrors {
		doc.ParseErrors = append(doc.ParseErrors, pe)
	}
	for _, wr := range result.Warnings {
		doc.Warnings = append(doc.Warnings, wr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// nodeNamer returns a function rendering a node id as "table.column" or an
// expression's sql text, falling back to the bare id for anything else.
func nodeNamer(g *lineagegraph.Graph) func(id string) string {
	return func(id string) string {
		n, ok := g.GetNodeByID(id)
		if !ok {
			return id
		}
		switch v := n.(type) {
		case *lineagegraph.TableNode:
			return v.Name
		case *lineagegraph.ColumnNode:
			return v.OwnerTableName + "." + v.Name
		case *lineagegraph.ExpressionNode:
			if v.SqlText != "" {
				return v.SqlText
			}
			return string(v.ExpressionKind)
		default:
			return id
		}
	}
}

func sortEdges(edges []*lineagegraph.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})
}
