// Package lineage is the public facade: it wires the batch parser, the AST
// extractor, and the lineage graph store together behind a single Extract
// call, the way the teacher's top-level package wires its parser, registry,
// and adapter layers behind one entry point.
package lineage

import (
	"context"
	"io"
	"log/slog"

	"github.com/lineagekit/tsql-lineage/internal/extractor"
	"github.com/lineagekit/tsql-lineage/pkg/batchparser"
	"github.com/lineagekit/tsql-lineage/pkg/lineagegraph"
)

// CompatLevel names a SQL Server compatibility level. There is one T-SQL
// grammar in this module, not a pluggable dialect system, and no part of
// parsing or extraction reads CompatLevel: every level parses the same way.
type CompatLevel int

const (
	Compat2016 CompatLevel = iota
	Compat2017
	Compat2019
	Compat2022
)

// Options configures one Extract call end to end: batch splitting, parsing,
// and extraction.
type Options struct {
	ExtractTableReferences  bool
	ExtractColumnReferences bool
	UseQuotedIdentifiers    bool
	CompatibilityLevel      CompatLevel

	// MaxBatchSizeBytes caps a single GO-delimited batch; 0 means unlimited.
	MaxBatchSizeBytes int
	// MaxFragmentSize is passed to the batch parser, which does not read it;
	// ExtractStream streams whatever the script's size, and Extract never
	// switches to streaming.
	MaxFragmentSize int
	// MaxNestedQueryDepth bounds subquery/CTE/derived-table nesting in both
	// the parser and the extractor's own traversal budget.
	MaxNestedQueryDepth int

	// Concurrency bounds ExtractAsync's batch worker pool; 0 picks an
	// implementation-chosen default (GOMAXPROCS).
	Concurrency int

	// IDGenerator overrides how new node/edge ids are minted. Nil uses the
	// graph's default uuid-backed generator.
	IDGenerator lineagegraph.IDGenerator

	// Logger receives extraction diagnostics as they're produced. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the specification's defaults: both reference kinds
// on, unquoted identifiers, compat level 2022, and a nested-query depth of
// 32.
func DefaultOptions() Options {
	return Options{
		ExtractTableReferences:  true,
		ExtractColumnReferences: true,
		CompatibilityLevel:      Compat2022,
		MaxFragmentSize:         64 * 1024,
		MaxNestedQueryDepth:     32,
	}
}

// Result is everything one Extract call produced.
type Result struct {
	Graph       *lineagegraph.Graph
	ParseErrors []batchparser.ParseError
	Warnings    []extractor.Diagnostic
}

func (o Options) batchOptions() batchparser.Options {
	return batchparser.Options{
		MaxBatchSizeBytes:   o.MaxBatchSizeBytes,
		MaxFragmentSize:     o.MaxFragmentSize,
		MaxNestedQueryDepth: o.MaxNestedQueryDepth,
		Concurrency:         o.Concurrency,
	}
}

func (o Options) extractorOptions() extractor.Options {
	return extractor.Options{
		ExtractTableReferences:  o.ExtractTableReferences,
		ExtractColumnReferences: o.ExtractColumnReferences,
		UseQuotedIdentifiers:    o.UseQuotedIdentifiers,
		MaxNestedQueryDepth:     o.MaxNestedQueryDepth,
		Logger:                  o.Logger,
	}
}

func (o Options) newGraph() *lineagegraph.Graph {
	if o.IDGenerator != nil {
		return lineagegraph.New(o.IDGenerator)
	}
	return lineagegraph.NewDefault()
}

// Extract splits script into GO-delimited batches, parses each one, and
// extracts its column lineage into a single shared graph. A script-level
// failure (batch size exceeded, context cancellation) is the only error
// Extract itself returns; malformed SQL and unresolved references are
// reported through Result.ParseErrors and Result.Warnings instead, so one
// bad statement never stops the rest of the script from being extracted.
func Extract(ctx context.Context, script string, opts Options) (*Result, error) {
	parsed, err := batchparser.Parse(ctx, script, opts.batchOptions())
	if err != nil {
		return nil, err
	}
	return extractParsed(ctx, parsed, opts)
}

// ExtractAsync is Extract, but parses batches concurrently via
// batchparser.ParseAsync before extracting them sequentially into the shared
// graph (extraction itself is not parallelized: every batch mutates the same
// Graph and Extractor.scope, and the spec's ordering guarantees assume
// script order).
func ExtractAsync(ctx context.Context, script string, opts Options) (*Result, error) {
	parsed, err := batchparser.ParseAsync(ctx, script, opts.batchOptions())
	if err != nil {
		return nil, err
	}
	return extractParsed(ctx, parsed, opts)
}

// ExtractStream is Extract for scripts too large to hold in memory at once:
// it consumes r incrementally, extracting each GO-delimited batch as soon as
// batchparser.ParseStream completes it, and accumulates lineage into a
// single graph exactly as Extract does.
func ExtractStream(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	graph := opts.newGraph()
	ext := extractor.New(graph, opts.extractorOptions())
	var parseErrors []batchparser.ParseError

	err := batchparser.ParseStream(ctx, r, opts.batchOptions(), func(batch batchparser.BatchAst, errs []batchparser.ParseError) {
		parseErrors = append(parseErrors, errs...)
		ext.ExtractBatch(ctx, batch.Text, batch.Statements)
	})

	return &Result{
		Graph:       graph,
		ParseErrors: parseErrors,
		Warnings:    ext.Diagnostics(),
	}, err
}

func extractParsed(ctx context.Context, parsed *batchparser.ParsedScript, opts Options) (*Result, error) {
	graph := opts.newGraph()
	ext := extractor.New(graph, opts.extractorOptions())

	for _, batch := range parsed.Batches {
		if err := ctx.Err(); err != nil {
			return &Result{Graph: graph, ParseErrors: parsed.Errors, Warnings: ext.Diagnostics()}, err
		}
		ext.ExtractBatch(ctx, batch.Text, batch.Statements)
	}

	return &Result{
		Graph:       graph,
		ParseErrors: parsed.Errors,
		Warnings:    ext.Diagnostics(),
	}, nil
}
