// Package batchparser splits a T-SQL script into GO-delimited batches and
// parses each one, sequentially or across a bounded worker pool, collecting
// parse errors in script coordinates alongside the per-batch ASTs.
package batchparser

import "github.com/lineagekit/tsql-lineage/pkg/tsqlast"

// Options configures batch splitting and parsing.
type Options struct {
	// MaxBatchSizeBytes caps a single batch's size; 0 means unlimited.
	MaxBatchSizeBytes int
	// MaxFragmentSize is carried from the caller's options; no parse mode
	// reads it. ParseStream consumes its input incrementally whatever the
	// script's size, and Parse/ParseAsync never switch to streaming.
	MaxFragmentSize int
	// MaxNestedQueryDepth bounds subquery/CTE/derived-table nesting
	// inside each batch's parser.
	MaxNestedQueryDepth int
	// Concurrency bounds the number of batches ParseAsync parses at
	// once. 0 or negative means an implementation-chosen default.
	Concurrency int
}

// DefaultOptions returns the specification's defaults.
func DefaultOptions() Options {
	return Options{
		MaxFragmentSize:     64 * 1024,
		MaxNestedQueryDepth: 32,
	}
}

// ParseError describes one parse failure in script coordinates: offsets
// and line/column have already been corrected for the batch they came
// from, so callers never need to know about batch boundaries.
type ParseError struct {
	Line        int
	Column      int
	StartOffset int
	EndOffset   int
	Message     string
	ErrorCode   string
}

// BatchAst is one GO-delimited batch's parsed statements, plus the script
// coordinates where the batch began.
type BatchAst struct {
	Index       int
	Statements  []tsqlast.Stmt
	StartOffset int
	StartLine   int
	StartColumn int
	// Text is the batch's own verbatim source substring, exactly what the
	// parser consumed. Every statement's positions are offsets into this
	// string, not into the original script, so callers mapping AST nodes
	// back to source text (e.g. for lineage diagnostics) must slice Text,
	// not the full script.
	Text string
}

// ParsedScript is the result of parsing an entire script: every batch's
// AST, in script order, plus every parse error across all batches.
type ParsedScript struct {
	Batches []BatchAst
	Errors  []ParseError
}
