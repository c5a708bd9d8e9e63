package batchparser

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/lineagekit/tsql-lineage/pkg/tsqlparser"
	"golang.org/x/sync/errgroup"
)

// parserPool reuses *tsqlparser.Parser instances across batches instead of
// allocating one per batch; Reset discards the prior batch's lexer state
// and error list.
type parserPool struct {
	pool sync.Pool
}

func newParserPool() *parserPool {
	return &parserPool{pool: sync.Pool{New: func() any { return tsqlparser.NewParser("", 0) }}}
}

func (pp *parserPool) get(sql string, maxDepth int) *tsqlparser.Parser {
	p := pp.pool.Get().(*tsqlparser.Parser)
	p.Reset(sql, maxDepth)
	return p
}

func (pp *parserPool) put(p *tsqlparser.Parser) {
	pp.pool.Put(p)
}

func parseOneBatch(pool *parserPool, raw rawBatch, index int, opts Options) (BatchAst, []ParseError, error) {
	if opts.MaxBatchSizeBytes > 0 && len(raw.Text) > opts.MaxBatchSizeBytes {
		return BatchAst{}, nil, fmt.Errorf("%w: batch %d is %d bytes, limit is %d", ErrBatchSizeExceeded, index, len(raw.Text), opts.MaxBatchSizeBytes)
	}

	p := pool.get(raw.Text, opts.MaxNestedQueryDepth)
	defer pool.put(p)

	stmts := p.ParseBatch()

	var errs []ParseError
	for _, pe := range p.Errors() {
		line, col, off := translate(raw, pe.Pos)
		errs = append(errs, ParseError{
			Line:        line,
			Column:      col,
			StartOffset: off,
			EndOffset:   off,
			Message:     pe.Message,
			ErrorCode:   "ParseFailure",
		})
	}

	batch := BatchAst{
		Index:       index,
		Statements:  stmts,
		StartOffset: raw.StartOffset,
		StartLine:   raw.StartLine,
		StartColumn: raw.StartColumn,
		Text:        raw.Text,
	}
	return batch, errs, nil
}

// Parse splits script into GO-delimited batches and parses them in order on
// the calling goroutine. Parse errors are collected per batch and never
// abort the call; only a script-level failure (batch size exceeded,
// context cancellation) returns a non-nil error.
func Parse(ctx context.Context, script string, opts Options) (*ParsedScript, error) {
	raws := splitBatches(script)
	pool := newParserPool()

	result := &ParsedScript{Batches: make([]BatchAst, 0, len(raws))}
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, errs, err := parseOneBatch(pool, raw, i, opts)
		if err != nil {
			return result, err
		}
		result.Batches = append(result.Batches, batch)
		result.Errors = append(result.Errors, errs...)
	}
	return result, nil
}

// ParseAsync is Parse, but fans batches out across a bounded pool of
// goroutines (opts.Concurrency workers, or GOMAXPROCS if unset). Results
// are written directly into index-sized slices, so no post-hoc sort is
// needed to restore batch order; a batch-size or cancellation failure in
// any worker stops the whole group via errgroup's shared context.
func ParseAsync(ctx context.Context, script string, opts Options) (*ParsedScript, error) {
	raws := splitBatches(script)
	pool := newParserPool()

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	batches := make([]BatchAst, len(raws))
	errLists := make([][]ParseError, len(raws))

	for i, raw := range raws {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			batch, errs, err := parseOneBatch(pool, raw, i, opts)
			if err != nil {
				return err
			}
			batches[i] = batch
			errLists[i] = errs
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &ParsedScript{Batches: batches}
	for _, errs := range errLists {
		result.Errors = append(result.Errors, errs...)
	}
	return result, nil
}
