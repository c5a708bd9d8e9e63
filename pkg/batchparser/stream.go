package batchparser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// isGoLine reports whether a trimmed source line is a batch separator: GO
// standing alone, or GO followed by a repeat count.
func isGoLine(trimmed string) bool {
	fields := strings.Fields(trimmed)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "GO") {
		return false
	}
	if len(fields) == 1 {
		return true
	}
	if len(fields) == 2 {
		_, err := strconv.Atoi(fields[1])
		return err == nil
	}
	return false
}

// ParseStream consumes r line by line, parsing and emitting each
// GO-delimited batch as soon as it is complete rather than buffering the
// whole script. It streams whatever the script's size (opts.MaxFragmentSize
// is not consulted), at the cost of sequential (not pooled-parallel)
// parsing. onBatch is called once per batch, in order, with that batch's
// statements and any parse errors it produced, already in script
// coordinates.
func ParseStream(ctx context.Context, r io.Reader, opts Options, onBatch func(BatchAst, []ParseError)) error {
	pool := newParserPool()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var buf strings.Builder
	offset := 0
	line := 1
	batchStartOffset := 0
	batchStartLine := 1
	batchIndex := 0

	flush := func() error {
		text := buf.String()
		buf.Reset()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if opts.MaxBatchSizeBytes > 0 && len(text) > opts.MaxBatchSizeBytes {
			return fmt.Errorf("%w: batch %d is %d bytes, limit is %d", ErrBatchSizeExceeded, batchIndex, len(text), opts.MaxBatchSizeBytes)
		}
		raw := rawBatch{Text: text, StartOffset: batchStartOffset, StartLine: batchStartLine, StartColumn: 1}
		batch, errs, err := parseOneBatch(pool, raw, batchIndex, opts)
		if err != nil {
			return err
		}
		onBatch(batch, errs)
		batchIndex++
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := scanner.Text()
		if isGoLine(strings.TrimSpace(text)) {
			if err := flush(); err != nil {
				return err
			}
			offset += len(text) + 1
			line++
			batchStartOffset = offset
			batchStartLine = line
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
		offset += len(text) + 1
		line++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}
