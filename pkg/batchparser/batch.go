package batchparser

import (
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/tsqlparser"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// rawBatch is one GO-delimited slice of source text, with the script
// coordinates of its first byte already computed.
type rawBatch struct {
	Text        string
	StartOffset int
	StartLine   int
	StartColumn int
}

// splitBatches scans script for GO tokens (case-insensitive, since GO is
// lexed as a keyword token regardless of case) and returns the text between
// them. A script with no GO tokens is a single batch.
func splitBatches(script string) []rawBatch {
	tokens := tsqlparser.Tokenize(script)

	var batches []rawBatch
	cursor := 0
	for _, tok := range tokens {
		if tok.Type != tsqltoken.GO {
			continue
		}
		if b, ok := newRawBatch(script, cursor, tok.Pos.Offset); ok {
			batches = append(batches, b)
		}
		cursor = tok.End.Offset
	}
	if b, ok := newRawBatch(script, cursor, len(script)); ok {
		batches = append(batches, b)
	}

	if len(batches) == 0 {
		// The whole script is whitespace/empty, or is one batch with no
		// trailing content after its own GO; always return at least one
		// batch so callers see a consistent ParsedScript shape.
		line, col := lineAndColumnAt(script, 0)
		batches = append(batches, rawBatch{Text: script, StartOffset: 0, StartLine: line, StartColumn: col})
	}
	return batches
}

func newRawBatch(script string, start, end int) (rawBatch, bool) {
	if start >= end || start > len(script) {
		return rawBatch{}, false
	}
	if end > len(script) {
		end = len(script)
	}
	text := script[start:end]
	if strings.TrimSpace(text) == "" {
		return rawBatch{}, false
	}
	line, col := lineAndColumnAt(script, start)
	return rawBatch{Text: text, StartOffset: start, StartLine: line, StartColumn: col}, true
}

// lineAndColumnAt returns the 1-based line and column of the byte at
// offset within script.
func lineAndColumnAt(script string, offset int) (line, column int) {
	line, column = 1, 1
	if offset > len(script) {
		offset = len(script)
	}
	for i := 0; i < offset; i++ {
		if script[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// translate converts a position local to a batch's own text (1-based line,
// 1-based column, 0-based offset within the batch) into script coordinates.
func translate(b rawBatch, pos tsqltoken.Position) (line, column, offset int) {
	offset = b.StartOffset + pos.Offset
	if pos.Line == 1 {
		return b.StartLine, b.StartColumn + pos.Column - 1, offset
	}
	return b.StartLine + pos.Line - 1, pos.Column, offset
}
