package tsqlparser

import (
	"fmt"

	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// ParseError describes one recovery point the parser hit while scanning a
// single batch. Positions are batch-local; pkg/batchparser corrects them
// back to script coordinates before handing them to callers.
type ParseError struct {
	Pos     tsqltoken.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func newParseError(pos tsqltoken.Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
