package lineagegraph

import "errors"

// ErrDanglingEdge is wrapped into a descriptive error whenever AddEdge is
// asked to link a source or target id that has no corresponding node.
var ErrDanglingEdge = errors.New("lineagegraph: dangling edge")

// ErrNodeKindConflict is wrapped into a descriptive error whenever AddNode
// is asked to register an id that already exists under a different kind.
var ErrNodeKindConflict = errors.New("lineagegraph: node kind conflict")
