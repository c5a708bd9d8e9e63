package lineagescope

import "errors"

// ErrUnresolvedReference is wrapped into a descriptive error when a column
// or table reference cannot be resolved against anything currently in
// scope. Callers should treat this as non-fatal: log a warning and skip
// edge creation for that reference, per the extractor's error taxonomy.
var ErrUnresolvedReference = errors.New("lineagescope: unresolved reference")
