package batchparser

import "errors"

// ErrBatchSizeExceeded is returned when a batch's byte length exceeds
// Options.MaxBatchSizeBytes. Unlike a ParseError (collected, never fatal),
// this is a script-level failure that aborts the whole Parse/ParseAsync
// call, per the specification's propagation rules.
var ErrBatchSizeExceeded = errors.New("batchparser: batch exceeds configured size limit")
