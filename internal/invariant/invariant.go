// Package invariant provides a single check point for conditions the
// extractor believes can never happen. In a debug build it panics, so
// violations surface immediately during development; in a release build
// it logs and lets the caller continue, since a single malformed AST
// fragment should not take down a whole-script extraction run.
package invariant

import "log/slog"

// Check panics in a debug build or logs in a release build when ok is
// false. format/args describe the violated invariant.
func Check(logger *slog.Logger, ok bool, format string, args ...any) {
	if ok {
		return
	}
	check(logger, format, args...)
}
