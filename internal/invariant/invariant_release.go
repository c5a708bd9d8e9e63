//go:build !debug

package invariant

import (
	"fmt"
	"log/slog"
)

func check(logger *slog.Logger, format string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("invariant violated", "detail", fmt.Sprintf(format, args...))
}
