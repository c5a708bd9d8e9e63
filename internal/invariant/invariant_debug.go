//go:build debug

package invariant

import (
	"fmt"
	"log/slog"
)

func check(logger *slog.Logger, format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
