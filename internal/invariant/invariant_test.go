//go:build !debug

package invariant

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_OkDoesNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		Check(nil, true, "unreachable")
	})
}

func TestCheck_ViolationLogsInReleaseBuild(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NotPanics(t, func() {
		Check(logger, false, "column %q missing owner", "x")
	})
	assert.Contains(t, buf.String(), "invariant violated")
	assert.Contains(t, buf.String(), "column \"x\" missing owner")
}
