package batchparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBatches_NoGo(t *testing.T) {
	script := "SELECT 1;"
	batches := splitBatches(script)
	require.Len(t, batches, 1)
	assert.Equal(t, script, batches[0].Text)
	assert.Equal(t, 0, batches[0].StartOffset)
	assert.Equal(t, 1, batches[0].StartLine)
}

func TestSplitBatches_MultipleGo(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT 2;\nGO\nSELECT 3;"
	batches := splitBatches(script)
	require.Len(t, batches, 3)
	assert.Contains(t, batches[0].Text, "SELECT 1")
	assert.Contains(t, batches[1].Text, "SELECT 2")
	assert.Contains(t, batches[2].Text, "SELECT 3")
	assert.Equal(t, 2, batches[1].StartLine)
	assert.Equal(t, 4, batches[2].StartLine)
}

func TestSplitBatches_TrailingGoProducesNoEmptyBatch(t *testing.T) {
	script := "SELECT 1;\nGO\n"
	batches := splitBatches(script)
	require.Len(t, batches, 1)
	assert.Contains(t, batches[0].Text, "SELECT 1")
}

func TestLineAndColumnAt(t *testing.T) {
	script := "aaa\nbbb\nccc"
	line, col := lineAndColumnAt(script, 0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)

	line, col = lineAndColumnAt(script, 4) // 'b' of second line
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)

	line, col = lineAndColumnAt(script, 9) // 'c' of third line, index 2
	assert.Equal(t, 3, line)
	assert.Equal(t, 2, col)
}
