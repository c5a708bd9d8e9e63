package batchparser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStream_EmitsBatchesInOrder(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT 2;\nGO 3\nSELECT 3;"
	var got []BatchAst
	err := ParseStream(context.Background(), strings.NewReader(script), DefaultOptions(), func(b BatchAst, errs []ParseError) {
		got = append(got, b)
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, b := range got {
		assert.Equal(t, i, b.Index)
		assert.Len(t, b.Statements, 1)
	}
}

func TestParseStream_BatchSizeExceeded(t *testing.T) {
	script := "SELECT 1;"
	err := ParseStream(context.Background(), strings.NewReader(script), Options{MaxBatchSizeBytes: 2}, func(BatchAst, []ParseError) {})
	assert.ErrorIs(t, err, ErrBatchSizeExceeded)
}

func TestIsGoLine(t *testing.T) {
	assert.True(t, isGoLine("GO"))
	assert.True(t, isGoLine("go"))
	assert.True(t, isGoLine("GO 5"))
	assert.False(t, isGoLine("GOOD"))
	assert.False(t, isGoLine("SELECT GO"))
}
