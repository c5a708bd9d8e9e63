package batchparser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MultipleBatches(t *testing.T) {
	script := "SELECT * FROM Customers;\nGO\nSELECT * FROM Orders;"
	result, err := Parse(context.Background(), script, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Batches, 2)
	assert.Equal(t, 0, result.Batches[0].Index)
	assert.Equal(t, 1, result.Batches[1].Index)
	assert.Len(t, result.Batches[0].Statements, 1)
	assert.Len(t, result.Batches[1].Statements, 1)
	assert.Empty(t, result.Errors)
}

func TestParse_CollectsErrorsInScriptCoordinates(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT FROM;"
	result, err := Parse(context.Background(), script, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)

	for _, e := range result.Errors {
		assert.GreaterOrEqual(t, e.Line, 3, "expected the error in the second batch to be reported on or after line 3 of the whole script")
		assert.Equal(t, "ParseFailure", e.ErrorCode)
	}
}

func TestParse_BatchSizeExceeded(t *testing.T) {
	script := "SELECT 1;"
	_, err := Parse(context.Background(), script, Options{MaxBatchSizeBytes: 3})
	assert.ErrorIs(t, err, ErrBatchSizeExceeded)
}

func TestParseAsync_PreservesBatchOrder(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT 2;\nGO\nSELECT 3;\nGO\nSELECT 4;"
	result, err := ParseAsync(context.Background(), script, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Batches, 4)
	for i, b := range result.Batches {
		assert.Equal(t, i, b.Index)
	}
}

func TestParseAsync_MatchesParse(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT 2;\nGO\nSELECT FROM;"
	seq, err := Parse(context.Background(), script, DefaultOptions())
	require.NoError(t, err)
	par, err := ParseAsync(context.Background(), script, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, len(seq.Batches), len(par.Batches))
	assert.Equal(t, len(seq.Errors), len(par.Errors))
}
