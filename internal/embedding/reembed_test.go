package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReembedSkipsCurrentDimensionRows(t *testing.T) {
	engine := NewHashEngine(64)
	rows := []LegacyRow{
		{ID: "a", Content: "already fine", EmbeddingBytes: 4 * 64},
		{ID: "b", Content: "written at 768", EmbeddingBytes: 4 * 768},
	}

	persisted := map[string][]float32{}
	persist := func(ctx context.Context, id string, v []float32) error {
		persisted[id] = v
		return nil
	}

	result := Reembed(context.Background(), engine, 64, rows, persist)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Legacy)
	assert.Equal(t, 1, result.Reembedded)
	assert.Equal(t, 0, result.Failed)
	_, wasReembedded := persisted["b"]
	assert.True(t, wasReembedded)
	_, wasUntouched := persisted["a"]
	assert.False(t, wasUntouched)
}

func TestReembedSkipsFailedRowsWithoutAborting(t *testing.T) {
	engine := NewHashEngine(16)
	rows := []LegacyRow{
		{ID: "a", Content: "legacy row one", EmbeddingBytes: 4 * 999},
		{ID: "b", Content: "legacy row two", EmbeddingBytes: 4 * 999},
	}

	persist := func(ctx context.Context, id string, v []float32) error {
		if id == "a" {
			return fmt.Errorf("disk full")
		}
		return nil
	}

	result := Reembed(context.Background(), engine, 16, rows, persist)

	require.Equal(t, 2, result.Legacy)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Reembedded)
}
