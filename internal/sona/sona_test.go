package sona

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerdmem/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "intelligence.db"), filepath.Join(dir, "intelligence.json"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCompressorStoreAndGetPatternsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false) // force fallback for a deterministic test

	ok, err := c.StorePattern("edit:go", []float32{1, 2, 3, 4}, `{"note":"x"}`)
	require.NoError(t, err)
	assert.True(t, ok)

	patterns, err := c.GetPatterns("edit:go", 10)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "edit:go", patterns[0].Layer)
}

func TestCompressorCachesGetPatterns(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)

	_, err := c.StorePattern("edit:go", []float32{1, 2, 3, 4}, "")
	require.NoError(t, err)

	first, err := c.GetPatterns("edit:go", 10)
	require.NoError(t, err)

	_, err = c.StorePattern("edit:go", []float32{5, 6, 7, 8}, "")
	require.NoError(t, err)

	second, err := c.GetPatterns("edit:go", 10)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.NotEqual(t, first, second)
}

func TestFallbackEvictsOldestBeyondMaxPatterns(t *testing.T) {
	s := openTestStore(t)
	fb := newFallbackBackend(s, 3)

	for i := 0; i < 5; i++ {
		ok, err := fb.StorePattern("layer", []float32{float32(i)}, "")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	count, err := s.CountCompressedPatterns()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestCompressionRatioReportsFourTimesDimOverBytes(t *testing.T) {
	assert.InDelta(t, 1.0, compressionRatio(4, 16), 1e-9)
	assert.InDelta(t, 1.0, compressionRatio(1, 4), 1e-9)
}

func TestWarmupStoresUnderWarmupLayer(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)

	require.NoError(t, c.Warmup([]float32{1, 1, 1, 1}))

	patterns, err := c.GetPatterns("warmup", 10)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
}

func TestTickFlushForceLearnAreNoops(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)
	assert.NoError(t, c.Tick())
	assert.NoError(t, c.Flush())
	assert.NoError(t, c.ForceLearn())
}

func TestApplyLoRAIsIdentity(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)
	vec := []float32{1, 2, 3}
	assert.Equal(t, vec, c.ApplyMicroLoRA(vec))
	assert.Equal(t, vec, c.ApplyBaseLoRA(vec))
}

func TestAddEWCTaskRecordsImportance(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)
	c.AddEWCTask("task-1", 0.9)
	assert.InDelta(t, 0.9, c.ewcTasks["task-1"], 1e-9)
}

func TestBridgeConsolidatedPatternsSynthesizesEmbeddingWhenMissing(t *testing.T) {
	s := openTestStore(t)
	c := New(s, 4, false)

	err := c.BridgeConsolidatedPatterns([]store.NeuralPattern{
		{ID: "np-1", Category: "edit:go", Content: "hello", Usage: 3},
	})
	require.NoError(t, err)

	patterns, err := c.GetPatterns("edit:go", 10)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.NotEmpty(t, patterns[0].DataBlob)
}
