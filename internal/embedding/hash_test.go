package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEngineDimensions(t *testing.T) {
	e := NewHashEngine(384)
	assert.Equal(t, 384, e.Dimensions())
	assert.Equal(t, "hash:fnv1a", e.Name())
}

func TestHashEngineDeterministic(t *testing.T) {
	e := NewHashEngine(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "fix the login bug")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "fix the login bug")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)
}

func TestHashEngineSimilarTextIsCloser(t *testing.T) {
	e := NewHashEngine(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "refactor the store package for clarity")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "refactor the store package for speed")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "completely unrelated browser automation task")
	require.NoError(t, err)

	simAB, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	simAC, err := CosineSimilarity(a, c)
	require.NoError(t, err)

	assert.Greater(t, simAB, simAC)
}

func TestHashEngineEmptyText(t *testing.T) {
	e := NewHashEngine(16)
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, v, 16)

	mag := float32(0)
	for _, x := range v {
		mag += x * x
	}
	assert.InDelta(t, 1.0, mag, 1e-6)
}

func TestHashEngineBatch(t *testing.T) {
	e := NewHashEngine(32)
	vs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	for _, v := range vs {
		assert.Len(t, v, 32)
	}
}
