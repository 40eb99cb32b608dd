package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingEngine always errors, to exercise the gate's demotion path.
type failingEngine struct {
	dim int
	err error
}

func (f *failingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}
func (f *failingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}
func (f *failingEngine) Dimensions() int { return f.dim }
func (f *failingEngine) Name() string    { return "failing" }

func TestGateUsesSemanticWhenHealthy(t *testing.T) {
	hash := NewHashEngine(32)
	gate := NewGate(true, 32, hash, nil, nil)

	v, err := gate.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, 32)
	assert.Equal(t, "hash:fnv1a", gate.Name())
}

func TestGateDemotesOnBackendFailure(t *testing.T) {
	failing := &failingEngine{dim: 32, err: fmt.Errorf("connection refused")}

	var demoted error
	gate := NewGate(true, 32, failing, nil, func(err error) { demoted = err })

	v, err := gate.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, 32)
	require.Error(t, demoted)

	// Subsequent calls stay on the fallback without retrying the
	// failing backend.
	assert.Equal(t, "hash:fnv1a", gate.Active().Name())
}

func TestGateDisabledUsesFallbackDirectly(t *testing.T) {
	gate := NewGate(false, 48, nil, nil, nil)
	v, err := gate.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, v, 48)
}

func TestIsLegacy(t *testing.T) {
	assert.False(t, IsLegacy(0, 384))        // no embedding yet, not legacy
	assert.False(t, IsLegacy(4*384, 384))    // matches configured dim
	assert.True(t, IsLegacy(4*768, 384))     // written at a different dim
}

func TestResizeVector(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, resizeVector([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 2, 0}, resizeVector([]float32{1, 2}, 3))
	assert.Equal(t, []float32{1, 2}, resizeVector([]float32{1, 2}, 2))
}
