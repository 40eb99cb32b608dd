package embedding

import (
	"context"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
)

// resizeVector truncates or zero-pads v to exactly dim entries so that rows
// written by engines with different native widths stay directly comparable
// by cosine similarity.
func resizeVector(v []float32, dim int) []float32 {
	if len(v) == dim {
		return v
	}
	out := make([]float32, dim)
	n := len(v)
	if n > dim {
		n = dim
	}
	copy(out, v[:n])
	return out
}

// Gate selects a semantic embedder according to configuration and demotes to
// the hash fallback whenever the semantic backend cannot be reached. It
// implements the spec's gating rule: when semantic embeddings are requested
// but the backend failed to initialize, the gate records the failure and
// proceeds on the hash fallback rather than failing the calling operation.
type Gate struct {
	semanticEnabled bool
	dim             int
	semantic        EmbeddingEngine
	semanticErr     error
	fallback        EmbeddingEngine
	onDemote        func(err error)
}

// NewGate builds a Gate. semantic may be nil if semanticEnabled is false or
// construction failed; semanticErr records why, for callers that want to
// surface a BackendUnavailable warning stat.
func NewGate(semanticEnabled bool, dim int, semantic EmbeddingEngine, semanticErr error, onDemote func(err error)) *Gate {
	if dim <= 0 {
		dim = defaultDimensions
	}
	return &Gate{
		semanticEnabled: semanticEnabled,
		dim:             dim,
		semantic:        semantic,
		semanticErr:     semanticErr,
		fallback:        NewHashEngine(dim),
		onDemote:        onDemote,
	}
}

// Active returns the engine the gate is currently resolving to.
func (g *Gate) Active() EmbeddingEngine {
	if g.semanticEnabled && g.semantic != nil {
		return g.semantic
	}
	return g.fallback
}

// Dimensions returns the configured vector width all backends resize to.
func (g *Gate) Dimensions() int { return g.dim }

// Embed embeds text using the semantic backend if healthy, otherwise demotes
// to the hash fallback for this call and every subsequent one.
func (g *Gate) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.semanticEnabled && g.semantic != nil {
		if hc, ok := g.semantic.(HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				g.demote(errs.Wrap(errs.KindBackendUnavailable, "semantic backend health check failed", err))
				return g.fallback.Embed(ctx, text)
			}
		}
		v, err := g.semantic.Embed(ctx, text)
		if err != nil {
			g.demote(errs.Wrap(errs.KindBackendUnavailable, "semantic backend embed failed", err))
			return g.fallback.Embed(ctx, text)
		}
		return v, nil
	}
	return g.fallback.Embed(ctx, text)
}

// EmbedBatch embeds each text via Embed, so a mid-batch backend failure
// demotes the remainder of the batch to the hash fallback instead of
// aborting it.
func (g *Gate) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := g.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Name reports the active backend's name.
func (g *Gate) Name() string { return g.Active().Name() }

func (g *Gate) demote(err error) {
	logging.Get(logging.CategoryEmbedding).Warn("embedding gate demoting to hash fallback: %v", err)
	g.semanticEnabled = false
	g.semanticErr = err
	if g.onDemote != nil {
		g.onDemote(err)
	}
}

// IsLegacy reports whether a stored embedding's byte length disagrees with
// the configured dimension (4 bytes per float32 component), meaning it was
// written under a different dimension and needs re-embedding.
func IsLegacy(embeddingBytes int, dim int) bool {
	return embeddingBytes != 0 && embeddingBytes != 4*dim
}
