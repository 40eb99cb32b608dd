package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"nerdmem/internal/logging"
)

// =============================================================================
// HASH FALLBACK ENGINE
// =============================================================================

// HashEngine produces a deterministic feature-hash embedding that requires
// no model weights or network access. Each token is folded through FNV-1a
// into a bucket of the output vector, generalizing the character-code
// folding technique used to build consistent state hashes for tabular RL
// state encoders: instead of collapsing a state into one hash string, every
// token accumulates into one of dim buckets so near-duplicate text produces
// vectors with nonzero cosine similarity rather than all-or-nothing equality.
type HashEngine struct {
	dim int
}

// NewHashEngine returns a HashEngine producing dim-dimensional vectors.
func NewHashEngine(dim int) *HashEngine {
	if dim <= 0 {
		dim = defaultDimensions
	}
	return &HashEngine{dim: dim}
}

// Embed folds text into a dim-dimensional vector and L2-normalizes it.
func (e *HashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	logging.EmbeddingDebug("HashEngine.Embed: folding text of length %d into dim=%d", len(text), e.dim)

	vec := make([]float64, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var mag float64
	for _, v := range vec {
		mag += v * v
	}
	mag = math.Sqrt(mag)

	out := make([]float32, e.dim)
	if mag == 0 {
		// No tokens (empty text): a unit vector along the first axis keeps
		// the result comparable rather than all-zero, which cosine
		// similarity treats as undefined against everything.
		out[0] = 1
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / mag)
	}
	return out, nil
}

// EmbedBatch folds each text independently.
func (e *HashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the configured output width.
func (e *HashEngine) Dimensions() int { return e.dim }

// Name identifies this engine for memory row provenance.
func (e *HashEngine) Name() string { return "hash:fnv1a" }

// HealthCheck always succeeds: the hash engine has no external dependency.
func (e *HashEngine) HealthCheck(ctx context.Context) error { return nil }
