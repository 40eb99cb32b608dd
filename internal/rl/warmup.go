package rl

import "golang.org/x/sync/errgroup"

const (
	warmupTrajectoryLimit = 50
	warmupConcurrency     = 4
)

// ReplayWarmup reads up to warmupTrajectoryLimit of the most recently
// persisted trajectories and replays a synthesized embedding of each
// against the sona bridge, so the vector store is warm before the first
// real event of the process arrives. A nil bridge makes this a no-op.
// Embeddings are synthesized and submitted to the bridge concurrently
// since both are independent per trajectory row.
func (e *Engine) ReplayWarmup() error {
	e.mu.Lock()
	bridge := e.sona
	e.mu.Unlock()
	if bridge == nil {
		return nil
	}

	rows, err := e.store.RecentTrajectories(warmupTrajectoryLimit)
	if err != nil {
		return err
	}

	dim := e.embeddingDim()
	g := new(errgroup.Group)
	g.SetLimit(warmupConcurrency)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			vec := synthesizeEmbedding(row.State+row.Action, dim)
			return bridge.Warmup(vec)
		})
	}
	return g.Wait()
}

// embeddingDim reports the dimension synthesized warm-up vectors should
// take. It falls back to a conservative default when no table has observed
// a real embedding dimension yet; callers that need an exact match should
// configure it via SetEmbeddingDim.
func (e *Engine) embeddingDim() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim > 0 {
		return e.dim
	}
	return 64
}

// SetEmbeddingDim records the configured embedding dimension so warm-up
// vectors match what the rest of the system produces.
func (e *Engine) SetEmbeddingDim(dim int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dim = dim
}

// synthesizeEmbedding folds the character codes of text into a vector of
// length dim, giving the vector store something shaped right to warm up
// against without needing the real embedding backend at startup.
func synthesizeEmbedding(text string, dim int) []float32 {
	if dim <= 0 {
		dim = 64
	}
	out := make([]float32, dim)
	for i, r := range text {
		out[i%dim] += float32(r)
	}
	return out
}
