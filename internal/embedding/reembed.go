package embedding

import (
	"context"
	"fmt"

	"nerdmem/internal/logging"
)

// LegacyRow is the minimal shape a re-embed pass needs: an identifier, the
// text to re-embed, and the length in bytes of the embedding currently
// stored for it.
type LegacyRow struct {
	ID             string
	Content        string
	EmbeddingBytes int
}

// ReembedFunc persists a freshly computed embedding for id. Implementations
// are expected to wrap a single store mutation.
type ReembedFunc func(ctx context.Context, id string, embedding []float32) error

// ReembedResult summarizes a backfill pass.
type ReembedResult struct {
	Scanned    int
	Legacy     int
	Reembedded int
	Failed     int
}

// Reembed scans rows, re-embeds every row IsLegacy flags against dim, and
// persists the result via persist. Used by the operator-triggered re-embed
// command; the consolidation pass does not re-embed rows.
// Per-row failures are logged and skipped, matching the store's bulk-mutator
// failure policy: one bad row never aborts the pass.
func Reembed(ctx context.Context, engine EmbeddingEngine, dim int, rows []LegacyRow, persist ReembedFunc) ReembedResult {
	var result ReembedResult
	result.Scanned = len(rows)

	for _, row := range rows {
		if !IsLegacy(row.EmbeddingBytes, dim) {
			continue
		}
		result.Legacy++

		vec, err := engine.Embed(ctx, row.Content)
		if err != nil {
			logging.Get(logging.CategoryEmbedding).Error("reembed: embed failed for %s: %v", row.ID, err)
			result.Failed++
			continue
		}
		vec = resizeVector(vec, dim)

		if err := persist(ctx, row.ID, vec); err != nil {
			logging.Get(logging.CategoryEmbedding).Error("reembed: persist failed for %s: %v", row.ID, err)
			result.Failed++
			continue
		}
		result.Reembedded++
	}

	logging.Embedding("reembed: scanned=%d legacy=%d reembedded=%d failed=%d",
		result.Scanned, result.Legacy, result.Reembedded, result.Failed)

	if result.Legacy == 0 {
		return result
	}
	if result.Reembedded == 0 && result.Failed > 0 {
		logging.Get(logging.CategoryEmbedding).Warn("reembed: %s", fmt.Sprintf("all %d legacy rows failed to re-embed", result.Failed))
	}
	return result
}
