// Package consolidate implements the background pattern-synthesis pass:
// group recent memories into neural patterns, wire temporal/pattern/semantic
// edges between them, and keep the stats table current. It runs on the
// "consolidate" event and once more at session-end.
package consolidate

import (
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nerdmem/internal/embedding"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

const defaultWindow = 200

// Consolidator scans the recent memory window and synthesizes derived
// state: neural patterns, temporal/pattern/semantic edges, and stats.
type Consolidator struct {
	store             *store.Store
	window            int
	semanticThreshold float64
	maxSemanticEdges  int
}

// New constructs a Consolidator reading up to the given window of recent
// memories and emitting semantic edges above threshold, capped at maxEdges
// per pass.
func New(s *store.Store, window int, semanticThreshold float64, maxEdges int) *Consolidator {
	if window <= 0 {
		window = defaultWindow
	}
	return &Consolidator{store: s, window: window, semanticThreshold: semanticThreshold, maxSemanticEdges: maxEdges}
}

// Run performs one consolidation pass: group, synthesize patterns, emit
// edges, register the invoking agent, and refresh stats. The memory scan is
// a plain read taken before the pass begins; every emission it produces
// (patterns, edges, agent registration, stats) commits or rolls back
// together in a single transaction via Store.WithTx, so a mid-pass failure
// never leaves partial neural_patterns/edges committed.
func (c *Consolidator) Run(agent string) ([]store.NeuralPattern, error) {
	now := time.Now().Unix()

	memories, err := c.store.RecentMemories(c.window)
	if err != nil {
		return nil, err
	}

	var patterns []store.NeuralPattern
	err = c.store.WithTx(func(tx *sql.Tx) error {
		if len(memories) == 0 {
			logging.Consolidate("no memories in window, skipping pattern synthesis")
			return c.finish(tx, agent, now)
		}

		groups := groupByCategory(memories)
		for category, members := range groups {
			if len(members) < 3 {
				continue
			}
			pattern := synthesizePattern(category, members, now)
			if err := c.store.AddNeuralPatternTx(tx, pattern); err != nil {
				return err
			}
			patterns = append(patterns, pattern)

			for _, m := range members {
				if err := c.store.AddEdgeTx(tx, pattern.ID, m.ID, store.EdgePattern, pattern.Confidence, nil); err != nil {
					return err
				}
			}
		}

		if err := c.emitTemporalEdges(tx, memories); err != nil {
			return err
		}
		if err := c.emitSemanticEdges(tx, memories); err != nil {
			return err
		}

		logging.Consolidate("consolidation pass: %d memories scanned, %d patterns synthesized", len(memories), len(patterns))
		return c.finish(tx, agent, now)
	})
	if err != nil {
		return nil, err
	}
	return patterns, nil
}

func (c *Consolidator) finish(tx *sql.Tx, agent string, now int64) error {
	if agent == "" {
		agent = "setup-agent"
	}
	if err := c.store.RegisterAgentTx(tx, agent, "", now); err != nil {
		return err
	}
	if err := c.store.SetStatTx(tx, "last_consolidation", strconv.FormatInt(now, 10)); err != nil {
		return err
	}
	return c.store.IncrementStatTx(tx, "consolidation_count")
}

// groupByCategory buckets memories by kind+ext(content), the normalized
// category the spec names.
func groupByCategory(memories []store.Memory) map[string][]store.Memory {
	groups := make(map[string][]store.Memory)
	for _, m := range memories {
		cat := string(m.Kind) + ":" + contentExt(m.Content)
		groups[cat] = append(groups[cat], m)
	}
	return groups
}

// contentExt guesses a file extension from memory content: most edit/command
// memories carry a path as either the whole content or a leading token.
func contentExt(content string) string {
	token := content
	if i := strings.IndexAny(content, " \n\t"); i >= 0 {
		token = content[:i]
	}
	ext := filepath.Ext(token)
	if ext == "" {
		return "none"
	}
	return ext
}

func synthesizePattern(category string, members []store.Memory, now int64) store.NeuralPattern {
	var content strings.Builder
	for _, m := range members {
		snippet := m.Content
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		content.WriteString(snippet)
	}

	vec := centroid(members)

	confidence := 0.5 + 0.1*float64(len(members))
	if confidence > 1.0 {
		confidence = 1.0
	}

	return store.NeuralPattern{
		ID:         fmt.Sprintf("np-%d-%04x", now, rand.Intn(1<<16)),
		Content:    content.String(),
		Category:   category,
		Embedding:  vec,
		Confidence: confidence,
		Usage:      int64(len(members)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// centroid averages member embeddings component-wise; when any member lacks
// an embedding it falls back to HashEmbedding of the members' concatenated
// content, a 5-component vector not sized to the members' dimension.
func centroid(members []store.Memory) []float32 {
	dim := 0
	for _, m := range members {
		if len(m.Embedding) == 0 {
			return hashEmbedding(members)
		}
		if dim == 0 {
			dim = len(m.Embedding)
		} else if len(m.Embedding) != dim {
			return hashEmbedding(members)
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float32, dim)
	for _, m := range members {
		for i, v := range m.Embedding {
			sum[i] += v
		}
	}
	n := float32(len(members))
	for i := range sum {
		sum[i] /= n
	}
	return sum
}

func hashEmbedding(members []store.Memory) []float32 {
	var content strings.Builder
	for _, m := range members {
		content.WriteString(m.Content)
	}
	return HashEmbedding(content.String())
}

// HashEmbedding synthesizes an embedding from a content hash, the fallback
// the spec names both for a pattern group missing any member embedding and
// for the sona-consolidate bridge when a neural pattern lacks one.
func HashEmbedding(content string) []float32 {
	sum := sha1.Sum([]byte(content))
	out := make([]float32, len(sum)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(sum[i*4 : i*4+4])
		out[i] = float32(bits) / float32(1<<32)
	}
	return out
}

// emitTemporalEdges connects consecutive memories (by timestamp, the window
// already comes back ordered newest-first) whose gap is at most 60s.
func (c *Consolidator) emitTemporalEdges(tx *sql.Tx, memories []store.Memory) error {
	for i := 0; i+1 < len(memories); i++ {
		a, b := memories[i], memories[i+1]
		delta := a.Timestamp - b.Timestamp
		if delta < 0 {
			delta = -delta
		}
		if delta > 60 {
			continue
		}
		if err := c.store.AddEdgeTx(tx, b.ID, a.ID, store.EdgeTemporal, 1.0, nil); err != nil {
			return err
		}
	}
	return nil
}

// emitSemanticEdges connects memory pairs above the configured cosine
// similarity threshold, capped at maxSemanticEdges per pass.
func (c *Consolidator) emitSemanticEdges(tx *sql.Tx, memories []store.Memory) error {
	emitted := 0
	for i := 0; i < len(memories) && emitted < c.maxSemanticEdges; i++ {
		if len(memories[i].Embedding) == 0 {
			continue
		}
		for j := i + 1; j < len(memories) && emitted < c.maxSemanticEdges; j++ {
			if len(memories[j].Embedding) == 0 {
				continue
			}
			sim, err := embedding.CosineSimilarity(memories[i].Embedding, memories[j].Embedding)
			if err != nil {
				continue
			}
			if sim < c.semanticThreshold {
				continue
			}
			if err := c.store.AddEdgeTx(tx, memories[i].ID, memories[j].ID, store.EdgeSemantic, sim, nil); err != nil {
				return err
			}
			emitted++
		}
	}
	return nil
}
