package sona

import (
	"encoding/json"
	"strconv"
	"sync"

	"nerdmem/internal/consolidate"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

// Compressor is C6, the pattern compressor. It selects between the native
// and fallback backends at construction time based on the native backend's
// startup self-test, and exposes the idempotent lifecycle the hook router
// and RL engine drive it with.
type Compressor struct {
	mu       sync.Mutex
	store    *store.Store
	backend  Backend
	cache    *patternCache
	ewcTasks map[string]float64
}

// New constructs a Compressor. If hnswEnabled is true the native backend's
// three-call self-test runs first; on failure (or if disabled) the
// fallback backend is installed for the remainder of the process.
func New(s *store.Store, dim int, hnswEnabled bool) *Compressor {
	c := &Compressor{store: s, cache: newPatternCache(), ewcTasks: make(map[string]float64)}

	if hnswEnabled {
		if native, err := newNativeBackend(s, dim); err == nil && native.selfTest() {
			logging.Sona("native backend passed startup self-test, using it")
			c.backend = native
		} else {
			logging.SonaWarn("native backend unavailable or failed self-test, falling back: %v", err)
		}
	}
	if c.backend == nil {
		c.backend = newFallbackBackend(s, 1000)
	}
	return c
}

// StorePattern is the spec's store_pattern(layer, embedding, metadata).
func (c *Compressor) StorePattern(layer string, embedding []float32, metadata string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.backend.StorePattern(layer, embedding, metadata)
	if err != nil {
		return false, err
	}
	c.cache.invalidate(layer)
	return ok, nil
}

// GetPatterns is the spec's get_patterns(layer, limit).
func (c *Compressor) GetPatterns(layer string, limit int) ([]store.CompressedPattern, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache.get(layer); ok {
		if len(cached) > limit {
			return cached[:limit], nil
		}
		return cached, nil
	}

	patterns, err := c.backend.GetPatterns(layer, limit)
	if err != nil {
		return nil, err
	}
	c.cache.set(layer, patterns)
	return patterns, nil
}

// Tick implements rl.SonaBridge: one idempotent advancement step, fired
// after a trajectory ends.
func (c *Compressor) Tick() error {
	logging.SonaDebug("tick on backend=%s", c.backend.Name())
	return nil
}

// Warmup implements rl.SonaBridge: feeds a synthesized embedding from the
// replay warm-up path through store_pattern under a reserved layer so the
// backend is warm before the first real event.
func (c *Compressor) Warmup(embedding []float32) error {
	_, err := c.StorePattern("warmup", embedding, "")
	return err
}

// Flush and ForceLearn are idempotent advancement calls fired on
// session-end; the tabular/SQL-backed implementation has nothing buffered
// to drain, so both are no-ops.
func (c *Compressor) Flush() error      { return nil }
func (c *Compressor) ForceLearn() error { return nil }

// ApplyMicroLoRA and ApplyBaseLoRA are identity transforms: the spec names
// them as hooks for a future LoRA-adapted projection, but nothing in this
// system trains adapter weights, so both return the input vector unchanged.
func (c *Compressor) ApplyMicroLoRA(vec []float32) []float32 { return vec }
func (c *Compressor) ApplyBaseLoRA(vec []float32) []float32  { return vec }

// AddEWCTask records an elastic-weight-consolidation task importance. With
// no trainable weights to protect, this only bookkeeps the value so a
// future learning pass (or the validator) can read back what was
// registered.
func (c *Compressor) AddEWCTask(taskID string, importance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ewcTasks[taskID] = importance
}

// BridgeConsolidatedPatterns implements the spec's sona-consolidate event:
// every neural_pattern that has an embedding is copied into a
// compressed_pattern with layer = category; patterns lacking an embedding
// get one synthesized from a content hash.
func (c *Compressor) BridgeConsolidatedPatterns(patterns []store.NeuralPattern) error {
	for _, p := range patterns {
		embedding := p.Embedding
		if len(embedding) == 0 {
			embedding = consolidate.HashEmbedding(p.Content)
		}
		metadata, err := json.Marshal(map[string]string{
			"pattern_id": p.ID,
			"usage":      strconv.FormatInt(p.Usage, 10),
		})
		if err != nil {
			return err
		}
		if _, err := c.StorePattern(p.Category, embedding, string(metadata)); err != nil {
			return err
		}
	}
	return nil
}
