package sona

import (
	"github.com/dgraph-io/ristretto/v2"

	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

// patternCache fronts get_patterns reads with an admission-policy cache so
// repeated reads of a hot layer (the viz front-end polling, a warm-up
// replay re-reading the same layer) don't keep re-querying the backend.
type patternCache struct {
	cache *ristretto.Cache[string, []store.CompressedPattern]
}

func newPatternCache() *patternCache {
	c, err := ristretto.NewCache(&ristretto.Config[string, []store.CompressedPattern]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		logging.SonaWarn("pattern cache disabled, construction failed: %v", err)
		return &patternCache{}
	}
	return &patternCache{cache: c}
}

func (c *patternCache) get(layer string) ([]store.CompressedPattern, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(layer)
}

func (c *patternCache) set(layer string, patterns []store.CompressedPattern) {
	if c.cache == nil {
		return
	}
	c.cache.SetWithTTL(layer, patterns, int64(len(patterns)+1), 0)
}

func (c *patternCache) invalidate(layer string) {
	if c.cache == nil {
		return
	}
	c.cache.Del(layer)
}
