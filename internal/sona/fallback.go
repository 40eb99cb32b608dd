package sona

import (
	"time"

	"nerdmem/internal/store"
)

// fallbackBackend writes directly to compressed_patterns, the spec's
// documented behavior when the native HNSW-style backend is unavailable or
// has failed its startup self-test.
type fallbackBackend struct {
	store       *store.Store
	maxPatterns int
}

func newFallbackBackend(s *store.Store, maxPatterns int) *fallbackBackend {
	if maxPatterns <= 0 {
		maxPatterns = 1000
	}
	return &fallbackBackend{store: s, maxPatterns: maxPatterns}
}

func (b *fallbackBackend) Name() string { return "fallback" }

func (b *fallbackBackend) StorePattern(layer string, embedding []float32, metadata string) (bool, error) {
	blob := packLittleEndian(embedding)
	ratio := compressionRatio(len(embedding), len(blob))

	if _, err := b.store.SaveCompressedPattern(store.CompressedPattern{
		Layer:            layer,
		DataBlob:         blob,
		CompressionRatio: ratio,
		CreatedAt:        time.Now().Unix(),
		Metadata:         metadata,
	}); err != nil {
		return false, err
	}

	count, err := b.store.CountCompressedPatterns()
	if err != nil {
		return false, err
	}
	if count > int64(b.maxPatterns) {
		if err := b.store.EvictOldestCompressedPatterns(b.maxPatterns); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (b *fallbackBackend) GetPatterns(layer string, limit int) ([]store.CompressedPattern, error) {
	return b.store.GetCompressedPatterns(layer, limit)
}

// compressionRatio reports 4*D / stored_bytes, the ratio the spec asks the
// fallback backend to report for a Float32 embedding of dimension D.
func compressionRatio(dim, storedBytes int) float64 {
	if storedBytes == 0 {
		return 1.0
	}
	return float64(4*dim) / float64(storedBytes)
}
