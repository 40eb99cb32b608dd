package store

import (
	"encoding/binary"
	"math"
)

// packEmbedding serializes a float32 vector as little-endian bytes, the wire
// format the spec requires for the memories.embedding and
// neural_patterns.embedding columns.
func packEmbedding(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// unpackEmbedding is the inverse of packEmbedding. A byte length not a
// multiple of 4 yields a best-effort truncated result.
func unpackEmbedding(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// resizeEmbedding truncates or zero-pads v to exactly dim entries.
func resizeEmbedding(v []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, v)
	return out
}

// embeddingBytesFor reports the byte length for a packed vector of dim
// float32s, the invariant the spec ties "legacy" detection to.
func embeddingBytesFor(dim int) int {
	return 4 * dim
}
