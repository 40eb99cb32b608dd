package sona

import (
	"encoding/binary"
	"math"
)

// packLittleEndian serializes a float32 vector as little-endian bytes,
// matching the wire format the store package uses for memory and neural
// pattern embeddings.
func packLittleEndian(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
