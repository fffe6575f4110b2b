package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embeddings persist as fixed-length blobs of little-endian IEEE-754
// float32 values, 4 bytes per dimension.

// encodeVector serializes a float32 vector to its blob form.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, val := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(val))
	}
	return buf
}

// decodeVector deserializes a blob back into a float32 vector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}
