package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const defaultHashDimensions = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEncoder is a deterministic local encoder. Each lower-cased word token is
// hashed into one of Dimensions buckets with a hash-derived sign, weighted by
// sublinear term frequency, and the vector is L2 normalised. It needs no model
// download and no network, so identical texts always yield identical vectors.
type HashEncoder struct {
	dimensions int
}

// NewHashEncoder creates a HashEncoder. dimensions <= 0 selects 384.
func NewHashEncoder(dimensions int) *HashEncoder {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &HashEncoder{dimensions: dimensions}
}

func (e *HashEncoder) Model() string {
	return "hash-" + strconv.Itoa(e.dimensions)
}

// Encode returns the vector for text. Text without tokens yields the zero vector.
func (e *HashEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	return e.encode(text), nil
}

// EncodeBatch encodes each text independently.
func (e *HashEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.encode(text)
	}
	return out, nil
}

func (e *HashEncoder) encode(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		counts[tok]++
	}

	acc := make([]float64, e.dimensions)
	for tok, n := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimensions))
		weight := 1 + math.Log(float64(n))
		if (sum>>63)&1 == 1 {
			weight = -weight
		}
		acc[bucket] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dimensions)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
