package llmclient

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LocalHashEmbedder is a deterministic, dependency-free ports.Embedder used
// in tests and as an offline fallback: it hashes each lowercased word into
// one bucket of a fixed-dimension vector. It produces no semantic information, but
// satisfies the contract (stable dimension, same text -> same vector) well
// enough to exercise C3/C4's normalization, persistence, and ranking logic
// without a network call.
type LocalHashEmbedder struct {
	dim int
}

// NewLocalHashEmbedder constructs an embedder producing vectors of the given
// dimension.
func NewLocalHashEmbedder(dim int) *LocalHashEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &LocalHashEmbedder{dim: dim}
}

// Embed hashes each word of text into a bucket of the output vector and
// L2-normalizes the result.
func (e *LocalHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		bucket := int(h.Sum32()) % e.dim
		if bucket < 0 {
			bucket += e.dim
		}
		vec[bucket]++
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	out := make([]float32, e.dim)
	if sumSq == 0 {
		return out, nil
	}
	norm := math.Sqrt(sumSq)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// ListModels reports a single synthetic model id; the local embedder is
// always available.
func (e *LocalHashEmbedder) ListModels(_ context.Context) ([]string, error) {
	return []string{"local-hash-embedder"}, nil
}
