// Package embedding maps batches of chunk text to fixed-dimension vectors.
//
// Two implementations exist: the OpenAI embedder used in deployments, and a
// deterministic local feature-hashing embedder for offline use and tests.
// Both are order-preserving and deterministic for a fixed configuration, and
// both produce a vector for empty input rather than failing.
package embedding

import (
	"context"
	"math"
)

// Embedder transforms a batch of texts into a batch of equal-length vectors,
// preserving order. Same text and same configuration always yield the same
// vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config selects and tunes an embedding model. Ingestion and retrieval must
// share one Config: vectors from different models live in incompatible
// spaces and compare as noise.
type Config struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	Normalize bool   `yaml:"normalize"`
}

// normalize scales v to unit length in place so that cosine similarity
// reduces to a dot product in the store. A zero vector is left unchanged.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
