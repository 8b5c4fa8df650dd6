package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// HashDimension is the default vector size for the hashing embedder, matching
// the footprint of small sentence-transformer models.
const HashDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

// HashEmbedder is a deterministic local embedder using signed feature
// hashing over word tokens. It needs no model files or network access, which
// makes it the embedder for tests and fully offline deployments. Texts
// sharing vocabulary land near each other; it is not a substitute for a
// learned model's semantics.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hashing embedder. A dimension <= 0 selects
// HashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = HashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the configured vector size.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// EmbedBatch embeds each text independently, preserving order. It never
// fails: empty or whitespace-only input embeds to the zero vector.
func (e *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		// One hash bit decides the sign so colliding tokens tend to
		// cancel instead of accumulating bias.
		if sum&(1<<63) == 0 {
			v[idx]++
		} else {
			v[idx]--
		}
	}
	normalize(v)
	return v
}
