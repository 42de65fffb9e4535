// Package mock provides a deterministic embedder for tests and examples. It
// hashes tokens into a fixed number of buckets, so texts sharing words land
// near each other under cosine similarity without any model involved.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const defaultDimensions = 64

// Embedder is a deterministic token-bucket embedder.
type Embedder struct {
	dims int
}

// New returns a mock embedder with the default dimensionality.
func New() *Embedder {
	return &Embedder{dims: defaultDimensions}
}

// Embed maps each lowercase token into a bucket and normalizes the result to
// unit length. The same text always yields the same vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		tok := strings.Trim(raw, ".,!?;:'\"()")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int { return e.dims }
