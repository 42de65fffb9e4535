// Package cached wraps an embedder with a ristretto cache so repeated texts
// (common for session boilerplate and re-run queries) skip the model.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/mikoai/ham-go/ham"
)

// Embedder memoizes another embedder keyed by exact text.
type Embedder struct {
	inner ham.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache holding up to maxEntries embeddings.
func New(inner ham.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cached: maxEntries must be positive")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cached: build cache: %w", err)
	}
	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, embedding through the inner
// embedder on a miss. Admission is best-effort; a rejected Set just means the
// next call embeds again.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, 1)
	return vec, nil
}

// Wait blocks until pending cache admissions settle. Mainly for tests.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Dimensions returns the inner embedder's size.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// Close releases the cache's internal goroutines.
func (e *Embedder) Close() {
	e.cache.Close()
}
