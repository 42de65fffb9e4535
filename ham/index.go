package ham

import "context"

// SemanticIndex is the best-effort embedding side index, keyed by record id.
// The store writes to it opportunistically after a successful persist and
// never depends on it for correctness: Add failures are logged and swallowed,
// and a failing or absent index degrades queries to token-overlap ranking.
//
// The index is eventually consistent with the record store; no ordering is
// guaranteed across the async boundary.
//
// Implementations: chromem.Index (embedded, index/chromem).
type SemanticIndex interface {
	// Add indexes text under the record id. Fire-and-forget from the
	// store's perspective.
	Add(ctx context.Context, id string, text string, metadata Metadata) error

	// SimilarityQuery returns up to k record ids ranked by similarity to
	// text, best first.
	SimilarityQuery(ctx context.Context, text string, k int) ([]string, error)

	// Close releases index resources.
	Close() error
}

// Embedder converts text to vector embeddings for the semantic index.
// Implementations: mock (testing), onnx (local model, build-tagged),
// cached (ristretto wrapper), all under index/embedder.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
