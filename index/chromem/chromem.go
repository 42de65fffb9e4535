// Package chromem implements ham.SemanticIndex on chromem-go, a pure Go
// embedded vector database. The index lives entirely in process memory and is
// rebuilt from the record store on restart.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mikoai/ham-go/ham"
)

const collectionName = "ham_memories"

// Index is a chromem-backed semantic index. Writes embed through the
// configured embedder; similarity queries return record ids best-first.
type Index struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder ham.Embedder
	mu       sync.Mutex
}

// New builds an in-memory index over embedder.
func New(embedder ham.Embedder) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem: embedder is required")
	}
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}
	return &Index{db: db, col: col, embedder: embedder}, nil
}

// Add embeds text and indexes it under the record id. Metadata values flatten
// to strings; chromem metadata is string-typed.
func (x *Index) Add(ctx context.Context, id string, text string, metadata ham.Metadata) error {
	embedding, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("chromem: embed %s: %w", id, err)
	}

	doc := chromem.Document{
		ID:        id,
		Content:   text,
		Embedding: embedding,
		Metadata:  toStringMap(metadata),
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem: add document %s: %w", id, err)
	}
	log.Printf("[CHROMEM] indexed %s (%d dims)", id, len(embedding))
	return nil
}

// SimilarityQuery returns up to k record ids ranked by cosine similarity to
// text. chromem rejects result counts above the collection size, so k is
// clamped; an empty collection returns no ids and no error.
func (x *Index) SimilarityQuery(ctx context.Context, text string, k int) ([]string, error) {
	embedding, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("chromem: embed query: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if n := x.col.Count(); n < k {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := x.col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	log.Printf("[CHROMEM] similarity query returned %d id(s)", len(ids))
	return ids, nil
}

// Close is a no-op; chromem holds everything in memory.
func (x *Index) Close() error {
	return nil
}

func toStringMap(md ham.Metadata) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v.String()
	}
	return out
}
