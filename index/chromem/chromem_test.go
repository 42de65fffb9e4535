package chromem_test

import (
	"context"
	"testing"

	"github.com/mikoai/ham-go/ham"
	"github.com/mikoai/ham-go/index/chromem"
	"github.com/mikoai/ham-go/index/embedder/mock"
)

func TestIndexAddAndQuery(t *testing.T) {
	index, err := chromem.New(mock.New())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer index.Close()

	ctx := context.Background()
	docs := map[string]string{
		"mem_000001": "banana smoothie with yogurt and honey",
		"mem_000002": "quarterly finance report deadlines",
		"mem_000003": "watering the garden tomatoes",
	}
	for id, text := range docs {
		if err := index.Add(ctx, id, text, ham.Metadata{"id": ham.String(id)}); err != nil {
			t.Fatalf("Add %s failed: %v", id, err)
		}
	}

	ids, err := index.SimilarityQuery(ctx, "banana smoothie recipe", 2)
	if err != nil {
		t.Fatalf("SimilarityQuery failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0] != "mem_000001" {
		t.Errorf("top id = %s, want mem_000001", ids[0])
	}
}

func TestSimilarityQueryEmptyCollection(t *testing.T) {
	index, err := chromem.New(mock.New())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer index.Close()

	ids, err := index.SimilarityQuery(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("SimilarityQuery on empty collection failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("got %d ids from an empty collection", len(ids))
	}
}

func TestNewRequiresEmbedder(t *testing.T) {
	if _, err := chromem.New(nil); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}
