package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/mikoai/ham-go/index/embedder/mock"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbedDeterministic(t *testing.T) {
	e := mock.New()
	ctx := context.Background()

	a, err := e.Embed(ctx, "hiking in the mountains")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(ctx, "hiking in the mountains")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different embeddings")
		}
	}
	if len(a) != e.Dimensions() {
		t.Fatalf("len = %d, want %d", len(a), e.Dimensions())
	}
}

func TestEmbedUnitLength(t *testing.T) {
	e := mock.New()
	vec, err := e.Embed(context.Background(), "normalize this text please")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if norm := cosine(vec, vec); math.Abs(norm-1.0) > 1e-5 {
		t.Fatalf("norm^2 = %v, want 1.0", norm)
	}
}

func TestSharedTokensScoreHigher(t *testing.T) {
	e := mock.New()
	ctx := context.Background()

	query, _ := e.Embed(ctx, "banana smoothie")
	near, _ := e.Embed(ctx, "banana smoothie with honey")
	far, _ := e.Embed(ctx, "quarterly finance report")

	if cosine(query, near) <= cosine(query, far) {
		t.Fatal("overlapping text did not score higher")
	}
}
