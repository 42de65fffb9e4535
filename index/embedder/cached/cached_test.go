package cached_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mikoai/ham-go/index/embedder/cached"
)

type countingEmbedder struct {
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return []float32{1, 0, 0}, nil
}

func (c *countingEmbedder) Dimensions() int { return 3 }

func TestCacheAvoidsRepeatEmbeds(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := cached.New(inner, 16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	if _, err := e.Embed(ctx, "repeated text"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	// ristretto admits asynchronously; Wait makes the Set visible.
	e.Wait()

	for i := 0; i < 50; i++ {
		if _, err := e.Embed(ctx, "repeated text"); err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("inner embedder called %d times, want 1", got)
	}
}

func TestNewRejectsZeroEntries(t *testing.T) {
	if _, err := cached.New(&countingEmbedder{}, 0); err == nil {
		t.Fatal("expected error for zero maxEntries")
	}
}
