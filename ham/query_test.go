package ham_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikoai/ham-go/ham"
	"github.com/mikoai/ham-go/index/chromem"
	"github.com/mikoai/ham-go/index/embedder/mock"
)

func storeDialogue(t *testing.T, store *ham.Store, texts ...string) []string {
	t.Helper()
	ids := make([]string, len(texts))
	for i, text := range texts {
		id, err := store.Store(context.Background(), "user_dialogue_text", text, nil)
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		ids[i] = id
	}
	return ids
}

func TestQueryKeywordsMostRecentFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ids := storeDialogue(t, store,
		"Hello there, nice to meet you.",
		"The weather is cloudy today.",
		"Hello again, good to see you.",
		"Completely unrelated remark about cooking.",
	)

	results, err := store.Query(context.Background(), ham.QueryOptions{
		Keywords: []string{"hello"},
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != ids[2] || results[1].ID != ids[0] {
		t.Errorf("order = [%s %s], want [%s %s]", results[0].ID, results[1].ID, ids[2], ids[0])
	}
}

func TestQueryFallbackScoring(t *testing.T) {
	store, _ := newTestStore(t)
	ids := storeDialogue(t, store,
		"I love mountain hiking every weekend.",
		"Hiking boots need replacement soon.",
		"Pasta recipes are my latest obsession.",
	)

	// No semantic index configured: token-overlap fallback ranks by shared
	// tokens, then recency.
	results, err := store.Query(context.Background(), ham.QueryOptions{
		SemanticQuery: "mountain hiking",
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != ids[0] {
		t.Errorf("top result = %s, want %s", results[0].ID, ids[0])
	}
	if results[1].ID != ids[1] {
		t.Errorf("second result = %s, want %s", results[1].ID, ids[1])
	}
}

func TestQuerySemanticIndex(t *testing.T) {
	index, err := chromem.New(mock.New())
	if err != nil {
		t.Fatalf("chromem.New failed: %v", err)
	}
	store, err := ham.New(ham.Config{
		MirrorPath: filepath.Join(t.TempDir(), "mirror.json"),
		Index:      index,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	ids := storeDialogue(t, store,
		"Banana smoothie recipes for breakfast.",
		"Quarterly finance report is due Friday.",
		"The garden needs watering twice a week.",
	)
	store.Flush()

	results, err := store.Query(context.Background(), ham.QueryOptions{
		SemanticQuery: "banana smoothie breakfast",
		Limit:         1,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != ids[0] {
		t.Errorf("top result = %s, want %s", results[0].ID, ids[0])
	}
}

func TestQueryDataKindPrefixAndMetadata(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	userID, err := store.Store(ctx, "user_dialogue_text", "User says something.", ham.Metadata{
		"speaker": ham.String("user"),
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := store.Store(ctx, "ai_dialogue_text", "Assistant replies.", ham.Metadata{
		"speaker": ham.String("assistant"),
	}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	results, err := store.Query(ctx, ham.QueryOptions{
		DataKindPrefix: "user_",
		MetadataEquals: map[string]ham.Value{"speaker": ham.String("user")},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != userID {
		t.Fatalf("results = %v, want only %s", results, userID)
	}
}

func TestQueryByDateRange(t *testing.T) {
	store, _ := newTestStore(t)
	ids := storeDialogue(t, store, "First note.", "Second note.")

	now := time.Now().UTC()
	results, err := store.QueryByDateRange(context.Background(),
		now.Add(-time.Hour), now.Add(time.Hour), ham.QueryOptions{})
	if err != nil {
		t.Fatalf("QueryByDateRange failed: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}

	results, err = store.QueryByDateRange(context.Background(),
		now.Add(-2*time.Hour), now.Add(-time.Hour), ham.QueryOptions{})
	if err != nil {
		t.Fatalf("QueryByDateRange failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results for a past-only window, want 0", len(results))
	}
}

func TestQuerySortByConfidence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, conf := range []float64{0.2, 0.9, 0.5} {
		id, err := store.Store(ctx, "fact", "a learned fact", ham.Metadata{
			ham.MetaConfidence: ham.Number(conf),
		})
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		ids = append(ids, id)
	}

	results, err := store.Query(ctx, ham.QueryOptions{
		DataKindPrefix:   "fact",
		SortByConfidence: true,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []string{ids[1], ids[2], ids[0]}
	for i, w := range want {
		if results[i].ID != w {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID, w)
		}
	}
}

func TestQueryBadFilters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var qe *ham.QueryError
	if _, err := store.Query(ctx, ham.QueryOptions{Limit: -1}); !errors.As(err, &qe) {
		t.Fatalf("negative limit: want QueryError, got %v", err)
	}

	now := time.Now()
	_, err := store.Query(ctx, ham.QueryOptions{
		DateRange: ham.DateRange{Start: now, End: now.Add(-time.Hour)},
	})
	if !errors.As(err, &qe) {
		t.Fatalf("inverted range: want QueryError, got %v", err)
	}
}
