package ham

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecallNudgesRelevance(t *testing.T) {
	store, err := New(Config{MirrorPath: filepath.Join(t.TempDir(), "mirror.json")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	id, err := store.Store(context.Background(), "generic", "nudge me", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec := store.records[id]
	if rec.Relevance != initialRelevance {
		t.Fatalf("initial relevance = %v, want %v", rec.Relevance, initialRelevance)
	}

	for i := 0; i < 10; i++ {
		if _, err := store.Recall(id); err != nil {
			t.Fatalf("Recall failed: %v", err)
		}
	}
	if rec.Relevance != 1.0 {
		t.Errorf("relevance after 10 recalls = %v, want clamped 1.0", rec.Relevance)
	}

	// RecallRaw must not count as a recall.
	before := rec.Relevance
	if _, err := store.RecallRaw(id); err != nil {
		t.Fatalf("RecallRaw failed: %v", err)
	}
	if rec.Relevance != before {
		t.Errorf("RecallRaw changed relevance: %v -> %v", before, rec.Relevance)
	}
}

func TestSweepEvictsLeastRelevantFirst(t *testing.T) {
	store, err := New(Config{MirrorPath: filepath.Join(t.TempDir(), "mirror.json")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	cold, err := store.Store(ctx, "generic", "never recalled", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	warm, err := store.Store(ctx, "generic", "recalled often", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := store.Recall(warm); err != nil {
		t.Fatalf("Recall failed: %v", err)
	}

	if n := store.sweep(1); n != 1 {
		t.Fatalf("sweep evicted %d, want 1", n)
	}
	if _, ok := store.records[cold]; ok {
		t.Error("cold record survived, warm should have")
	}
	if _, ok := store.records[warm]; !ok {
		t.Error("warm record was evicted")
	}
}

func TestSweepTiesBreakOldestFirst(t *testing.T) {
	store, err := New(Config{MirrorPath: filepath.Join(t.TempDir(), "mirror.json")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	old := &Record{ID: "mem_000001", CreatedAt: time.Now().Add(-time.Hour), Relevance: 0.5, Metadata: Metadata{}}
	young := &Record{ID: "mem_000002", CreatedAt: time.Now(), Relevance: 0.5, Metadata: Metadata{}}
	store.records[old.ID] = old
	store.records[young.ID] = young

	if n := store.sweep(1); n != 1 {
		t.Fatalf("sweep evicted %d, want 1", n)
	}
	if _, ok := store.records[old.ID]; ok {
		t.Error("older record survived a relevance tie")
	}
}

func TestAbstractText(t *testing.T) {
	g := abstractText("Apples grow on trees. Apples taste great. Orchards are full of apples.")
	if g.Summary != "Apples grow on trees." {
		t.Errorf("summary = %q", g.Summary)
	}
	if len(g.Keywords) == 0 || g.Keywords[0] != "apples" {
		t.Errorf("keywords = %v, want apples first", g.Keywords)
	}
	if g.OriginalLength == 0 {
		t.Error("original length not recorded")
	}
	if g.RelationalContext == nil || len(g.RelationalContext.Entities) == 0 {
		t.Error("relational context missing")
	}
}

func TestExtractKeywordsSkipsStopwords(t *testing.T) {
	kws := extractKeywords("the cat and the dog and the cat")
	for _, kw := range kws {
		if kw == "the" || kw == "and" {
			t.Errorf("stopword %q leaked into keywords", kw)
		}
	}
	if len(kws) == 0 || kws[0] != "cat" {
		t.Errorf("keywords = %v, want cat first (higher count)", kws)
	}
}

func TestScoreImportance(t *testing.T) {
	short := &Gist{Raw: "hi"}
	if got := scoreImportance(short, nil); got != 0.5 {
		t.Errorf("short content score = %v, want 0.5", got)
	}

	long := &Gist{OriginalLength: 500}
	md := Metadata{
		MetaProtected: Bool(true),
		MetaSpeaker:   String("user"),
	}
	if got := scoreImportance(long, md); got != 1.0 {
		t.Errorf("stacked score = %v, want clamped 1.0", got)
	}
}

func TestNewDialogueMetadataGeneratesSession(t *testing.T) {
	md := NewDialogueMetadata("user", "user:1", "")
	if md.StringAt(MetaSessionID) == "" {
		t.Error("session id not generated")
	}
	fixed := NewDialogueMetadata("user", "user:1", "session-xyz")
	if fixed.StringAt(MetaSessionID) != "session-xyz" {
		t.Errorf("session id = %q, want session-xyz", fixed.StringAt(MetaSessionID))
	}
}
