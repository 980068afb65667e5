package chromem_test

import (
	"context"
	"testing"

	"github.com/personaflow/tieredmem/memory"
	"github.com/personaflow/tieredmem/memory/index/chromem"
)

func axis(i int) []float32 {
	vec := make([]float32, 4)
	vec[i] = 1
	return vec
}

func addDoc(t *testing.T, idx *chromem.Index, userID, id, kind, content string, embedding []float32) {
	t.Helper()
	err := idx.Add(context.Background(), memory.IndexDoc{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Content:   content,
		Embedding: embedding,
	})
	if err != nil {
		t.Fatalf("Add(%s) failed: %v", id, err)
	}
}

func TestIndex_AddAndSearch(t *testing.T) {
	idx, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	ctx := context.Background()

	addDoc(t, idx, "u1", "d1", memory.KindShortTerm, "bicycle repair", axis(0))
	addDoc(t, idx, "u1", "d2", memory.KindShortTerm, "cooking class", axis(1))

	hits, err := idx.Search(ctx, "u1", axis(0), 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].ID != "d1" {
		t.Errorf("nearest hit = %s, want d1", hits[0].ID)
	}
	if hits[0].Kind != memory.KindShortTerm || hits[0].Content != "bicycle repair" {
		t.Errorf("hit fields lost: %+v", hits[0])
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("identical vector similarity = %v, want ~1", hits[0].Similarity)
	}
}

func TestIndex_SearchClampsLimit(t *testing.T) {
	idx, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	ctx := context.Background()

	addDoc(t, idx, "u1", "d1", memory.KindShortTerm, "only doc", axis(0))

	// Limit far above the collection size must not error.
	hits, err := idx.Search(ctx, "u1", axis(0), 20)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits, want 1", len(hits))
	}
}

func TestIndex_SearchEmptyCollection(t *testing.T) {
	idx, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	hits, err := idx.Search(context.Background(), "nobody", axis(0), 5)
	if err != nil {
		t.Fatalf("Search on empty collection failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits from empty collection", len(hits))
	}
}

func TestIndex_UserIsolation(t *testing.T) {
	idx, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	ctx := context.Background()

	addDoc(t, idx, "alice", "a1", memory.KindShortTerm, "alice doc", axis(0))
	addDoc(t, idx, "bob", "b1", memory.KindShortTerm, "bob doc", axis(0))

	hits, err := idx.Search(ctx, "alice", axis(0), 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, hit := range hits {
		if hit.ID == "b1" {
			t.Error("bob's document leaked into alice's results")
		}
	}
}

func TestIndex_RemoveAndRemoveKind(t *testing.T) {
	idx, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	ctx := context.Background()

	addDoc(t, idx, "u1", "s1", memory.KindShortTerm, "short one", axis(0))
	addDoc(t, idx, "u1", "s2", memory.KindShortTerm, "short two", axis(1))
	addDoc(t, idx, "u1", "dyn1", memory.KindDynamic, "dynamic one", axis(2))

	if err := idx.Remove(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	hits, _ := idx.Search(ctx, "u1", axis(0), 5)
	for _, hit := range hits {
		if hit.ID == "s1" {
			t.Error("removed document still searchable")
		}
	}

	if err := idx.RemoveKind(ctx, "u1", memory.KindDynamic); err != nil {
		t.Fatalf("RemoveKind failed: %v", err)
	}
	hits, _ = idx.Search(ctx, "u1", axis(2), 5)
	for _, hit := range hits {
		if hit.Kind == memory.KindDynamic {
			t.Error("removed kind still searchable")
		}
	}

	// RemoveKind on an empty or unknown user is a no-op.
	if err := idx.RemoveKind(ctx, "ghost", memory.KindShortTerm); err != nil {
		t.Errorf("RemoveKind on unknown user failed: %v", err)
	}
}
