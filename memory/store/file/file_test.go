package file_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/personaflow/tieredmem/memory"
	filestore "github.com/personaflow/tieredmem/memory/store/file"
)

func testItem(id, userID, content string, ts time.Time) memory.Item {
	return memory.Item{
		ID:        id,
		Content:   content,
		Embedding: []float32{0.1, 0.2},
		Timestamp: ts,
		UserID:    userID,
	}
}

func TestFileStore_ShortTermRoundTrip(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a1", "a2", "a3"} {
		item := testItem(id, "u1", "content "+id, base.Add(time.Duration(i)*time.Second))
		if err := store.AppendShortTerm(ctx, item); err != nil {
			t.Fatalf("AppendShortTerm(%s) failed: %v", id, err)
		}
	}

	items, err := store.ListShortTerm(ctx, "u1")
	if err != nil {
		t.Fatalf("ListShortTerm failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ID != "a3" || items[2].ID != "a1" {
		t.Errorf("items should be newest first, got %s .. %s", items[0].ID, items[2].ID)
	}
	if items[0].Content != "content a3" || items[0].UserID != "u1" {
		t.Errorf("item fields lost: %+v", items[0])
	}
	if len(items[0].Embedding) != 2 {
		t.Errorf("embedding lost: %+v", items[0].Embedding)
	}
}

func TestFileStore_TimestampTiebreakByID(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	same := time.Now()
	store.AppendShortTerm(ctx, testItem("b", "u1", "older id wins later", same))
	store.AppendShortTerm(ctx, testItem("a", "u1", "newer id", same))

	items, err := store.ListShortTerm(ctx, "u1")
	if err != nil {
		t.Fatalf("ListShortTerm failed: %v", err)
	}
	if items[0].ID != "b" {
		t.Errorf("equal timestamps should order by ID descending, got %s first", items[0].ID)
	}
}

func TestFileStore_DeleteShortTerm(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	store.AppendShortTerm(ctx, testItem("a1", "u1", "x", time.Now()))

	deleted, err := store.DeleteShortTerm(ctx, "a1", "u1")
	if err != nil || !deleted {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = store.DeleteShortTerm(ctx, "a1", "u1")
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
	// Deleting from a user with no file is not an error either.
	deleted, err = store.DeleteShortTerm(ctx, "nope", "ghost")
	if err != nil || deleted {
		t.Fatalf("ghost delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestFileStore_ClearShortTerm(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	store.AppendShortTerm(ctx, testItem("a1", "u1", "x", time.Now()))
	if err := store.ClearShortTerm(ctx, "u1"); err != nil {
		t.Fatalf("ClearShortTerm failed: %v", err)
	}
	items, err := store.ListShortTerm(ctx, "u1")
	if err != nil {
		t.Fatalf("ListShortTerm failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("cleared user still has %d items", len(items))
	}
	if err := store.ClearShortTerm(ctx, "u1"); err != nil {
		t.Errorf("clearing an already clear user should be a no-op: %v", err)
	}
}

func TestFileStore_LongTermLifecycle(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	if blob, err := store.ReadLongTerm(ctx, "u1"); err != nil || blob != "" {
		t.Fatalf("absent blob = (%q, %v), want empty", blob, err)
	}

	if err := store.ReplaceLongTerm(ctx, "u1", "version one"); err != nil {
		t.Fatalf("ReplaceLongTerm failed: %v", err)
	}
	if err := store.ReplaceLongTerm(ctx, "u1", "version two"); err != nil {
		t.Fatalf("ReplaceLongTerm failed: %v", err)
	}
	if blob, _ := store.ReadLongTerm(ctx, "u1"); blob != "version two" {
		t.Errorf("blob = %q, want the replacement", blob)
	}

	if err := store.DeleteLongTerm(ctx, "u1"); err != nil {
		t.Fatalf("DeleteLongTerm failed: %v", err)
	}
	if blob, _ := store.ReadLongTerm(ctx, "u1"); blob != "" {
		t.Errorf("deleted blob = %q, want empty", blob)
	}
	if err := store.DeleteLongTerm(ctx, "u1"); err != nil {
		t.Errorf("double delete should be a no-op: %v", err)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	store.AppendShortTerm(ctx, testItem("a1", "u1", "durable", time.Now()))
	store.ReplaceLongTerm(ctx, "u1", "durable model")
	store.Close()

	reopened, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	items, err := reopened.ListShortTerm(ctx, "u1")
	if err != nil || len(items) != 1 {
		t.Errorf("reopened items = (%v, %v), want the stored item", items, err)
	}
	if blob, _ := reopened.ReadLongTerm(ctx, "u1"); blob != "durable model" {
		t.Errorf("reopened blob = %q", blob)
	}
}

func TestFileStore_SanitizesUserIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.ReplaceLongTerm(ctx, "../evil/../../user", "contained"); err != nil {
		t.Fatalf("ReplaceLongTerm failed: %v", err)
	}
	if blob, _ := store.ReadLongTerm(ctx, "../evil/../../user"); blob != "contained" {
		t.Errorf("round trip through odd user ID failed: %q", blob)
	}

	// Everything stays inside the root directory.
	matches, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(matches) == 0 {
		t.Error("expected files inside the storage dir")
	}

	// Empty user ID falls back to a default file.
	if err := store.ReplaceLongTerm(ctx, "", "anonymous"); err != nil {
		t.Fatalf("ReplaceLongTerm failed: %v", err)
	}
	if blob, _ := store.ReadLongTerm(ctx, ""); blob != "anonymous" {
		t.Errorf("empty user round trip failed: %q", blob)
	}
}
