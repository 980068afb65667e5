package memory_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/personaflow/tieredmem/memory"
	"github.com/personaflow/tieredmem/memory/llm/mock"
	filestore "github.com/personaflow/tieredmem/memory/store/file"
)

func drainTestConfig() *memory.Config {
	config := *memory.DefaultConfig
	config.ShortTermMaxCount = 2
	config.PromotionBatchSize = 2
	return &config
}

func newTestCoordinator(t *testing.T, config *memory.Config, adapter memory.Adapter) *memory.Coordinator {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if adapter == nil {
		adapter = mock.New()
	}
	coord, err := memory.NewCoordinator(config, store, adapter)
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	t.Cleanup(func() { coord.Close() })
	return coord
}

func updateTurn(coord *memory.Coordinator, userID, content string) {
	coord.Update(context.Background(), []memory.Event{
		{Role: "user", Content: content, Time: time.Now()},
	}, userID, true)
	time.Sleep(2 * time.Millisecond)
}

func TestCoordinator_RejectsBadWiring(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()
	adapter := mock.New()

	bad := *memory.DefaultConfig
	bad.PromotionBatchSize = 0
	if _, err := memory.NewCoordinator(&bad, store, adapter); err == nil {
		t.Error("zero promotion batch size should be rejected")
	}
	if _, err := memory.NewCoordinator(nil, nil, adapter); err == nil {
		t.Error("nil store should be rejected")
	}
	if _, err := memory.NewCoordinator(nil, store, nil); err == nil {
		t.Error("nil adapter should be rejected")
	}
	if _, err := memory.NewCoordinator(nil, store, adapter); err != nil {
		t.Errorf("nil config should fall back to defaults: %v", err)
	}
}

func TestCoordinator_UpdateDrainsOverflow(t *testing.T) {
	coord := newTestCoordinator(t, drainTestConfig(), nil)
	ctx := context.Background()

	updateTurn(coord, "u1", "first")
	updateTurn(coord, "u1", "second")
	if got := coord.ShortTerm().Recent(ctx, "u1", 10); len(got) != 2 {
		t.Fatalf("no overflow yet, want 2 items, got %d", len(got))
	}

	// Third item overflows the cap of 2; the oldest batch of 2 is promoted.
	updateTurn(coord, "u1", "third")

	items := coord.ShortTerm().Recent(ctx, "u1", 10)
	if len(items) != 1 {
		t.Fatalf("after drain want 1 item, got %d", len(items))
	}
	if !strings.Contains(items[0].Content, "third") {
		t.Errorf("the newest item should survive, got %q", items[0].Content)
	}

	model := coord.LongTerm().Model(ctx, "u1")
	if model.IsEmpty() {
		t.Fatal("promotion should have built a cognitive model")
	}
	if !strings.Contains(model.Dynamic, "first") || !strings.Contains(model.Dynamic, "second") {
		t.Errorf("promoted contents missing from model:\n%s", model.Dynamic)
	}
	// Stimulus entries carry the item timestamps.
	if !strings.Contains(model.Dynamic, "[20") {
		t.Errorf("stimulus should be timestamp-prefixed:\n%s", model.Dynamic)
	}
}

func TestCoordinator_UpdateEmptyEventsIsNoOp(t *testing.T) {
	coord := newTestCoordinator(t, drainTestConfig(), nil)
	ctx := context.Background()

	coord.Update(ctx, nil, "u1", true)
	if got := coord.ShortTerm().Recent(ctx, "u1", 10); len(got) != 0 {
		t.Errorf("empty update should store nothing, got %d items", len(got))
	}
}

func TestCoordinator_DeleteOnFailureDropsBatch(t *testing.T) {
	adapter := mock.New()
	adapter.ReconstructFn = func(ctx context.Context, currentModel, stimulus string) (string, error) {
		return "", fmt.Errorf("model offline")
	}
	coord := newTestCoordinator(t, drainTestConfig(), adapter)
	ctx := context.Background()

	updateTurn(coord, "u1", "first")
	updateTurn(coord, "u1", "second")
	updateTurn(coord, "u1", "third")

	items := coord.ShortTerm().Recent(ctx, "u1", 10)
	if len(items) != 1 {
		t.Fatalf("accepted-loss policy should still drop the batch, got %d items", len(items))
	}
	if !coord.LongTerm().Model(ctx, "u1").IsEmpty() {
		t.Error("failed reconstruction must not write a model")
	}
}

func TestCoordinator_RetainOnFailureKeepsBatch(t *testing.T) {
	adapter := mock.New()
	adapter.ReconstructFn = func(ctx context.Context, currentModel, stimulus string) (string, error) {
		return "", fmt.Errorf("model offline")
	}
	config := drainTestConfig()
	config.DeleteOnFailure = false
	coord := newTestCoordinator(t, config, adapter)
	ctx := context.Background()

	updateTurn(coord, "u1", "first")
	updateTurn(coord, "u1", "second")
	updateTurn(coord, "u1", "third")

	items := coord.ShortTerm().Recent(ctx, "u1", 10)
	if len(items) != 3 {
		t.Fatalf("retained batch should stay in short-term, got %d items", len(items))
	}

	// Once the adapter recovers, CheckAndPromote drains the backlog.
	adapter.ReconstructFn = nil
	coord.CheckAndPromote(ctx, "u1")

	items = coord.ShortTerm().Recent(ctx, "u1", 10)
	if len(items) > 2 {
		t.Errorf("backlog should drain after recovery, got %d items", len(items))
	}
	if coord.LongTerm().Model(ctx, "u1").IsEmpty() {
		t.Error("recovered promotion should build a model")
	}
}

// brokenDeleteStore simulates the storage-failure class where reads keep
// working but deletes fail, e.g. a disk gone read-only.
type brokenDeleteStore struct {
	memory.Store
}

func (s *brokenDeleteStore) DeleteShortTerm(ctx context.Context, id, userID string) (bool, error) {
	return false, fmt.Errorf("read-only filesystem")
}

func TestCoordinator_DrainStopsWhenDeletesFail(t *testing.T) {
	inner, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	reconstructions := 0
	adapter := mock.New()
	base := mock.New()
	adapter.ReconstructFn = func(ctx context.Context, currentModel, stimulus string) (string, error) {
		reconstructions++
		return base.Reconstruct(ctx, currentModel, stimulus)
	}

	coord, err := memory.NewCoordinator(drainTestConfig(), &brokenDeleteStore{Store: inner}, adapter)
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	defer coord.Close()
	ctx := context.Background()

	// The third update overflows; the batch cannot be removed, so one
	// reconstruction round runs and the drain must stop instead of
	// re-promoting the same batch forever.
	updateTurn(coord, "u1", "first")
	updateTurn(coord, "u1", "second")
	updateTurn(coord, "u1", "third")

	if reconstructions != 1 {
		t.Fatalf("got %d reconstruction calls, want exactly 1", reconstructions)
	}
	if got := coord.ShortTerm().Recent(ctx, "u1", 10); len(got) != 3 {
		t.Errorf("items cannot be removed, want all 3 retained, got %d", len(got))
	}

	// Another explicit promotion attempt is one more round, not a spin.
	coord.CheckAndPromote(ctx, "u1")
	if reconstructions != 2 {
		t.Errorf("got %d reconstruction calls after retry, want 2", reconstructions)
	}
}

func TestCoordinator_RetrieveAndBaseMemory(t *testing.T) {
	coord := newTestCoordinator(t, drainTestConfig(), nil)
	ctx := context.Background()

	updateTurn(coord, "u1", "user rides an e-bike on weekends")

	out := coord.Retrieve(ctx, "e-bike weekends", "u1")
	if out == "" {
		t.Fatal("retrieval should find the ingested item")
	}
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, "e-bike") {
		t.Errorf("retrieval should serialize a JSON list of contents, got %q", out)
	}

	if got := coord.Retrieve(ctx, "", "u1"); got != "" {
		t.Errorf("blank query should retrieve nothing, got %q", got)
	}

	// Mock reconstruction never fills the stable sections.
	if got := coord.BaseMemory(ctx, "u1"); got != "" {
		t.Errorf("base memory should be empty before stable sections exist, got %q", got)
	}
}

func TestCoordinator_ClearUser(t *testing.T) {
	coord := newTestCoordinator(t, drainTestConfig(), nil)
	ctx := context.Background()

	updateTurn(coord, "u1", "first")
	updateTurn(coord, "u1", "second")
	updateTurn(coord, "u1", "third")
	updateTurn(coord, "u2", "other user fact")

	coord.ClearUser(ctx, "u1")

	if got := coord.ShortTerm().Recent(ctx, "u1", 10); len(got) != 0 {
		t.Errorf("cleared user still has %d short-term items", len(got))
	}
	if !coord.LongTerm().Model(ctx, "u1").IsEmpty() {
		t.Error("cleared user still has a cognitive model")
	}
	if got := coord.ShortTerm().Recent(ctx, "u2", 10); len(got) != 1 {
		t.Errorf("other user should be untouched, got %d items", len(got))
	}
}

func TestCoordinator_ConcurrentUpdatesOneUser(t *testing.T) {
	coord := newTestCoordinator(t, drainTestConfig(), nil)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			coord.Update(ctx, []memory.Event{
				{Role: "user", Content: fmt.Sprintf("concurrent %d", n), Time: time.Now()},
			}, "u1", true)
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	// The per-user lock serializes the drains, so the invariant holds at rest.
	if got := coord.ShortTerm().Recent(ctx, "u1", 10); len(got) > 2 {
		t.Errorf("short-term count %d exceeds cap after concurrent updates", len(got))
	}
}
