package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// recallCandidateWindow is how many recent items retrieval paths consider.
const recallCandidateWindow = 20

// ShortTermManager converts batches of conversational events into summarized
// short-term items and answers reads over the short-term tier.
type ShortTermManager struct {
	config  *Config
	store   Store
	adapter Adapter
	index   VectorIndex // optional

	// Hot cache of per-user newest-first item lists. Misses fall through
	// to the store, so the manager keeps working when cache setup failed.
	cache *ristretto.Cache
}

// NewShortTermManager creates a short-term manager. index may be nil.
func NewShortTermManager(config *Config, store Store, adapter Adapter, index VectorIndex) *ShortTermManager {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		log.Printf("[MEMORY] Hot cache disabled: %v", err)
		cache = nil
	}
	return &ShortTermManager{
		config:  config,
		store:   store,
		adapter: adapter,
		index:   index,
		cache:   cache,
	}
}

// Ingest turns a batch of events into at most one new item.
//
// Below the token threshold with force=false it declines (nil, nil): the
// backpressure that stops premature summarization of short exchanges. An
// empty summary from the adapter is a failure and nothing is persisted.
func (m *ShortTermManager) Ingest(ctx context.Context, events []Event, userID string, force bool) (*Item, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tokens := EstimateTokens(events)
	if !force && tokens < m.config.StatesTokenThreshold {
		log.Printf("[MEMORY] Token count %d below threshold %d, skipping ingestion", tokens, m.config.StatesTokenThreshold)
		return nil, nil
	}

	log.Printf("[MEMORY] Ingesting %d events (~%d tokens) for user=%s", len(events), tokens, userID)

	summary, err := m.adapter.Summarize(ctx, events)
	if err != nil {
		log.Printf("[MEMORY] Summarization failed: %v", err)
		return nil, nil
	}
	if strings.TrimSpace(summary) == "" {
		log.Printf("[MEMORY] Summarization produced no content")
		return nil, nil
	}

	item := NewItem(userID, summary)

	// Best effort: an item without an embedding is still retrievable
	// through the keyword paths.
	if embedding, err := m.adapter.Embed(ctx, summary); err != nil {
		log.Printf("[MEMORY] Embedding failed for item %s: %v", item.ID, err)
	} else {
		item.Embedding = embedding
	}

	if err := m.store.AppendShortTerm(ctx, item); err != nil {
		return nil, fmt.Errorf("persist short-term item: %w", err)
	}
	m.invalidate(userID)

	if m.index != nil && item.HasEmbedding() {
		if err := m.index.Add(ctx, IndexDoc{
			ID:        item.ID,
			UserID:    userID,
			Kind:      KindShortTerm,
			Content:   item.Content,
			Embedding: item.Embedding,
		}); err != nil {
			log.Printf("[MEMORY] Indexing failed for item %s: %v", item.ID, err)
		}
	}

	log.Printf("[MEMORY] Stored short-term item %s (%d chars)", item.ID, len(item.Content))
	return &item, nil
}

// Recent returns the user's newest items, newest first, capped at limit.
// A non-positive limit uses the hot-cache size.
func (m *ShortTermManager) Recent(ctx context.Context, userID string, limit int) []Item {
	if limit <= 0 {
		limit = m.config.ShortTermHotCacheSize
	}
	items := m.list(ctx, userID)
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Overflow reports whether the stored count strictly exceeds the cap.
func (m *ShortTermManager) Overflow(ctx context.Context, userID string) bool {
	return len(m.list(ctx, userID)) > m.config.ShortTermMaxCount
}

// OldestBatch returns up to n items sorted ascending by timestamp: the set
// handed to promotion.
func (m *ShortTermManager) OldestBatch(ctx context.Context, userID string, n int) []Item {
	items := m.list(ctx, userID)
	if len(items) == 0 || n <= 0 {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].ID < items[j].ID
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// Delete removes one item. Idempotent; the second delete returns false.
func (m *ShortTermManager) Delete(ctx context.Context, id, userID string) bool {
	deleted, err := m.store.DeleteShortTerm(ctx, id, userID)
	if err != nil {
		log.Printf("[MEMORY] Delete failed for item %s: %v", id, err)
		return false
	}
	m.invalidate(userID)
	if m.index != nil {
		if err := m.index.Remove(ctx, userID, id); err != nil {
			log.Printf("[MEMORY] Index removal failed for item %s: %v", id, err)
		}
	}
	return deleted
}

// Clear removes the user's entire short-term collection.
func (m *ShortTermManager) Clear(ctx context.Context, userID string) {
	if err := m.store.ClearShortTerm(ctx, userID); err != nil {
		log.Printf("[MEMORY] Clearing short-term memories failed for user=%s: %v", userID, err)
		return
	}
	m.invalidate(userID)
	if m.index != nil {
		if err := m.index.RemoveKind(ctx, userID, KindShortTerm); err != nil {
			log.Printf("[MEMORY] Index clear failed for user=%s: %v", userID, err)
		}
	}
	log.Printf("[MEMORY] Cleared short-term memories for user=%s", userID)
}

func (m *ShortTermManager) list(ctx context.Context, userID string) []Item {
	if m.cache != nil {
		if cached, ok := m.cache.Get(userID); ok {
			if items, ok := cached.([]Item); ok {
				return append([]Item(nil), items...)
			}
		}
	}
	items, err := m.store.ListShortTerm(ctx, userID)
	if err != nil {
		log.Printf("[MEMORY] Listing short-term memories failed for user=%s: %v", userID, err)
		return nil
	}
	if m.cache != nil {
		m.cache.Set(userID, append([]Item(nil), items...), int64(len(items)+1))
	}
	return items
}

func (m *ShortTermManager) invalidate(userID string) {
	if m.cache == nil {
		return
	}
	m.cache.Del(userID)
	// Del is buffered; wait so a read after a mutation cannot see the
	// stale list.
	m.cache.Wait()
}
