package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// LongTermManager owns the single cognitive model per user and its
// reconstruction. Reconstruction replaces the stored model wholesale; there
// is no partial merge, which is what keeps the model from drifting through
// incremental patching.
type LongTermManager struct {
	config  *Config
	store   Store
	adapter Adapter
	index   VectorIndex // optional
}

// NewLongTermManager creates a long-term manager. index may be nil.
func NewLongTermManager(config *Config, store Store, adapter Adapter, index VectorIndex) *LongTermManager {
	return &LongTermManager{
		config:  config,
		store:   store,
		adapter: adapter,
		index:   index,
	}
}

// Reconstruct feeds one stimulus into the model. Returns false and leaves
// the prior model untouched when the adapter fails or produces nothing.
func (m *LongTermManager) Reconstruct(ctx context.Context, userID, stimulus string) bool {
	return m.reconstruct(ctx, userID, stimulus)
}

// BatchReconstruct is the promotion entry point: the combined stimulus is
// the timestamp-prefixed contents of several items, ascending by timestamp,
// joined by blank lines. Same contract as Reconstruct.
func (m *LongTermManager) BatchReconstruct(ctx context.Context, userID, combinedStimulus string) bool {
	return m.reconstruct(ctx, userID, combinedStimulus)
}

func (m *LongTermManager) reconstruct(ctx context.Context, userID, stimulus string) bool {
	current, err := m.store.ReadLongTerm(ctx, userID)
	if err != nil {
		log.Printf("[MEMORY] Reading cognitive model failed for user=%s: %v", userID, err)
		return false
	}
	if strings.TrimSpace(current) == "" {
		current = EmptyModelSkeleton()
	}

	replacement, err := m.adapter.Reconstruct(ctx, current, stimulus)
	if err != nil {
		log.Printf("[MEMORY] Reconstruction failed for user=%s: %v", userID, err)
		return false
	}
	if strings.TrimSpace(replacement) == "" {
		log.Printf("[MEMORY] Reconstruction produced no model for user=%s", userID)
		return false
	}

	if err := m.store.ReplaceLongTerm(ctx, userID, replacement); err != nil {
		log.Printf("[MEMORY] Replacing cognitive model failed for user=%s: %v", userID, err)
		return false
	}
	log.Printf("[MEMORY] Cognitive model replaced for user=%s (%d chars)", userID, len(replacement))

	m.reindexDynamic(ctx, userID, ParseCognitiveModel(replacement))
	return true
}

// Model returns the decoded cognitive model, empty sections when absent.
func (m *LongTermManager) Model(ctx context.Context, userID string) CognitiveModel {
	blob, err := m.store.ReadLongTerm(ctx, userID)
	if err != nil {
		log.Printf("[MEMORY] Reading cognitive model failed for user=%s: %v", userID, err)
		return CognitiveModel{}
	}
	return ParseCognitiveModel(blob)
}

// Section returns one named section of the stored model.
func (m *LongTermManager) Section(ctx context.Context, userID, name string) string {
	blob, err := m.store.ReadLongTerm(ctx, userID)
	if err != nil {
		log.Printf("[MEMORY] Reading cognitive model failed for user=%s: %v", userID, err)
		return ""
	}
	return ExtractSection(blob, name)
}

// Base returns the stable Bedrock + Evolutionary portion for the system
// context. Dynamic is never included.
func (m *LongTermManager) Base(ctx context.Context, userID string) string {
	return m.Model(ctx, userID).Base()
}

// Clear deletes the stored model entirely.
func (m *LongTermManager) Clear(ctx context.Context, userID string) {
	if err := m.store.DeleteLongTerm(ctx, userID); err != nil {
		log.Printf("[MEMORY] Clearing cognitive model failed for user=%s: %v", userID, err)
		return
	}
	if m.index != nil {
		if err := m.index.RemoveKind(ctx, userID, KindDynamic); err != nil {
			log.Printf("[MEMORY] Index clear failed for user=%s: %v", userID, err)
		}
	}
	log.Printf("[MEMORY] Cleared cognitive model for user=%s", userID)
}

// reindexDynamic re-embeds the Dynamic sub-entries of a freshly replaced
// model so deep thought can search them. Best effort: embedding failures
// only shrink the searchable set.
func (m *LongTermManager) reindexDynamic(ctx context.Context, userID string, model CognitiveModel) {
	if m.index == nil {
		return
	}
	if err := m.index.RemoveKind(ctx, userID, KindDynamic); err != nil {
		log.Printf("[MEMORY] Dropping stale dynamic index failed for user=%s: %v", userID, err)
	}
	for i, entry := range model.DynamicEntries() {
		embedding, err := m.adapter.Embed(ctx, entry)
		if err != nil || len(embedding) == 0 {
			log.Printf("[MEMORY] Embedding dynamic entry %d failed for user=%s", i, userID)
			continue
		}
		doc := IndexDoc{
			ID:        fmt.Sprintf("dyn-%s-%d", userID, i),
			UserID:    userID,
			Kind:      KindDynamic,
			Content:   entry,
			Embedding: embedding,
		}
		if err := m.index.Add(ctx, doc); err != nil {
			log.Printf("[MEMORY] Indexing dynamic entry %d failed for user=%s: %v", i, userID, err)
		}
	}
}
