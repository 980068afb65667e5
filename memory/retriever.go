package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Fragment is one ranked retrieval result.
type Fragment struct {
	ID      string
	Content string
	Source  string // KindShortTerm or KindDynamic
	Score   float64
}

// Retriever serves read-only hybrid retrieval over the two memory tiers.
//
// Reflexive recall is the fast path: keyword overlap over a bounded recent
// window of short-term items. Deep thought is the exhaustive path: weighted
// keyword + vector scoring over everything that carries an embedding. The
// unified path feeds prompt injection from short-term items and the model's
// Dynamic sub-entries.
type Retriever struct {
	config  *Config
	short   *ShortTermManager
	long    *LongTermManager
	adapter Adapter
	index   VectorIndex // optional
	scorer  Scorer      // unified-path strategy, fixed at construction

	// Reflexive recall and the deep-thought keyword term always use the
	// lightweight heuristic, whatever strategy the unified path runs.
	overlap OverlapScorer
}

// NewRetriever creates a retriever. index may be nil; a nil scorer selects
// the heuristic overlap strategy.
func NewRetriever(config *Config, short *ShortTermManager, long *LongTermManager, adapter Adapter, index VectorIndex, scorer Scorer) *Retriever {
	if scorer == nil {
		scorer = OverlapScorer{}
	}
	return &Retriever{
		config:  config,
		short:   short,
		long:    long,
		adapter: adapter,
		index:   index,
		scorer:  scorer,
	}
}

// ReflexiveRecall scores the recent short-term window by keyword overlap
// only and returns the top 3. Any positive overlap qualifies; no relevance
// threshold applies on this path.
func (r *Retriever) ReflexiveRecall(ctx context.Context, query, userID string) []Item {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	candidates := r.short.Recent(ctx, userID, recallCandidateWindow)
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		score float64
		item  Item
	}
	var hits []scored
	for _, item := range candidates {
		if score := r.overlap.Score(query, item.Content); score > 0 {
			hits = append(hits, scored{score, item})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > 3 {
		hits = hits[:3]
	}

	results := make([]Item, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.item)
	}
	log.Printf("[MEMORY] Reflexive recall found %d items for user=%s", len(results), userID)
	return results
}

// DeepThought embeds the query and scores every embedded candidate with
// keyword*KeywordWeight + max(0,cosine)*VectorWeight. Candidates below the
// relevance threshold are dropped; results are capped at DeepSearchLimit.
// Embedding is mandatory on this path: when it fails the result is empty.
func (r *Retriever) DeepThought(ctx context.Context, query, userID string) []Fragment {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	queryEmbedding, err := r.adapter.Embed(ctx, query)
	if err != nil || len(queryEmbedding) == 0 {
		log.Printf("[MEMORY] Deep thought aborted, query embedding unavailable: %v", err)
		return nil
	}

	var fragments []Fragment
	if r.index != nil {
		hits, err := r.index.Search(ctx, userID, queryEmbedding, r.config.DeepSearchLimit)
		if err != nil {
			log.Printf("[MEMORY] Vector index search failed for user=%s: %v", userID, err)
			return nil
		}
		for _, hit := range hits {
			fragments = append(fragments, Fragment{
				ID:      hit.ID,
				Content: hit.Content,
				Source:  hit.Kind,
				Score:   r.combinedScore(query, hit.Content, float64(hit.Similarity)),
			})
		}
	} else {
		// Brute force over the embedded short-term window plus the
		// model's dynamic entries, re-embedded on the fly since no index
		// carries their vectors.
		for _, item := range r.short.Recent(ctx, userID, recallCandidateWindow) {
			if !item.HasEmbedding() {
				continue
			}
			fragments = append(fragments, Fragment{
				ID:      item.ID,
				Content: item.Content,
				Source:  KindShortTerm,
				Score:   r.combinedScore(query, item.Content, Cosine(queryEmbedding, item.Embedding)),
			})
		}
		for i, entry := range r.long.Model(ctx, userID).DynamicEntries() {
			embedding, err := r.adapter.Embed(ctx, entry)
			if err != nil || len(embedding) == 0 {
				log.Printf("[MEMORY] Embedding dynamic entry %d failed for user=%s", i, userID)
				continue
			}
			fragments = append(fragments, Fragment{
				ID:      fmt.Sprintf("dyn-%s-%d", userID, i),
				Content: entry,
				Source:  KindDynamic,
				Score:   r.combinedScore(query, entry, Cosine(queryEmbedding, embedding)),
			})
		}
	}

	filtered := fragments[:0]
	for _, f := range fragments {
		if f.Score >= r.config.RelevanceThreshold {
			filtered = append(filtered, f)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	if len(filtered) > r.config.DeepSearchLimit {
		filtered = filtered[:r.config.DeepSearchLimit]
	}
	log.Printf("[MEMORY] Deep thought found %d fragments for user=%s", len(filtered), userID)
	return filtered
}

// RelevantMemories ranks short-term items and the Dynamic section's
// sub-entries into one list, capped at MaxMemoriesInContext, with no
// minimum-score gate, and returns the contents as a serialized JSON list.
// Returns "" when nothing scores above zero.
func (r *Retriever) RelevantMemories(ctx context.Context, query, userID string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	type scored struct {
		score   float64
		content string
	}
	var candidates []scored

	for _, item := range r.short.Recent(ctx, userID, recallCandidateWindow) {
		if score := r.scorer.Score(query, item.Content); score > 0 {
			candidates = append(candidates, scored{score, item.Content})
		}
	}
	for _, entry := range r.long.Model(ctx, userID).DynamicEntries() {
		if score := r.scorer.Score(query, entry); score > 0 {
			candidates = append(candidates, scored{score, entry})
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > r.config.MaxMemoriesInContext {
		candidates = candidates[:r.config.MaxMemoriesInContext]
	}

	contents := make([]string, 0, len(candidates))
	for _, c := range candidates {
		contents = append(contents, c.content)
	}
	serialized, err := json.Marshal(contents)
	if err != nil {
		log.Printf("[MEMORY] Serializing relevant memories failed: %v", err)
		return ""
	}
	return string(serialized)
}

func (r *Retriever) combinedScore(query, content string, similarity float64) float64 {
	if similarity < 0 {
		similarity = 0
	}
	keyword := r.overlap.Score(query, content)
	return keyword*r.config.KeywordWeight + similarity*r.config.VectorWeight
}
