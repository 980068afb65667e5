// Package chromem implements the vector index over chromem-go, a pure Go
// embedded vector database. Each user gets an isolated collection.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/personaflow/tieredmem/memory"
)

// Index holds per-user chromem collections.
type Index struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New creates an in-memory chromem index.
func New() (*Index, error) {
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (x *Index) collection(userID string) (*chromem.Collection, error) {
	x.mu.RLock()
	col, ok := x.collections[userID]
	x.mu.RUnlock()
	if ok {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[userID]; ok {
		return col, nil
	}

	name := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		name = "global"
	}
	col, err := x.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	x.collections[userID] = col
	return col, nil
}

// Add inserts or replaces one embedded document.
func (x *Index) Add(ctx context.Context, doc memory.IndexDoc) error {
	col, err := x.collection(doc.UserID)
	if err != nil {
		return err
	}
	err = col.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata: map[string]string{
			"user_id": doc.UserID,
			"kind":    doc.Kind,
		},
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Remove deletes one document by ID.
func (x *Index) Remove(ctx context.Context, userID, id string) error {
	col, err := x.collection(userID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// RemoveKind deletes all of a user's documents of one kind.
func (x *Index) RemoveKind(ctx context.Context, userID, kind string) error {
	col, err := x.collection(userID)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{"kind": kind}, nil); err != nil {
		return fmt.Errorf("delete documents by kind: %w", err)
	}
	return nil
}

// Search returns up to limit documents nearest to the embedding. chromem
// rejects result counts above the collection size, so the limit is lowered
// until the query succeeds.
func (x *Index) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]memory.IndexHit, error) {
	col, err := x.collection(userID)
	if err != nil {
		return nil, err
	}
	if count := col.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				log.Printf("[INDEX] Collection empty for user=%s", userID)
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]memory.IndexHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, memory.IndexHit{
			ID:         res.ID,
			Kind:       res.Metadata["kind"],
			Content:    res.Content,
			Similarity: res.Similarity,
		})
	}
	return hits, nil
}

// isInsufficientDocsError matches chromem's too-few-documents query errors.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
