package memory

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Item is one short-term memory unit: a summarized snapshot of a batch of
// conversational events. Content and Timestamp are immutable after creation;
// an item is deleted, never edited, once promoted.
type Item struct {
	ID        string
	Content   string
	Embedding []float32
	Timestamp time.Time
	UserID    string
}

// NewItem creates an item with a fresh time-sortable ID.
func NewItem(userID, content string) Item {
	return Item{
		ID:        ulid.Make().String(),
		Content:   content,
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// HasEmbedding reports whether the item carries a vector representation.
// Embeddings are populated best-effort at ingestion and may be absent.
func (it Item) HasEmbedding() bool {
	return len(it.Embedding) > 0
}
