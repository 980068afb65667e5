package memory

import "context"

// Store is the durable persistence backend, keyed by user ID, with two
// independent namespaces: the ordered short-term collection and the single
// long-term blob.
//
// Implementations: store/file (per-user JSON/text files, the canonical
// layout), store/sqlite (single-file database).
type Store interface {
	// AppendShortTerm appends one item to the user's short-term collection.
	AppendShortTerm(ctx context.Context, item Item) error

	// ListShortTerm returns the user's short-term items, newest first.
	// Absence of the collection is not an error; it yields an empty list.
	ListShortTerm(ctx context.Context, userID string) ([]Item, error)

	// DeleteShortTerm removes one item. Idempotent: deleting an absent
	// item returns false with no error.
	DeleteShortTerm(ctx context.Context, id, userID string) (bool, error)

	// ClearShortTerm removes the user's entire short-term collection.
	ClearShortTerm(ctx context.Context, userID string) error

	// ReplaceLongTerm overwrites the user's long-term blob wholesale.
	// Atomicity is at the granularity of this one call.
	ReplaceLongTerm(ctx context.Context, userID, blob string) error

	// ReadLongTerm returns the stored blob, or "" when absent.
	ReadLongTerm(ctx context.Context, userID string) (string, error)

	// DeleteLongTerm removes the blob entirely (administrative reset).
	DeleteLongTerm(ctx context.Context, userID string) error

	// Close releases resources.
	Close() error
}

// Index document kinds.
const (
	KindShortTerm = "short_term"
	KindDynamic   = "dynamic"
)

// IndexDoc is one embedded document tracked by a VectorIndex.
type IndexDoc struct {
	ID        string
	UserID    string
	Kind      string // KindShortTerm or KindDynamic
	Content   string
	Embedding []float32
}

// IndexHit is one vector search result.
type IndexHit struct {
	ID         string
	Kind       string
	Content    string
	Similarity float32
}

// VectorIndex serves deep-thought candidate lookup over embedded documents.
// It is optional: without one, deep thought falls back to a brute-force scan
// over short-term items.
//
// Implementation: index/chromem (embedded vector database).
type VectorIndex interface {
	// Add inserts or replaces one document.
	Add(ctx context.Context, doc IndexDoc) error

	// Remove deletes one document by ID.
	Remove(ctx context.Context, userID, id string) error

	// RemoveKind deletes all of a user's documents of the given kind.
	RemoveKind(ctx context.Context, userID, kind string) error

	// Search returns up to limit documents nearest to the embedding,
	// most similar first.
	Search(ctx context.Context, userID string, embedding []float32, limit int) ([]IndexHit, error)
}
