package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// stimulusTimeLayout prefixes each promoted item's content in the combined
// reconstruction stimulus.
const stimulusTimeLayout = "2006-01-02 15:04"

// Coordinator is the top-level orchestrator: ingestion, the overflow drain,
// retrieval, and administrative resets. It is explicitly constructed and
// caller-owned; there is no process-wide default instance.
//
// All store mutations for one user run under that user's lock, so a
// foreground call and an in-flight background job for the same user cannot
// lose each other's read-modify-write.
type Coordinator struct {
	config    *Config
	store     Store
	adapter   Adapter
	index     VectorIndex
	shortTerm *ShortTermManager
	longTerm  *LongTermManager
	retriever *Retriever

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*coordinatorOptions)

type coordinatorOptions struct {
	index  VectorIndex
	scorer Scorer
}

// WithVectorIndex enables deep thought over an embedded vector index.
func WithVectorIndex(index VectorIndex) CoordinatorOption {
	return func(o *coordinatorOptions) {
		o.index = index
	}
}

// WithScorer sets the unified retrieval path's text-similarity strategy.
func WithScorer(scorer Scorer) CoordinatorOption {
	return func(o *coordinatorOptions) {
		o.scorer = scorer
	}
}

// NewCoordinator wires the memory subsystem. A nil config uses
// DefaultConfig; an invalid config is rejected here since it can produce
// non-terminating promotion loops.
func NewCoordinator(config *Config, store Store, adapter Adapter, opts ...CoordinatorOption) (*Coordinator, error) {
	if config == nil {
		config = DefaultConfig
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}

	var options coordinatorOptions
	for _, opt := range opts {
		opt(&options)
	}

	shortTerm := NewShortTermManager(config, store, adapter, options.index)
	longTerm := NewLongTermManager(config, store, adapter, options.index)
	return &Coordinator{
		config:    config,
		store:     store,
		adapter:   adapter,
		index:     options.index,
		shortTerm: shortTerm,
		longTerm:  longTerm,
		retriever: NewRetriever(config, shortTerm, longTerm, adapter, options.index, options.scorer),
		users:     make(map[string]*sync.Mutex),
	}, nil
}

// Update is the synchronous write path: ingest the events and, when a new
// item was produced, drain any overflow. Never returns an error; failures
// degrade to a logged no-op.
func (c *Coordinator) Update(ctx context.Context, events []Event, userID string, force bool) {
	if len(events) == 0 {
		return
	}
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	item, err := c.shortTerm.Ingest(ctx, events, userID, force)
	if err != nil {
		log.Printf("[MEMORY] Memory update failed for user=%s: %v", userID, err)
		return
	}
	if item != nil {
		c.drain(ctx, userID)
	}
}

// CheckAndPromote drains the user's short-term overflow, batch by batch,
// until the stored count is back within bounds.
func (c *Coordinator) CheckAndPromote(ctx context.Context, userID string) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	c.drain(ctx, userID)
}

// drain runs the promotion loop. Each round consumes the oldest batch, so
// the loop is bounded by the stored count when it begins. Caller holds the
// user lock.
func (c *Coordinator) drain(ctx context.Context, userID string) {
	for c.shortTerm.Overflow(ctx, userID) {
		batch := c.shortTerm.OldestBatch(ctx, userID, c.config.PromotionBatchSize)
		if len(batch) == 0 {
			return
		}

		log.Printf("[MEMORY] Promoting %d short-term items for user=%s", len(batch), userID)
		ok := c.longTerm.BatchReconstruct(ctx, userID, combineStimulus(batch))
		if !ok && !c.config.DeleteOnFailure {
			log.Printf("[MEMORY] Reconstruction failed for user=%s, batch retained for retry", userID)
			return
		}

		// Promotion removes the source items even when reconstruction
		// failed: bounding the short-term tier wins over guaranteeing
		// no information loss.
		removed := 0
		for _, item := range batch {
			if c.shortTerm.Delete(ctx, item.ID, userID) {
				removed++
			}
		}
		if !ok {
			log.Printf("[MEMORY] Reconstruction failed for user=%s, %d items dropped", userID, len(batch))
		}
		// The loop is only bounded while each round shrinks the stored
		// count. When storage refuses every delete, the next round would
		// see the same batch again, so stop and leave the overflow for a
		// later CheckAndPromote.
		if removed == 0 {
			log.Printf("[MEMORY] Promotion removed none of %d items for user=%s, stopping drain", len(batch), userID)
			return
		}
	}
}

// Retrieve is the read path for prompt injection: the unified ranked list
// serialized as JSON, "" when nothing matches. Never raises.
func (c *Coordinator) Retrieve(ctx context.Context, query, userID string) string {
	return c.retriever.RelevantMemories(ctx, query, userID)
}

// BaseMemory returns the stable Bedrock + Evolutionary portion of the
// user's cognitive model for the system context.
func (c *Coordinator) BaseMemory(ctx context.Context, userID string) string {
	return c.longTerm.Base(ctx, userID)
}

// ShortTerm exposes the short-term manager for read-only callers.
func (c *Coordinator) ShortTerm() *ShortTermManager {
	return c.shortTerm
}

// LongTerm exposes the long-term manager for read-only callers.
func (c *Coordinator) LongTerm() *LongTermManager {
	return c.longTerm
}

// Retriever exposes the retrieval engine (reflexive recall, deep thought).
func (c *Coordinator) Retriever() *Retriever {
	return c.retriever
}

// ClearUser wipes both tiers for one user (administrative reset).
func (c *Coordinator) ClearUser(ctx context.Context, userID string) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	c.shortTerm.Clear(ctx, userID)
	c.longTerm.Clear(ctx, userID)
}

// Close releases the underlying store.
func (c *Coordinator) Close() error {
	return c.store.Close()
}

func (c *Coordinator) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		c.users[userID] = lock
	}
	return lock
}

// combineStimulus joins a promotion batch into one reconstruction input:
// timestamp-prefixed contents, ascending by timestamp, blank-line separated.
func combineStimulus(batch []Item) string {
	parts := make([]string, 0, len(batch))
	for _, item := range batch {
		parts = append(parts, fmt.Sprintf("[%s] %s", item.Timestamp.Format(stimulusTimeLayout), item.Content))
	}
	return strings.Join(parts, "\n\n")
}
