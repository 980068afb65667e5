package memory

import "fmt"

// Config holds the process-wide tunables of the memory subsystem.
// One Config applies to a deployment, not to a single user.
type Config struct {
	// StatesTokenThreshold is the estimated token count a batch of events
	// must reach before ingestion summarizes it (unless forced).
	StatesTokenThreshold int

	// ShortTermMaxCount caps the stored short-term items per user.
	// Promotion triggers when the count strictly exceeds it.
	ShortTermMaxCount int

	// PromotionBatchSize is how many of the oldest short-term items are
	// consumed per reconstruction round. Must be positive; a zero batch
	// would make the drain loop non-terminating.
	PromotionBatchSize int

	// ShortTermHotCacheSize is the default window for Recent reads.
	ShortTermHotCacheSize int

	// RelevanceThreshold is the minimum combined score for deep thought.
	RelevanceThreshold float64

	// MaxMemoriesInContext caps the unified relevant-memories result.
	MaxMemoriesInContext int

	// DeepSearchLimit caps deep thought results.
	DeepSearchLimit int

	// KeywordWeight and VectorWeight blend the two deep-thought scores.
	// They should sum to 1.0 in practice; this is not enforced.
	KeywordWeight float64
	VectorWeight  float64

	// DeleteOnFailure controls whether promoted items are removed from
	// short-term storage even when reconstruction fails. True preserves
	// the original accepted-loss policy: bounding short-term storage wins
	// over guaranteeing no information loss. False retains the batch and
	// stops the drain so a later round can retry.
	DeleteOnFailure bool
}

// DefaultConfig mirrors the canonical deployment tunables.
var DefaultConfig = &Config{
	StatesTokenThreshold:  80000,
	ShortTermMaxCount:     50,
	PromotionBatchSize:    3,
	ShortTermHotCacheSize: 5,
	RelevanceThreshold:    0.6,
	MaxMemoriesInContext:  3,
	DeepSearchLimit:       20,
	KeywordWeight:         0.5,
	VectorWeight:          0.5,
	DeleteOnFailure:       true,
}

// Validate rejects configurations that can produce non-terminating
// promotion loops or meaningless retrieval. Called at construction time.
func (c *Config) Validate() error {
	if c.PromotionBatchSize <= 0 {
		return fmt.Errorf("promotion batch size must be positive, got %d", c.PromotionBatchSize)
	}
	if c.ShortTermMaxCount <= 0 {
		return fmt.Errorf("short-term max count must be positive, got %d", c.ShortTermMaxCount)
	}
	if c.StatesTokenThreshold < 0 {
		return fmt.Errorf("token threshold must not be negative, got %d", c.StatesTokenThreshold)
	}
	if c.ShortTermHotCacheSize <= 0 {
		return fmt.Errorf("hot cache size must be positive, got %d", c.ShortTermHotCacheSize)
	}
	if c.MaxMemoriesInContext <= 0 {
		return fmt.Errorf("max memories in context must be positive, got %d", c.MaxMemoriesInContext)
	}
	if c.DeepSearchLimit <= 0 {
		return fmt.Errorf("deep search limit must be positive, got %d", c.DeepSearchLimit)
	}
	if c.KeywordWeight < 0 || c.VectorWeight < 0 {
		return fmt.Errorf("score weights must not be negative, got %.2f/%.2f", c.KeywordWeight, c.VectorWeight)
	}
	if c.RelevanceThreshold < 0 {
		return fmt.Errorf("relevance threshold must not be negative, got %.2f", c.RelevanceThreshold)
	}
	return nil
}
