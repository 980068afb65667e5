// Package mock provides a deterministic LLM adapter for tests and examples:
// no network, no model files, stable output for a given input.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/personaflow/tieredmem/memory"
)

// Adapter implements memory.Adapter with canned behavior. Any of the
// function fields may be set to override it.
type Adapter struct {
	SummarizeFn   func(ctx context.Context, events []memory.Event) (string, error)
	ReconstructFn func(ctx context.Context, currentModel, stimulus string) (string, error)
	EmbedFn       func(ctx context.Context, text string) ([]float32, error)

	dimensions int
}

// New creates a mock adapter with 384-dimensional hash embeddings.
func New() *Adapter {
	return &Adapter{dimensions: 384}
}

// Summarize joins the event contents into one snapshot line.
func (a *Adapter) Summarize(ctx context.Context, events []memory.Event) (string, error) {
	if a.SummarizeFn != nil {
		return a.SummarizeFn(ctx, events)
	}
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		parts = append(parts, ev.Content)
	}
	return fmt.Sprintf("Snapshot: %s", strings.Join(parts, " / ")), nil
}

// Reconstruct folds the stimulus into the Dynamic section verbatim.
func (a *Adapter) Reconstruct(ctx context.Context, currentModel, stimulus string) (string, error) {
	if a.ReconstructFn != nil {
		return a.ReconstructFn(ctx, currentModel, stimulus)
	}
	model := memory.ParseCognitiveModel(currentModel)
	if model.Dynamic == "" {
		model.Dynamic = stimulus
	} else {
		model.Dynamic = model.Dynamic + memory.DynamicSeparator + stimulus
	}
	return model.Encode(), nil
}

// Embed produces a deterministic unit vector seeded by the text's hash.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if a.EmbedFn != nil {
		return a.EmbedFn(ctx, text)
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, a.dimensions)
	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range embedding {
			embedding[i] *= scale
		}
	}
	return embedding, nil
}
