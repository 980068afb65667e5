package memory

import "context"

// Adapter is the LLM boundary of the memory subsystem. All three operations
// may fail; failure is an error return the managers degrade to a no-op, never
// a panic crossing the public surface.
//
// Implementations: llm.Client (Anthropic-backed), llm/mock (deterministic).
type Adapter interface {
	// Summarize compresses a batch of events into one memory snapshot.
	// An empty result means summarization declined or produced nothing.
	Summarize(ctx context.Context, events []Event) (string, error)

	// Reconstruct metabolizes new stimulus text into the current cognitive
	// model and returns the full replacement model in wire format.
	Reconstruct(ctx context.Context, currentModel, stimulus string) (string, error)

	// Embed converts text to a vector representation.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder converts text to vector embeddings. It is an implementation
// detail of Adapter construction; the managers only see Adapter.Embed.
//
// Implementations: embedder/mock (testing), embedder/remote (HTTP APIs),
// embedder/onnx (local model, build-tagged).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
