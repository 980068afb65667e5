// Package llm implements the memory subsystem's LLM adapter on the
// Anthropic API, with an external embedder for vector operations.
//
// The adapter is a shared, rate-limited external resource: every outbound
// call runs under a per-call timeout and a bounded-concurrency semaphore so
// one process serving many users cannot pile up requests.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/sync/semaphore"

	"github.com/personaflow/tieredmem/memory"
)

// Config holds adapter tunables.
type Config struct {
	// Model is the chat model for summarization and reconstruction.
	Model string

	// MaxTokens caps each completion.
	MaxTokens int64

	// Timeout bounds each outbound call.
	Timeout time.Duration

	// MaxConcurrent bounds in-flight calls across all users.
	MaxConcurrent int64
}

// DefaultConfig returns sensible adapter defaults.
var DefaultConfig = &Config{
	Model:         "claude-sonnet-4-5",
	MaxTokens:     4096,
	Timeout:       60 * time.Second,
	MaxConcurrent: 4,
}

// Client implements memory.Adapter. Embedding is delegated to a separate
// Embedder since the chat API does not produce vectors.
type Client struct {
	client   *anthropic.Client
	embedder memory.Embedder
	config   *Config
	sem      *semaphore.Weighted
}

// New creates an adapter. embedder may be nil; Embed then always fails and
// the subsystem runs keyword-only.
func New(client *anthropic.Client, embedder memory.Embedder, config *Config) *Client {
	if config == nil {
		config = DefaultConfig
	}
	limit := config.MaxConcurrent
	if limit <= 0 {
		limit = DefaultConfig.MaxConcurrent
	}
	return &Client{
		client:   client,
		embedder: embedder,
		config:   config,
		sem:      semaphore.NewWeighted(limit),
	}
}

// Summarize compresses a batch of events into one memory snapshot.
func (c *Client) Summarize(ctx context.Context, events []memory.Event) (string, error) {
	if len(events) == 0 {
		return "", nil
	}
	return c.complete(ctx, "", summarizePrompt(events))
}

// Reconstruct metabolizes the stimulus into the current model and returns
// the full replacement in wire format.
func (c *Client) Reconstruct(ctx context.Context, currentModel, stimulus string) (string, error) {
	return c.complete(ctx, reconstructionSystemPrompt, reconstructionPrompt(currentModel, stimulus, time.Now()))
}

// Embed converts text to a vector through the configured embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	return c.embedder.Embed(ctx, text)
}

func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: c.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
