// Package memory implements a tiered memory subsystem for LLM agents.
//
// Conversational events are summarized into short-term items; when the
// short-term tier overflows, the oldest items are promoted in batches into a
// single per-user cognitive model (long-term memory) through an LLM-driven
// reconstruction step that replaces the model wholesale.
//
// Architecture:
//   - Store: durable per-user persistence (short-term collection + long-term blob)
//   - Adapter: LLM boundary (Summarize, Reconstruct, Embed)
//   - ShortTermManager: ingestion with token-threshold backpressure
//   - LongTermManager: cognitive model ownership and atomic reconstruction
//   - Retriever: reflexive recall (keyword) and deep thought (keyword + vector)
//   - Coordinator: orchestration, overflow draining, per-user locking
//   - Scheduler: single background worker for fire-and-forget updates
//
// Failures never cross the Coordinator's public surface: adapter and storage
// errors degrade to no-ops with a diagnostic log line, because memory is an
// enhancement the agent loop must not fail on.
package memory
