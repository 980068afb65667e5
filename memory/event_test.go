package memory_test

import (
	"testing"

	"github.com/personaflow/tieredmem/memory"
)

func TestEstimateTokens(t *testing.T) {
	events := []memory.Event{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}
	// 4+5 + 9+2
	if got := memory.EstimateTokens(events); got != 20 {
		t.Errorf("EstimateTokens = %d, want 20", got)
	}
	if got := memory.EstimateTokens(nil); got != 0 {
		t.Errorf("EstimateTokens(nil) = %d, want 0", got)
	}
}

func TestFormatEvents(t *testing.T) {
	events := []memory.Event{
		{Role: "user", Content: "question"},
		{Role: "", Content: "bare line"},
	}
	want := "user: question\nbare line"
	if got := memory.FormatEvents(events); got != want {
		t.Errorf("FormatEvents = %q, want %q", got, want)
	}
}
