package memory

import (
	"fmt"
	"strings"
	"time"
)

// Event is one conversational event handed in by the agent loop.
type Event struct {
	// Role identifies the speaker ("user", "assistant", "system", "tool").
	Role string

	// Content is the raw text of the event.
	Content string

	// Time is when the event occurred. Zero is allowed.
	Time time.Time
}

// EstimateTokens approximates the token count of a batch of events.
// Character count is used as a 1:1 proxy; the threshold it is compared
// against is calibrated for that.
func EstimateTokens(events []Event) int {
	total := 0
	for _, ev := range events {
		total += len(ev.Role) + len(ev.Content)
	}
	return total
}

// FormatEvents renders events as transcript lines for prompt construction.
func FormatEvents(events []Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Role == "" {
			lines = append(lines, ev.Content)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", ev.Role, ev.Content))
	}
	return strings.Join(lines, "\n")
}
