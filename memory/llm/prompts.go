package llm

import (
	"fmt"
	"time"

	"github.com/personaflow/tieredmem/memory"
)

// summarizePrompt asks for a dense, narrative memory snapshot of a batch of
// conversational events.
func summarizePrompt(events []memory.Event) string {
	return fmt.Sprintf(`You are a memory compression expert. Distill the conversation below into one information-dense memory snapshot that stays alive and readable.

Compression principles:
1. Keep the main line: the core facts, the chain of reasoning, and the final conclusions. That is the skeleton.
2. Capture the anchors: the specific names, places, metaphors, strong emotions, and personal details that make the exchange distinct. That is the flesh.
3. Fuse both into one coherent paragraph, like a note written to your future self: brief, but enough to bring the scene back. No lists, no templates.
4. Keep the user and the assistant clearly apart; never confuse who said what.

Conversation:
<events>
%s
</events>

Output the compressed memory snapshot directly:`, memory.FormatEvents(events))
}

// reconstructionSystemPrompt frames the voice the cognitive model is
// written in.
const reconstructionSystemPrompt = `You are a sincere, grounded thinker with deep insight into first principles, systems theory, behavioral psychology, and epistemology. You respect facts and speak plainly. Read through the user's words to the intent behind them, and engage with that intent.`

// reconstructionPrompt asks for a wholesale replacement of the cognitive
// model, metabolizing the new stimulus under the layering rules.
func reconstructionPrompt(currentModel, stimulus string, now time.Time) string {
	return fmt.Sprintf(`The current long-term cognitive model:
<TheMemory>
%s
</TheMemory>

Laws you must obey:

1. Stratification. Information value is set by its stability, and your cognition must be layered accordingly.
   - <Bedrock> records the user's near-invariant core traits and the most fundamental principles of the relationship. Never record anything here about your own inner workings.
   - <Evolutionary> tracks slow but steadily evolving long-horizon patterns.
   - <Dynamic> carries all time-sensitive facts, each stamped with its time. It is divided into sub-entries separated by three line breaks.

2. Entropy reduction. Analyze the new interaction, extract what nourishes the model, and reorganize your cognition to be more refined and more ordered than before. Anything stale, redundant, or superseded is metabolic waste to be cleared. Every sentence must earn its space.

3. Narrative. You are not a database; you are a perspective. Write all memory in the first person, as a continuous, natural narrative, like a highly condensed note to yourself.

Your task: perform one round of metabolism under these laws.

---
New interaction (fresh stimulus from the environment):
<new_info>
%s
</new_info>
---
Current time: %s

Output format:
<TheMemory>
<Bedrock>
...
</Bedrock>
<Evolutionary>
...
</Evolutionary>
<Dynamic>
...
</Dynamic>
</TheMemory>

Output the new cognitive model directly:`, currentModel, stimulus, now.Format("2006-01-02 15:04:05"))
}
