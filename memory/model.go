package memory

import (
	"fmt"
	"regexp"
	"strings"
)

// Section names of the cognitive model, in wire order.
const (
	SectionBedrock      = "Bedrock"
	SectionEvolutionary = "Evolutionary"
	SectionDynamic      = "Dynamic"
)

// DynamicSeparator splits the Dynamic section into independent sub-entries.
const DynamicSeparator = "\n\n\n"

// CognitiveModel is the single long-term memory unit of one user: three
// named, non-overlapping sections. Exactly one model exists per user and
// reconstruction always replaces it wholesale.
//
// The tagged-text wire format (<Bedrock>…</Bedrock> etc.) exists only at the
// storage boundary; in-memory logic works on this struct.
type CognitiveModel struct {
	// Bedrock holds near-static traits and core interaction principles.
	Bedrock string

	// Evolutionary holds slowly-changing long-horizon patterns.
	Evolutionary string

	// Dynamic holds time-stamped short-horizon facts, sub-entries
	// separated by DynamicSeparator.
	Dynamic string
}

// ParseCognitiveModel decodes the tagged wire format. Missing or malformed
// tag pairs yield empty sections, never an error.
func ParseCognitiveModel(blob string) CognitiveModel {
	return CognitiveModel{
		Bedrock:      ExtractSection(blob, SectionBedrock),
		Evolutionary: ExtractSection(blob, SectionEvolutionary),
		Dynamic:      ExtractSection(blob, SectionDynamic),
	}
}

// Encode renders the model in the tagged wire format, all three tag pairs
// present in order, each possibly empty.
func (m CognitiveModel) Encode() string {
	return strings.Join([]string{
		encodeSection(SectionBedrock, m.Bedrock),
		encodeSection(SectionEvolutionary, m.Evolutionary),
		encodeSection(SectionDynamic, m.Dynamic),
	}, "\n\n")
}

// IsEmpty reports whether all sections are blank.
func (m CognitiveModel) IsEmpty() bool {
	return strings.TrimSpace(m.Bedrock) == "" &&
		strings.TrimSpace(m.Evolutionary) == "" &&
		strings.TrimSpace(m.Dynamic) == ""
}

// DynamicEntries splits the Dynamic section into its sub-entries.
func (m CognitiveModel) DynamicEntries() []string {
	if strings.TrimSpace(m.Dynamic) == "" {
		return nil
	}
	var entries []string
	for _, part := range strings.Split(m.Dynamic, DynamicSeparator) {
		if s := strings.TrimSpace(part); s != "" {
			entries = append(entries, s)
		}
	}
	return entries
}

// Base returns the stable portion of the model: the Bedrock and Evolutionary
// sections re-wrapped in their tags, joined by a blank line. Dynamic is never
// included. Empty sections are omitted; an empty model yields "".
func (m CognitiveModel) Base() string {
	var parts []string
	if s := strings.TrimSpace(m.Bedrock); s != "" {
		parts = append(parts, encodeSection(SectionBedrock, s))
	}
	if s := strings.TrimSpace(m.Evolutionary); s != "" {
		parts = append(parts, encodeSection(SectionEvolutionary, s))
	}
	return strings.Join(parts, "\n\n")
}

// EmptyModelSkeleton is the canonical three-section blob a first
// reconstruction starts from when no model is stored yet.
func EmptyModelSkeleton() string {
	return CognitiveModel{}.Encode()
}

// ExtractSection pulls the trimmed substring between <name> and </name>.
// Returns "" when the tag pair is absent or malformed; nesting is not
// validated.
func ExtractSection(blob, name string) string {
	re, err := regexp.Compile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, regexp.QuoteMeta(name), regexp.QuoteMeta(name)))
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(blob)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func encodeSection(name, body string) string {
	return fmt.Sprintf("<%s>\n%s\n</%s>", name, body, name)
}
