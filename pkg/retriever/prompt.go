package retriever

import "strings"

const (
	// FallbackAnswer is returned instead of calling the model when no passage is relevant.
	FallbackAnswer = "I could not find relevant information for that question in this document."

	promptTemplate = "Answer ONLY from CONTEXT below; if absent, say so. CONTEXT: "
)

// BuildContext joins passages with a blank line.
func BuildContext(passages []string) string {
	return strings.Join(passages, "\n\n")
}

// BuildPrompt interpolates context into the grounding instruction.
func BuildPrompt(context string) string {
	return promptTemplate + context
}
