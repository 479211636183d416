// Package llm turns retrieved lorebook chunks into an answer.
package llm

import (
	"fmt"
	"strings"
)

// NoContextAnswer is returned, without calling any model, when retrieval
// produced no chunks.
const NoContextAnswer = "No context available to answer the question."

const promptTemplate = `Answer the question strictly based on the provided context below.
Do not add any information not in the context.

Context:
%s

Question:
%s

Answer:`

// BuildPrompt renders the grounding prompt. Chunks are joined one per line in
// retrieval order.
func BuildPrompt(question string, chunks []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(chunks, "\n"), strings.TrimSpace(question))
}
